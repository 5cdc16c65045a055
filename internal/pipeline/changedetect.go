package pipeline

import (
	"image"
	"log/slog"

	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/corona10/goimagehash"
)

// frameMemory remembers the last successfully processed frame of a run so an
// unchanged frame can reuse its regions. It is only used from the frame loop.
type frameMemory struct {
	maxDistance int
	hash        *goimagehash.ImageHash
	regions     []region.TextRegion
	detected    int
}

func newFrameMemory(maxDistance int) *frameMemory {
	return &frameMemory{maxDistance: maxDistance}
}

// lookup hashes img and reports whether it is within maxDistance of the
// remembered frame. The returned hash is passed to remember after the frame
// was processed; it is nil when hashing failed.
func (m *frameMemory) lookup(img image.Image) (*goimagehash.ImageHash, bool) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		slog.Debug("Perceptual hash failed, treating frame as changed", "error", err)
		return nil, false
	}
	if m.hash == nil {
		return hash, false
	}
	dist, err := m.hash.Distance(hash)
	if err != nil {
		return hash, false
	}
	if dist <= m.maxDistance {
		slog.Debug("Reusing regions of unchanged frame", "distance", dist)
		return hash, true
	}
	return hash, false
}

// remember stores the result of a processed frame. The reference hash only
// advances on a changed frame so slow drift is still noticed.
func (m *frameMemory) remember(hash *goimagehash.ImageHash, regions []region.TextRegion, detected int) {
	if hash == nil {
		m.hash, m.regions, m.detected = nil, nil, 0
		return
	}
	m.hash = hash
	m.regions = region.Clone(regions)
	m.detected = detected
}
