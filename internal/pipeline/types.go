package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/capture"
	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/MeKo-Tech/lingolens/internal/translation"
	"github.com/MeKo-Tech/lingolens/internal/utils"
)

// TranslatedFrame is the result of processing one captured frame. It is not
// modified after being emitted.
type TranslatedFrame struct {
	ID                 string              `json:"id"`
	Image              *image.RGBA         `json:"-"`
	Regions            []region.TextRegion `json:"regions"`
	Detected           int                 `json:"detected"`
	CaptureTime        time.Time           `json:"capture_time"`
	ProcessingDuration time.Duration       `json:"processing_duration"`
	ContentRect        image.Rectangle     `json:"-"`
	Source             string              `json:"source,omitempty"`
	Reused             bool                `json:"reused"` // regions came from the previous unchanged frame
}

// TranslatedCount returns how many regions carry a non-empty translation.
func (f TranslatedFrame) TranslatedCount() int {
	n := 0
	for _, r := range f.Regions {
		if r.HasTranslation() {
			n++
		}
	}
	return n
}

// Detector finds text regions in a frame.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]region.TextRegion, error)
}

// RegionFilter selects the regions worth translating.
type RegionFilter interface {
	Filter(regions []region.TextRegion) []region.TextRegion
}

// Translator fills translations for a frame's regions.
type Translator interface {
	Translate(ctx context.Context, regions []region.TextRegion, tr translation.Translator) ([]region.TextRegion, error)
}

// Renderer composites translated regions onto a frame.
type Renderer interface {
	Render(regions []region.TextRegion, src image.Image) (*image.RGBA, error)
}

// Deps are the stages and the frame source the orchestrator drives.
type Deps struct {
	Detector   Detector
	Filter     RegionFilter
	Batcher    Translator
	Compositor Renderer
	Source     capture.Source
}

// Config holds orchestrator settings.
type Config struct {
	StatsWindow     int                    // Processing durations in the rolling average (default: 30)
	BufferCapacity  int                    // Frames held between source and loop, oldest dropped first (default: 2)
	OutputBuffer    int                    // Translated frames buffered for the consumer (default: 1)
	SkipUnchanged   bool                   // Reuse regions when a frame looks like the previous one
	MaxHashDistance int                    // Perceptual hash distance still treated as unchanged (default: 4)
	Constraints     utils.ImageConstraints // Accepted frame sizes
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		StatsWindow:     30,
		BufferCapacity:  capture.DefaultRingCapacity,
		OutputBuffer:    1,
		SkipUnchanged:   false,
		MaxHashDistance: 4,
		Constraints:     utils.DefaultImageConstraints(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StatsWindow <= 0 {
		c.StatsWindow = d.StatsWindow
	}
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = d.BufferCapacity
	}
	if c.OutputBuffer < 0 {
		c.OutputBuffer = 0
	}
	if c.MaxHashDistance < 0 {
		c.MaxHashDistance = 0
	}
	if c.Constraints == (utils.ImageConstraints{}) {
		c.Constraints = d.Constraints
	}
	return c
}
