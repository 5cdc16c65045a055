package detector

import "github.com/MeKo-Tech/lingolens/internal/region"

// MergeRegions appends each extra region to base unless an already kept region
// covers more than maxOverlap of the extra region's own area. The measure is
// asymmetric: base boxes always survive, and a small extra region inside a
// large base region is dropped. Extras accepted earlier count as kept for
// later extras.
func MergeRegions(base, extra []region.TextRegion, maxOverlap float64) []region.TextRegion {
	merged := make([]region.TextRegion, 0, len(base)+len(extra))
	merged = append(merged, base...)
	for _, cand := range extra {
		if overlapsAny(cand, merged, maxOverlap) {
			continue
		}
		merged = append(merged, cand)
	}
	return merged
}

func overlapsAny(cand region.TextRegion, kept []region.TextRegion, maxOverlap float64) bool {
	for _, k := range kept {
		if cand.Box.OverlapFraction(k.Box) > maxOverlap {
			return true
		}
	}
	return false
}
