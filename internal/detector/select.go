package detector

import (
	"strings"
	"unicode/utf8"

	"github.com/MeKo-Tech/lingolens/internal/region"
)

// BestCandidate picks the hypothesis with the highest confidence. Ties prefer
// the longer string since a shorter equal-score hypothesis is often a
// truncation. It returns false when there are no candidates.
func BestCandidate(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Confidence > best.Confidence ||
			(c.Confidence == best.Confidence && utf8.RuneCountInString(c.Text) > utf8.RuneCountInString(best.Text)) {
			best = c
		}
	}
	return best, true
}

// ToRegions converts observations into text regions, dropping any whose best
// candidate is below minConfidence, has empty text or carries an invalid box.
func ToRegions(obs []Observation, minConfidence float64) []region.TextRegion {
	out := make([]region.TextRegion, 0, len(obs))
	for _, o := range obs {
		best, ok := BestCandidate(o.Candidates)
		if !ok || best.Confidence < minConfidence {
			continue
		}
		if strings.TrimSpace(best.Text) == "" || !o.Box.Valid() {
			continue
		}
		out = append(out, region.TextRegion{
			Text:       best.Text,
			Box:        o.Box,
			Confidence: best.Confidence,
		})
	}
	return out
}
