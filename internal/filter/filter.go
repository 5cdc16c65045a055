// Package filter decides which detected regions are worth translating using
// cheap textual heuristics. Everything here is pure and free of I/O.
package filter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MeKo-Tech/lingolens/internal/region"
	"golang.org/x/text/unicode/norm"
)

// Config holds the filter thresholds.
type Config struct {
	MinConfidence  float64 // Regions below this confidence are skipped (default: 0.5)
	LatinThreshold float64 // Share of Latin letters above which text counts as already translated (default: 0.7)
}

// DefaultConfig returns the default filter thresholds.
func DefaultConfig() Config {
	return Config{MinConfidence: 0.5, LatinThreshold: 0.7}
}

// Validate checks both thresholds are within [0,1].
func (c Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1], got %v", c.MinConfidence)
	}
	if c.LatinThreshold < 0 || c.LatinThreshold > 1 {
		return fmt.Errorf("latin threshold must be in [0,1], got %v", c.LatinThreshold)
	}
	return nil
}

// Reason names the rule that decided a region's fate.
type Reason string

const (
	ReasonEmpty       Reason = "empty"
	ReasonSingleGlyph Reason = "single_glyph"
	ReasonLowScore    Reason = "low_confidence"
	ReasonNumeric     Reason = "numeric"
	ReasonLatin       Reason = "latin"
	ReasonAccepted    Reason = "accepted"
)

// Filter classifies regions as translation-worthy.
type Filter struct {
	config Config
}

// New returns a filter with the given thresholds.
func New(config Config) *Filter {
	return &Filter{config: config}
}

// Classify applies the rules in order and returns the first that matches.
func (f *Filter) Classify(r region.TextRegion) Reason {
	text := strings.TrimSpace(r.Text)
	switch {
	case text == "":
		return ReasonEmpty
	case utf8.RuneCountInString(text) == 1:
		return ReasonSingleGlyph
	case r.Confidence < f.config.MinConfidence:
		return ReasonLowScore
	}

	// Full-width digits and Latin letters fold to their ASCII forms.
	folded := norm.NFKC.String(text)
	if IsNumeric(folded) {
		return ReasonNumeric
	}
	if share, letters := LatinShare(folded); letters > 0 && share > f.config.LatinThreshold {
		return ReasonLatin
	}
	return ReasonAccepted
}

// ShouldTranslate reports whether r should be sent for translation.
func (f *Filter) ShouldTranslate(r region.TextRegion) bool {
	return f.Classify(r) == ReasonAccepted
}

// Filter returns the translation-worthy regions in their original order.
func (f *Filter) Filter(regions []region.TextRegion) []region.TextRegion {
	out := make([]region.TextRegion, 0, len(regions))
	for _, r := range regions {
		if f.ShouldTranslate(r) {
			out = append(out, r)
		}
	}
	return out
}
