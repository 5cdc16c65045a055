// Package region defines the text regions that flow through the translation
// pipeline and the normalized geometry they are described with.
package region

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Box is an axis-aligned rectangle in normalized coordinates (0.0-1.0 on each
// axis). The origin is the bottom-left corner of the image and Y grows upward,
// matching the convention of the recognition backends. Boxes are independent of
// the pixel size of the image they were detected in.
type Box struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// NewBox builds a Box from its bottom-left corner and size.
func NewBox(x, y, w, h float64) Box {
	return Box{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

// Width returns the box width.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the box height.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Valid reports whether width and height are both in (0, 1].
func (b Box) Valid() bool {
	w, h := b.Width(), b.Height()
	return w > 0 && w <= 1 && h > 0 && h <= 1
}

// Clamp returns the box clipped to the unit square.
func (b Box) Clamp() Box {
	return Box{
		MinX: clamp01(b.MinX),
		MinY: clamp01(b.MinY),
		MaxX: clamp01(b.MaxX),
		MaxY: clamp01(b.MaxY),
	}
}

// Intersection returns the overlapping rectangle of b and o and whether it is non-empty.
func (b Box) Intersection(o Box) (Box, bool) {
	r := Box{
		MinX: math.Max(b.MinX, o.MinX),
		MinY: math.Max(b.MinY, o.MinY),
		MaxX: math.Min(b.MaxX, o.MaxX),
		MaxY: math.Min(b.MaxY, o.MaxY),
	}
	if r.MinX >= r.MaxX || r.MinY >= r.MaxY {
		return Box{}, false
	}
	return r, true
}

// OverlapFraction returns the share of b's own area covered by o.
// The measure is asymmetric: b.OverlapFraction(o) != o.OverlapFraction(b).
func (b Box) OverlapFraction(o Box) float64 {
	area := b.Area()
	if area <= 0 {
		return 0
	}
	inter, ok := b.Intersection(o)
	if !ok {
		return 0
	}
	return inter.Area() / area
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TextRegion is one detected piece of source-language text.
type TextRegion struct {
	Text        string  `json:"text"`
	Box         Box     `json:"box"`
	Confidence  float64 `json:"confidence"`
	Translation *string `json:"translation,omitempty"`
}

// Trimmed returns the text with surrounding whitespace removed. Cache keys and
// filter rules operate on this form.
func (r TextRegion) Trimmed() string {
	return strings.TrimSpace(r.Text)
}

// RuneCount returns the number of runes in the trimmed text.
func (r TextRegion) RuneCount() int {
	return utf8.RuneCountInString(r.Trimmed())
}

// HasTranslation reports whether the region carries a non-empty translation.
func (r TextRegion) HasTranslation() bool {
	return r.Translation != nil && *r.Translation != ""
}

// TranslationText returns the translation or "" when absent.
func (r TextRegion) TranslationText() string {
	if r.Translation == nil {
		return ""
	}
	return *r.Translation
}

// WithTranslation returns a copy of r carrying the given translation.
func (r TextRegion) WithTranslation(s string) TextRegion {
	t := s
	r.Translation = &t
	return r
}

// Clone deep-copies regions so the result shares no pointers with the input.
func Clone(regions []TextRegion) []TextRegion {
	if regions == nil {
		return nil
	}
	out := make([]TextRegion, len(regions))
	for i, r := range regions {
		if r.Translation != nil {
			t := *r.Translation
			r.Translation = &t
		}
		out[i] = r
	}
	return out
}
