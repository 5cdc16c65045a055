package compositor

import (
	"image"
	"image/color"

	"github.com/MeKo-Tech/lingolens/internal/utils"
)

var (
	black = color.RGBA{A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// SamplePoints returns the four edge midpoints of rect moved inset pixels
// towards its centre: left, right, top and bottom. Edges are sampled rather
// than the centre so glyph strokes do not bias the estimate.
func SamplePoints(rect image.Rectangle, inset int) []image.Point {
	midX := (rect.Min.X + rect.Max.X) / 2
	midY := (rect.Min.Y + rect.Max.Y) / 2
	return []image.Point{
		{X: rect.Min.X + inset, Y: midY},
		{X: rect.Max.X - 1 - inset, Y: midY},
		{X: midX, Y: rect.Min.Y + inset},
		{X: midX, Y: rect.Max.Y - 1 - inset},
	}
}

// EstimateBackground averages the colours at the in-bounds sample points of
// rect. It returns fallback when none of them lies inside img.
func EstimateBackground(img image.Image, rect image.Rectangle, inset int, fallback color.RGBA) color.RGBA {
	bounds := img.Bounds()
	var r, g, b, n uint32
	for _, p := range SamplePoints(rect, inset) {
		if !p.In(bounds) {
			continue
		}
		c := color.RGBAModel.Convert(img.At(p.X, p.Y)).(color.RGBA)
		r += uint32(c.R)
		g += uint32(c.G)
		b += uint32(c.B)
		n++
	}
	if n == 0 {
		return fallback
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: 255}
}

// TextColorFor picks black on light backgrounds and white on dark ones.
func TextColorFor(bg color.Color) color.RGBA {
	if utils.Luminance(bg) > 0.5 {
		return black
	}
	return white
}
