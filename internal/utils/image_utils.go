package utils

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/MeKo-Tech/lingolens/internal/region"
)

// BoxToRect converts a normalized bottom-left-origin box into a pixel rectangle
// within bounds. The vertical axis is flipped because pixel rows grow downward.
// A box with positive extent on an axis covers at least one pixel on it.
func BoxToRect(b region.Box, bounds image.Rectangle) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	x0 := bounds.Min.X + int(math.Round(b.MinX*w))
	x1 := bounds.Min.X + int(math.Round(b.MaxX*w))
	y0 := bounds.Min.Y + int(math.Round((1-b.MaxY)*h))
	y1 := bounds.Min.Y + int(math.Round((1-b.MinY)*h))
	if b.MaxX > b.MinX {
		x0, x1 = atLeastOnePixel(x0, x1, bounds.Min.X, bounds.Max.X)
	}
	if b.MaxY > b.MinY {
		y0, y1 = atLeastOnePixel(y0, y1, bounds.Min.Y, bounds.Max.Y)
	}
	return image.Rect(x0, y0, x1, y1)
}

func atLeastOnePixel(lo, hi, minV, maxV int) (int, int) {
	if hi > lo || maxV-minV < 1 {
		return lo, hi
	}
	hi = lo + 1
	if hi > maxV {
		hi = maxV
		lo = hi - 1
	}
	return lo, hi
}

// RectToBox converts a pixel rectangle within bounds into a normalized
// bottom-left-origin box.
func RectToBox(r image.Rectangle, bounds image.Rectangle) region.Box {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	if w <= 0 || h <= 0 {
		return region.Box{}
	}
	return region.Box{
		MinX: float64(r.Min.X-bounds.Min.X) / w,
		MaxX: float64(r.Max.X-bounds.Min.X) / w,
		MinY: 1 - float64(r.Max.Y-bounds.Min.Y)/h,
		MaxY: 1 - float64(r.Min.Y-bounds.Min.Y)/h,
	}.Clamp()
}

// FillRect paints rect (clipped to dst) with a solid colour.
func FillRect(dst *image.RGBA, rect image.Rectangle, col color.Color) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(dst, rect, image.NewUniform(col), image.Point{}, draw.Src)
}

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBot, col)
		}
	}
	for t := range thickness {
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}
