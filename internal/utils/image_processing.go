package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints defines the frame sizes the pipeline accepts.
type ImageConstraints struct {
	MaxWidth  int
	MaxHeight int
	MinWidth  int
	MinHeight int
}

// DefaultImageConstraints returns constraints wide enough for 4K captures.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MaxWidth:  8192,
		MaxHeight: 8192,
		MinWidth:  1,
		MinHeight: 1,
	}
}

// ValidateImageConstraints checks img against the given constraints.
func ValidateImageConstraints(img image.Image, constraints ImageConstraints) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < constraints.MinWidth || h < constraints.MinHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err: fmt.Errorf("image dimensions %dx%d below minimum %dx%d",
				w, h, constraints.MinWidth, constraints.MinHeight),
		}
	}
	if w > constraints.MaxWidth || h > constraints.MaxHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err: fmt.Errorf("image dimensions %dx%d exceed maximum %dx%d",
				w, h, constraints.MaxWidth, constraints.MaxHeight),
		}
	}
	return nil
}

// CloneRGBA copies img into a new RGBA whose bounds start at the origin.
func CloneRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Luminance returns the perceived brightness of c in [0, 1] using the
// 0.299/0.587/0.114 weights.
func Luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
}

// EnhanceForRecognition boosts contrast by contrastPct percent and sharpens the
// luminance channel with an unsharp mask of the given sigma. The image is not
// binarized. A non-positive sigma skips sharpening.
func EnhanceForRecognition(img image.Image, contrastPct, sigma float64) (*image.NRGBA, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "enhance", Err: errors.New("input image is nil")}
	}
	out := imaging.AdjustContrast(img, contrastPct)
	if sigma <= 0 {
		return out, nil
	}
	blurred := imaging.Blur(out, sigma)
	sharpenLuminance(out, blurred)
	return out, nil
}

// sharpenLuminance adds the luminance difference between src and blurred to
// every colour channel of src, leaving hue mostly untouched.
func sharpenLuminance(src, blurred *image.NRGBA) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+b.Dx()*4]
		brow := blurred.Pix[y*blurred.Stride : y*blurred.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			l := 0.299*float64(row[x]) + 0.587*float64(row[x+1]) + 0.114*float64(row[x+2])
			lb := 0.299*float64(brow[x]) + 0.587*float64(brow[x+1]) + 0.114*float64(brow[x+2])
			d := l - lb
			row[x] = clampByte(float64(row[x]) + d)
			row[x+1] = clampByte(float64(row[x+1]) + d)
			row[x+2] = clampByte(float64(row[x+2]) + d)
		}
	}
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// Upscale enlarges img by factor using Catmull-Rom resampling. A factor of 1
// or less returns img unchanged.
func Upscale(img image.Image, factor float64) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "upscale", Err: errors.New("input image is nil")}
	}
	if factor <= 1 {
		return img, nil
	}
	b := img.Bounds()
	w := int(float64(b.Dx())*factor + 0.5)
	h := int(float64(b.Dy())*factor + 0.5)
	return imaging.Resize(img, w, h, imaging.CatmullRom), nil
}

// InvertLuminance returns the colour-inverted copy of img, turning light text
// on dark backgrounds into dark text on light ones.
func InvertLuminance(img image.Image) *image.NRGBA {
	return imaging.Invert(img)
}
