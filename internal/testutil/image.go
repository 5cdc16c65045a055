package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common frame dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common test frame sizes.
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
	LargeSize  = ImageSize{1280, 720}
)

// Ink is the colour of synthetic glyph blocks. It is neither black nor white
// so tests can tell original glyphs apart from rendered overlay text.
var Ink = color.RGBA{R: 200, G: 20, B: 20, A: 255}

// CreateTestImage creates a frame filled with a single colour.
func CreateTestImage(width, height int, background color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)
	return img
}

// GlyphFrame creates a frame with an Ink block standing in for text inside
// each normalized box. The block is inset so the box edges keep the background.
func GlyphFrame(size ImageSize, background color.Color, boxes ...region.Box) *image.RGBA {
	img := CreateTestImage(size.Width, size.Height, background)
	for _, b := range boxes {
		rect := utils.BoxToRect(b, img.Bounds())
		inset := min(rect.Dx(), rect.Dy()) / 4
		utils.FillRect(img, rect.Inset(inset), Ink)
	}
	return img
}

// CreateTestImageWithText renders a Latin label with the basic bitmap font,
// centered on a white frame.
func CreateTestImageWithText(text string, width, height int) *image.RGBA {
	img := CreateTestImage(width, height, color.White)
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := face.Metrics().Height.Ceil()
	drawer.Dot = fixed.P((width-textWidth)/2, (height+textHeight)/2)
	drawer.DrawString(text)
	return img
}

// SaveImage writes img as PNG to path, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	require.NoError(t, utils.SavePNG(path, img))
}

// LoadImage reads an image file.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()
	img, _, err := utils.LoadImage(path)
	require.NoError(t, err)
	return img
}

// WriteFrames saves frames as numbered PNGs in a fresh temp directory and
// returns it, ready for a directory source.
func WriteFrames(t *testing.T, frames ...image.Image) string {
	t.Helper()
	dir := t.TempDir()
	for i, f := range frames {
		SaveImage(t, f, filepath.Join(dir, frameName(i)))
	}
	return dir
}

func frameName(i int) string {
	return "frame_" + string(rune('a'+i/26)) + string(rune('a'+i%26)) + ".png"
}

// Identical reports whether two images have the same bounds and pixels.
func Identical(a, b image.Image) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	return DiffCount(a, b, a.Bounds()) == 0
}

// DiffCount returns how many pixels inside rect differ between a and b.
func DiffCount(a, b image.Image, rect image.Rectangle) int {
	rect = rect.Intersect(a.Bounds()).Intersect(b.Bounds())
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r1, g1, b1, a1 := a.At(x, y).RGBA()
			r2, g2, b2, a2 := b.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				n++
			}
		}
	}
	return n
}

// CountColor returns how many pixels of img equal c.
func CountColor(img image.Image, c color.Color) int {
	cr, cg, cb, ca := c.RGBA()
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if r == cr && g == cg && bl == cb && a == ca {
				n++
			}
		}
	}
	return n
}
