// Package compositor paints translated text over a copy of a captured frame,
// erasing the original glyphs with an estimate of the surrounding background.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Compositor renders translated regions. It is safe for concurrent use; calls
// are serialized because font faces keep per-face scratch buffers.
type Compositor struct {
	config Config
	faces  *faceCache
	mu     sync.Mutex
}

// New creates a compositor.
func New(config Config) (*Compositor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compositor config: %w", err)
	}
	faces, err := newFaceCache()
	if err != nil {
		return nil, err
	}
	return &Compositor{config: config, faces: faces}, nil
}

// Close releases cached font faces.
func (c *Compositor) Close() error {
	return c.faces.close()
}

// Render returns a copy of src with every region that carries a non-empty
// translation painted over. Other regions are ignored, so a frame without
// translations yields a pixel-identical copy. The output always has the
// dimensions of src.
func (c *Compositor) Render(regions []region.TextRegion, src image.Image) (*image.RGBA, error) {
	if src == nil {
		return nil, &utils.ImageProcessingError{Operation: "render", Err: errors.New("source image is nil")}
	}
	dst := utils.CloneRGBA(src)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range regions {
		if !r.HasTranslation() || !r.Box.Valid() {
			continue
		}
		if err := c.drawRegion(dst, r); err != nil {
			return nil, &utils.ImageProcessingError{Operation: "render", Err: err}
		}
	}
	return dst, nil
}

func (c *Compositor) drawRegion(dst *image.RGBA, r region.TextRegion) error {
	rect := utils.BoxToRect(r.Box, dst.Bounds())
	if rect.Empty() {
		return nil
	}

	// Sampling reads dst before this region is erased; earlier regions may
	// already be painted, which matches what the viewer sees.
	bg := EstimateBackground(dst, rect, c.config.SampleInset, c.config.Fallback)
	utils.FillRect(dst, rect.Inset(-c.config.Margin), bg)

	text := r.TranslationText()
	size := FitFontSize(text, rect.Dx(), rect.Dy(), c.config)
	face, err := c.faces.face(size)
	if err != nil {
		return err
	}
	drawCentered(dst, face, text, rect, TextColorFor(bg))

	if c.config.DebugOutline {
		utils.DrawRect(dst, rect, color.RGBA{R: 255, A: 255}, 1)
	}
	return nil
}

// drawCentered draws text centred in rect. Overflowing text is clipped only by
// the image bounds.
func drawCentered(dst *image.RGBA, face font.Face, text string, rect image.Rectangle, col color.Color) {
	m := face.Metrics()
	width := font.MeasureString(face, text)
	textH := m.Ascent + m.Descent

	x := fixed.I(rect.Min.X) + (fixed.I(rect.Dx())-width)/2
	y := fixed.I(rect.Min.Y) + (fixed.I(rect.Dy())-textH)/2 + m.Ascent

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: x, Y: y},
	}
	d.DrawString(text)
}
