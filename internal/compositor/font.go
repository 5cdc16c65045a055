package compositor

import (
	"fmt"
	"math"
	"sync"

	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// faceCache hands out Go Regular faces, one per rounded pixel size.
type faceCache struct {
	mu    sync.Mutex
	font  *opentype.Font
	faces map[int]font.Face
}

func newFaceCache() (*faceCache, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse embedded font: %w", err)
	}
	return &faceCache{font: f, faces: make(map[int]font.Face)}, nil
}

func (c *faceCache) face(size float64) (font.Face, error) {
	key := int(math.Round(size))
	if key < 1 {
		key = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    float64(key),
		DPI:     72, // one point per pixel
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face size %d: %w", key, err)
	}
	c.faces[key] = f
	return f, nil
}

func (c *faceCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.faces)
}

func (c *faceCache) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for k, f := range c.faces {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
		delete(c.faces, k)
	}
	return first
}

// FitFontSize returns the font size for text inside a box of the given pixel
// size. It starts at FontScale of the height and shrinks proportionally when
// the estimated width exceeds the padded box width, never below MinFontSize.
// Wide East Asian runes count as two character cells.
func FitFontSize(text string, boxW, boxH int, cfg Config) float64 {
	size := cfg.FontScale * float64(boxH)
	available := float64(boxW) * (1 - 2*cfg.PaddingFraction)
	cells := runewidth.StringWidth(text)
	estimated := float64(cells) * size * cfg.AvgCharWidth
	if estimated > available && estimated > 0 {
		size *= available / estimated
	}
	return math.Max(size, cfg.MinFontSize)
}
