package compositor

import (
	"errors"
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Config controls how translated text is painted over the source frame.
type Config struct {
	Margin          int        // Pixels the erase rectangle extends beyond the box (default: 2)
	SampleInset     int        // Pixels background samples sit inside the box edges (default: 2)
	FontScale       float64    // Initial font size as a share of box height (default: 0.8)
	MinFontSize     float64    // Smallest font size the fit step shrinks to (default: 8)
	PaddingFraction float64    // Horizontal padding per side as a share of box width (default: 0.05)
	AvgCharWidth    float64    // Estimated glyph advance as a share of font size (default: 0.55)
	Fallback        color.RGBA // Background when no sample lands inside the image (default: white)
	DebugOutline    bool       // Outline every drawn box, for tuning
}

// DefaultConfig returns the default compositor configuration.
func DefaultConfig() Config {
	return Config{
		Margin:          2,
		SampleInset:     2,
		FontScale:       0.8,
		MinFontSize:     8,
		PaddingFraction: 0.05,
		AvgCharWidth:    0.55,
		Fallback:        color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Validate checks the configuration for out-of-range values.
func (c Config) Validate() error {
	if c.Margin < 0 || c.SampleInset < 0 {
		return errors.New("margin and sample inset cannot be negative")
	}
	if c.FontScale <= 0 {
		return fmt.Errorf("font scale must be positive, got %v", c.FontScale)
	}
	if c.MinFontSize <= 0 {
		return fmt.Errorf("minimum font size must be positive, got %v", c.MinFontSize)
	}
	if c.PaddingFraction < 0 || c.PaddingFraction >= 0.5 {
		return fmt.Errorf("padding fraction must be in [0,0.5), got %v", c.PaddingFraction)
	}
	if c.AvgCharWidth <= 0 {
		return fmt.Errorf("average character width must be positive, got %v", c.AvgCharWidth)
	}
	return nil
}

// ParseColor parses a hex colour such as "#ffffff" or "#1e1e1e".
func ParseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
