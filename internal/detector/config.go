package detector

import (
	"errors"
	"fmt"
)

// Config holds detector configuration.
type Config struct {
	MinConfidence float64  // Observations whose best candidate scores below this are dropped (default: 0.3)
	ContrastBoost float64  // Contrast adjustment in percent before recognition (default: 20)
	SharpenSigma  float64  // Gaussian sigma of the luminance unsharp mask, 0 disables (default: 1.0)
	UpscaleFactor float64  // Smooth upscale applied before recognition (default: 2)
	MergeOverlap  float64  // Max share of a new region's area that may overlap a kept region (default: 0.5)
	LanguageHints []string // Recognition language hints (default: zh-Hans)
	InvertedPass  bool     // Run the second pass on the luminance-inverted image (default: true)

	// EngineVariables are passed verbatim to the recognition backend when it
	// supports tunables (tesseract SetVariable).
	EngineVariables map[string]string
}

// DefaultConfig returns a default detector configuration.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.3,
		ContrastBoost: 20,
		SharpenSigma:  1.0,
		UpscaleFactor: 2,
		MergeOverlap:  0.5,
		LanguageHints: []string{"zh-Hans"},
		InvertedPass:  true,
	}
}

// Validate checks the configuration for out-of-range values.
func (c Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1], got %v", c.MinConfidence)
	}
	if c.ContrastBoost < -100 || c.ContrastBoost > 100 {
		return fmt.Errorf("contrast boost must be in [-100,100], got %v", c.ContrastBoost)
	}
	if c.SharpenSigma < 0 {
		return errors.New("sharpen sigma cannot be negative")
	}
	if c.UpscaleFactor < 1 || c.UpscaleFactor > 4 {
		return fmt.Errorf("upscale factor must be in [1,4], got %v", c.UpscaleFactor)
	}
	if c.MergeOverlap <= 0 || c.MergeOverlap > 1 {
		return fmt.Errorf("merge overlap must be in (0,1], got %v", c.MergeOverlap)
	}
	return nil
}
