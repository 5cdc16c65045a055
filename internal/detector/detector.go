package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// ErrNilRecognizer is returned by New when no recognition primitive is given.
var ErrNilRecognizer = errors.New("detector: recognizer cannot be nil")

// Detector locates text regions with two recognition passes over a
// preprocessed frame: one as-is and one luminance-inverted for light-on-dark text.
type Detector struct {
	config     Config
	recognizer Recognizer
	mu         sync.RWMutex
}

// New creates a detector around the given recognition primitive.
func New(config Config, rec Recognizer) (*Detector, error) {
	if rec == nil {
		return nil, ErrNilRecognizer
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}
	slog.Debug("Initializing detector",
		"min_confidence", config.MinConfidence,
		"upscale", config.UpscaleFactor,
		"inverted_pass", config.InvertedPass,
		"hints", config.LanguageHints)
	return &Detector{config: config, recognizer: rec}, nil
}

// GetConfig returns a copy of the detector's configuration.
func (d *Detector) GetConfig() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// PassError wraps a failure of a single recognition pass.
type PassError struct {
	Pass string
	Err  error
}

func (e *PassError) Error() string { return fmt.Sprintf("recognition pass %s failed: %v", e.Pass, e.Err) }

func (e *PassError) Unwrap() error { return e.Err }

type passResult struct {
	regions []region.TextRegion
	err     error
}

// Detect runs preprocessing and both recognition passes over img and returns
// the merged regions. A failure of the primary pass fails the frame; a failure
// of the inverted pass is logged and treated as no regions. Output order is not
// significant.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]region.TextRegion, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "detect", Err: errors.New("input image is nil")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := d.GetConfig()
	start := time.Now()

	prepared, err := Preprocess(img, cfg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var primary, inverted passResult
	var wg conc.WaitGroup
	wg.Go(func() {
		primary = d.runPass(ctx, prepared, cfg)
	})
	if cfg.InvertedPass {
		wg.Go(func() {
			inverted = d.runPass(ctx, utils.InvertLuminance(prepared), cfg)
		})
	}
	wg.Wait()

	if primary.err != nil {
		return nil, &PassError{Pass: "primary", Err: primary.err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if inverted.err != nil {
		slog.Warn("Inverted recognition pass failed, continuing with primary pass only", "error", inverted.err)
		inverted.regions = nil
	}

	merged := MergeRegions(primary.regions, inverted.regions, cfg.MergeOverlap)
	slog.Debug("Detection completed",
		"primary", len(primary.regions),
		"inverted", len(inverted.regions),
		"merged", len(merged),
		"duration", time.Since(start))
	return merged, nil
}

// runPass turns a recognizer panic into that pass's error.
func (d *Detector) runPass(ctx context.Context, img image.Image, cfg Config) passResult {
	var (
		obs []Observation
		err error
		pc  panics.Catcher
	)
	pc.Try(func() {
		obs, err = d.recognizer.Recognize(ctx, img, cfg.LanguageHints)
	})
	if rec := pc.Recovered(); rec != nil {
		return passResult{err: rec.AsError()}
	}
	if err != nil {
		return passResult{err: err}
	}
	return passResult{regions: ToRegions(obs, cfg.MinConfidence)}
}
