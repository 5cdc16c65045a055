package detector

import (
	"context"
	"image"

	"github.com/MeKo-Tech/lingolens/internal/region"
)

// Candidate is one text hypothesis offered by the recognition engine for an
// observed region.
type Candidate struct {
	Text       string
	Confidence float64
}

// Observation is a region the recognition engine found, with its ranked or
// unranked hypotheses. Box is normalized with a bottom-left origin.
type Observation struct {
	Candidates []Candidate
	Box        region.Box
}

// Recognizer is the text-recognition primitive the Detector runs each pass with.
// Implementations must honour ctx and may fail with a recoverable error.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, languageHints []string) ([]Observation, error)
}

// RecognizerFunc adapts a plain function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, img image.Image, languageHints []string) ([]Observation, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image, hints []string) ([]Observation, error) {
	return f(ctx, img, hints)
}

// NewDefaultRecognizer returns the recognizer linked into this build.
func NewDefaultRecognizer(cfg Config) (Recognizer, error) {
	return newDefaultBackend(cfg)
}
