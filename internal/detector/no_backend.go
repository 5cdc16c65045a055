//go:build !tesseract

package detector

import (
	"context"
	"errors"
	"image"
)

// ErrNoBackend is returned when no recognition engine is linked into the binary.
var ErrNoBackend = errors.New("detector: no recognition backend linked; build with -tags=tesseract or inject a Recognizer")

type defaultBackend struct{}

func newDefaultBackend(_ Config) (Recognizer, error) { return &defaultBackend{}, nil }

func (d *defaultBackend) Recognize(_ context.Context, _ image.Image, _ []string) ([]Observation, error) {
	return nil, ErrNoBackend
}
