//go:build tesseract

package detector

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/otiai10/gosseract/v2"
)

// ErrNoBackend is never returned by tesseract builds; it exists so callers can
// compare against it regardless of build tags.
var ErrNoBackend = errors.New("detector: no recognition backend linked")

// newDefaultBackend returns the Tesseract-backed recognizer when the build tag is enabled.
func newDefaultBackend(cfg Config) (Recognizer, error) {
	return &tesseractBackend{
		clientFactory: gosseract.NewClient,
		level:         gosseract.RIL_TEXTLINE,
		variables:     cfg.EngineVariables,
	}, nil
}

type tesseractBackend struct {
	clientFactory func() *gosseract.Client
	level         gosseract.PageIteratorLevel
	variables     map[string]string
}

func (b *tesseractBackend) Recognize(ctx context.Context, img image.Image, hints []string) ([]Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := utils.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	c := b.clientFactory()
	defer func() { _ = c.Close() }()

	if langs := TesseractLanguages(hints); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	for k, v := range b.variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return nil, fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(b.level)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	obs := make([]Observation, 0, len(boxes))
	for _, bb := range boxes {
		obs = append(obs, Observation{
			Candidates: []Candidate{{Text: bb.Word, Confidence: bb.Confidence / 100.0}},
			Box:        utils.RectToBox(bb.Box.Add(bounds.Min), bounds),
		})
	}
	return obs, nil
}
