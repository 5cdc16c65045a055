// Package translation batches text regions through a translation primitive
// and remembers prior results in a bounded cache.
package translation

import (
	"context"
	"errors"
)

// Translator is the translation primitive. TranslateBatch must return exactly
// one target string per source string, in the same order.
type Translator interface {
	// Prepare fails when the configured language pair is unavailable.
	Prepare(ctx context.Context) error
	TranslateBatch(ctx context.Context, texts []string) ([]string, error)
}

var (
	// ErrLanguagePairUnavailable is returned by Prepare when the engine cannot
	// translate between the configured languages.
	ErrLanguagePairUnavailable = errors.New("translation: language pair unavailable")
	// ErrBatchMismatch is returned when a batch response length differs from the request.
	ErrBatchMismatch = errors.New("translation: batch response length mismatch")
)
