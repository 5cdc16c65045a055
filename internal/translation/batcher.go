package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/MeKo-Tech/lingolens/internal/region"
)

// BatcherStats is a snapshot of the batcher counters.
type BatcherStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Batches   int64 `json:"batches"`
	CacheSize int   `json:"cache_size"`
}

// Batcher fills region translations from the cache and sends every miss to the
// translator in a single batch call.
type Batcher struct {
	cache   Cache
	hits    atomic.Int64
	misses  atomic.Int64
	batches atomic.Int64
}

// NewBatcher creates a batcher around cache.
func NewBatcher(cache Cache) *Batcher {
	return &Batcher{cache: cache}
}

// Cache returns the underlying cache.
func (b *Batcher) Cache() Cache { return b.cache }

// Stats returns the current counters.
func (b *Batcher) Stats() BatcherStats {
	return BatcherStats{
		Hits:      b.hits.Load(),
		Misses:    b.misses.Load(),
		Batches:   b.batches.Load(),
		CacheSize: b.cache.Len(),
	}
}

// Translate returns copies of regions with Translation set, in input order.
// Regions whose trimmed text is empty are returned untouched. A translator
// failure fails the whole call and nothing is written to the cache.
func (b *Batcher) Translate(ctx context.Context, regions []region.TextRegion, tr Translator) ([]region.TextRegion, error) {
	if tr == nil {
		return nil, errors.New("translation: translator cannot be nil")
	}
	out := region.Clone(regions)
	if len(out) == 0 {
		return out, nil
	}

	var missing []string
	pending := make(map[string][]int)
	for i := range out {
		key := out[i].Trimmed()
		if key == "" {
			continue
		}
		if v, ok := b.cache.Get(key); ok {
			b.hits.Add(1)
			out[i] = out[i].WithTranslation(v)
			continue
		}
		b.misses.Add(1)
		if _, seen := pending[key]; !seen {
			missing = append(missing, key)
		}
		pending[key] = append(pending[key], i)
	}

	if len(missing) == 0 {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.batches.Add(1)
	translated, err := tr.TranslateBatch(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("translate batch of %d: %w", len(missing), err)
	}
	if len(translated) != len(missing) {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrBatchMismatch, len(missing), len(translated))
	}

	fresh := make(map[string]string, len(missing))
	for j, src := range missing {
		fresh[src] = translated[j]
		for _, i := range pending[src] {
			out[i] = out[i].WithTranslation(translated[j])
		}
	}
	b.cache.SetAll(fresh)
	slog.Debug("Translated batch", "unique", len(missing), "regions", len(out), "cache_size", b.cache.Len())
	return out, nil
}
