package translation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTranslator records every batch it receives.
type recordingTranslator struct {
	mu      sync.Mutex
	table   map[string]string
	batches [][]string
	err     error
	short   bool
}

func (r *recordingTranslator) Prepare(context.Context) error { return nil }

func (r *recordingTranslator) TranslateBatch(_ context.Context, texts []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]string(nil), texts...))
	if r.err != nil {
		return nil, r.err
	}
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		out = append(out, r.table[t])
	}
	if r.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func regs(texts ...string) []region.TextRegion {
	out := make([]region.TextRegion, len(texts))
	for i, t := range texts {
		out[i] = region.TextRegion{Text: t, Confidence: 0.9, Box: region.NewBox(0.1, 0.1, 0.2, 0.1)}
	}
	return out
}

func newBatcher(t *testing.T) *Batcher {
	t.Helper()
	c, err := NewLRUCache(100)
	require.NoError(t, err)
	return NewBatcher(c)
}

func TestTranslateRoundTripUsesOneBatch(t *testing.T) {
	tr := &recordingTranslator{table: map[string]string{"你好世界": "Hello World"}}
	b := newBatcher(t)

	for range 2 {
		out, err := b.Translate(context.Background(), regs("你好世界"), tr)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "Hello World", out[0].TranslationText())
	}
	assert.Len(t, tr.batches, 1)

	st := b.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Batches)
	assert.Equal(t, 1, st.CacheSize)
}

func TestTranslateBulkCacheKeepsBatchAcrossClear(t *testing.T) {
	tr := &recordingTranslator{table: map[string]string{
		"甲甲": "A", "乙乙": "B", "丙丙": "C", "丁丁": "D",
	}}
	b := NewBatcher(NewBulkCache(3))
	ctx := context.Background()

	_, err := b.Translate(ctx, regs("甲甲", "乙乙"), tr)
	require.NoError(t, err)
	for range 2 {
		out, err := b.Translate(ctx, regs("丙丙", "丁丁"), tr)
		require.NoError(t, err)
		assert.Equal(t, "C", out[0].TranslationText())
		assert.Equal(t, "D", out[1].TranslationText())
	}

	assert.Equal(t, [][]string{{"甲甲", "乙乙"}, {"丙丙", "丁丁"}}, tr.batches)
	assert.Equal(t, 2, b.Cache().Len())
}

func TestTranslateDedupesAndKeepsOrder(t *testing.T) {
	tr := &recordingTranslator{table: map[string]string{"菜单": "Menu", "设置": "Settings", "退出": "Exit"}}
	b := newBatcher(t)
	b.Cache().Set("退出", "Exit")

	in := regs("菜单", " 设置 ", "退出", "菜单")
	out, err := b.Translate(context.Background(), in, tr)
	require.NoError(t, err)

	require.Len(t, tr.batches, 1)
	assert.Equal(t, []string{"菜单", "设置"}, tr.batches[0])

	want := []string{"Menu", "Settings", "Exit", "Menu"}
	for i, w := range want {
		assert.Equal(t, w, out[i].TranslationText())
		assert.Equal(t, in[i].Text, out[i].Text)
	}
	assert.Nil(t, in[0].Translation, "input regions must not be mutated")
}

func TestTranslateAllCachedSkipsTranslator(t *testing.T) {
	tr := &recordingTranslator{}
	b := newBatcher(t)
	b.Cache().Set("你好", "Hi")

	out, err := b.Translate(context.Background(), regs("你好", "你好"), tr)
	require.NoError(t, err)
	assert.Empty(t, tr.batches)
	assert.Equal(t, "Hi", out[1].TranslationText())
}

func TestTranslateEmptyInput(t *testing.T) {
	tr := &recordingTranslator{}
	out, err := newBatcher(t).Translate(context.Background(), nil, tr)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, tr.batches)
}

func TestTranslateFailureFailsWholeFrame(t *testing.T) {
	boom := errors.New("service down")
	tr := &recordingTranslator{err: boom}
	b := newBatcher(t)

	_, err := b.Translate(context.Background(), regs("你好", "世界"), tr)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, b.Cache().Len(), "failed batches are not cached")
}

func TestTranslateLengthMismatch(t *testing.T) {
	tr := &recordingTranslator{table: map[string]string{}, short: true}
	_, err := newBatcher(t).Translate(context.Background(), regs("你好", "世界"), tr)
	require.ErrorIs(t, err, ErrBatchMismatch)
}

func TestTranslateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := &recordingTranslator{}
	_, err := newBatcher(t).Translate(ctx, regs("你好"), tr)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tr.batches)
}

func TestTranslateNilTranslator(t *testing.T) {
	_, err := newBatcher(t).Translate(context.Background(), regs("你好"), nil)
	require.Error(t, err)
}

func TestTranslateCachesEmptyResults(t *testing.T) {
	tr := &recordingTranslator{table: map[string]string{}}
	b := newBatcher(t)
	out, err := b.Translate(context.Background(), regs("未知"), tr)
	require.NoError(t, err)
	require.NotNil(t, out[0].Translation)
	assert.False(t, out[0].HasTranslation())

	_, err = b.Translate(context.Background(), regs("未知"), tr)
	require.NoError(t, err)
	assert.Len(t, tr.batches, 1)
}
