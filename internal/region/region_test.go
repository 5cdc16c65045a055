package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxGeometry(t *testing.T) {
	b := NewBox(0.2, 0.3, 0.4, 0.5)
	assert.InDelta(t, 0.4, b.Width(), 1e-9)
	assert.InDelta(t, 0.5, b.Height(), 1e-9)
	assert.InDelta(t, 0.2, b.Area(), 1e-9)
	assert.True(t, b.Valid())
}

func TestBoxValid(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		want bool
	}{
		{"unit square", NewBox(0, 0, 1, 1), true},
		{"zero width", NewBox(0.1, 0.1, 0, 0.2), false},
		{"negative height", Box{MinX: 0, MinY: 0.5, MaxX: 0.2, MaxY: 0.1}, false},
		{"too wide", NewBox(0, 0, 1.2, 0.1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.box.Valid())
		})
	}
}

func TestIntersection(t *testing.T) {
	a := NewBox(0, 0, 0.5, 0.5)
	b := NewBox(0.25, 0.25, 0.5, 0.5)
	inter, ok := a.Intersection(b)
	require.True(t, ok)
	assert.InDelta(t, 0.0625, inter.Area(), 1e-9)

	_, ok = a.Intersection(NewBox(0.6, 0.6, 0.1, 0.1))
	assert.False(t, ok)

	// Touching edges do not intersect.
	_, ok = a.Intersection(NewBox(0.5, 0, 0.1, 0.1))
	assert.False(t, ok)
}

func TestOverlapFractionIsAsymmetric(t *testing.T) {
	big := NewBox(0, 0, 0.8, 0.8)
	small := NewBox(0.1, 0.1, 0.2, 0.2)

	assert.InDelta(t, 1.0, small.OverlapFraction(big), 1e-9)
	assert.InDelta(t, 0.0625, big.OverlapFraction(small), 1e-9)
	assert.Zero(t, Box{}.OverlapFraction(big))
}

func TestClamp(t *testing.T) {
	b := Box{MinX: -0.1, MinY: 0.2, MaxX: 1.3, MaxY: 0.9}.Clamp()
	assert.Equal(t, Box{MinX: 0, MinY: 0.2, MaxX: 1, MaxY: 0.9}, b)
}

func TestTextRegionTranslation(t *testing.T) {
	r := TextRegion{Text: "  你好  ", Confidence: 0.9}
	assert.Equal(t, "你好", r.Trimmed())
	assert.Equal(t, 2, r.RuneCount())
	assert.False(t, r.HasTranslation())
	assert.Empty(t, r.TranslationText())

	empty := r.WithTranslation("")
	assert.False(t, empty.HasTranslation())
	require.NotNil(t, empty.Translation)

	tr := r.WithTranslation("Hello")
	assert.True(t, tr.HasTranslation())
	assert.Equal(t, "Hello", tr.TranslationText())
	assert.Nil(t, r.Translation, "original must not be mutated")
}

func TestCloneDetachesTranslations(t *testing.T) {
	in := []TextRegion{{Text: "a"}, {Text: "b"}}
	in[1] = in[1].WithTranslation("B")

	out := Clone(in)
	require.Len(t, out, 2)
	*out[1].Translation = "changed"
	assert.Equal(t, "B", *in[1].Translation)
	assert.Nil(t, Clone(nil))
}
