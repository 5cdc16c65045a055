package filter

import (
	"testing"

	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reg(text string, conf float64) region.TextRegion {
	return region.TextRegion{Text: text, Confidence: conf, Box: region.NewBox(0.1, 0.1, 0.2, 0.1)}
}

func TestClassify(t *testing.T) {
	f := New(DefaultConfig())
	tests := []struct {
		name string
		text string
		conf float64
		want Reason
	}{
		{"empty", "", 0.99, ReasonEmpty},
		{"whitespace", "  \t ", 0.99, ReasonEmpty},
		{"single glyph", "好", 0.99, ReasonSingleGlyph},
		{"single glyph padded", "  好 ", 0.99, ReasonSingleGlyph},
		{"single glyph beats low confidence", "好", 0.1, ReasonSingleGlyph},
		{"low confidence", "你好", 0.49, ReasonLowScore},
		{"at threshold accepted", "你好", 0.5, ReasonAccepted},
		{"integer", "12345", 0.99, ReasonNumeric},
		{"decimal percentage", "-12.5 %", 0.9, ReasonNumeric},
		{"thousands", "+1,234", 0.9, ReasonNumeric},
		{"full-width digits", "１２３", 0.9, ReasonNumeric},
		{"punctuation only is not numeric", "..", 0.9, ReasonAccepted},
		{"english", "Settings", 0.9, ReasonLatin},
		{"full-width latin", "Ｓｅｔｔｉｎｇｓ", 0.9, ReasonLatin},
		{"accented latin", "Café société", 0.9, ReasonLatin},
		{"chinese", "你好世界", 0.95, ReasonAccepted},
		{"mixed mostly chinese", "MP3播放器", 0.9, ReasonAccepted},
		{"mixed mostly latin", "USB接口Type", 0.9, ReasonLatin},
		{"price with currency glyph", "¥100元", 0.9, ReasonAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Classify(reg(tt.text, tt.conf)))
			assert.Equal(t, tt.want == ReasonAccepted, f.ShouldTranslate(reg(tt.text, tt.conf)))
		})
	}
}

func TestNumericExcludedRegardlessOfConfidence(t *testing.T) {
	f := New(DefaultConfig())
	assert.False(t, f.ShouldTranslate(reg("12345", 0.99)))
	assert.False(t, f.ShouldTranslate(reg("12345", 1.0)))
}

func TestLatinThresholdIsStrict(t *testing.T) {
	f := New(DefaultConfig())
	// 7 of 10 letters Latin is exactly 70% and therefore still translated.
	assert.True(t, f.ShouldTranslate(reg("abcdefg你好世", 0.9)))
	// 8 of 10 is above the threshold.
	assert.False(t, f.ShouldTranslate(reg("abcdefgh你好", 0.9)))
}

func TestFilterPreservesOrder(t *testing.T) {
	f := New(DefaultConfig())
	in := []region.TextRegion{
		reg("你好", 0.9),
		reg("42", 0.9),
		reg("世界", 0.8),
		reg("OK", 0.9),
		reg("再见", 0.2),
		reg("谢谢", 0.7),
	}
	out := f.Filter(in)
	require.Len(t, out, 3)
	assert.Equal(t, "你好", out[0].Text)
	assert.Equal(t, "世界", out[1].Text)
	assert.Equal(t, "谢谢", out[2].Text)

	assert.Empty(t, f.Filter(nil))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.Error(t, Config{MinConfidence: 1.5, LatinThreshold: 0.7}.Validate())
	require.Error(t, Config{MinConfidence: 0.5, LatinThreshold: -0.1}.Validate())
}

func TestLatinShare(t *testing.T) {
	share, letters := LatinShare("ab你好")
	assert.Equal(t, 4, letters)
	assert.InDelta(t, 0.5, share, 1e-9)

	share, letters = LatinShare("123 !")
	assert.Zero(t, letters)
	assert.Zero(t, share)

	// Multiplication sign is not a letter.
	_, letters = LatinShare("×")
	assert.Zero(t, letters)
}
