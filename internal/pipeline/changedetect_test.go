package pipeline

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/MeKo-Tech/lingolens/internal/testutil"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/stretchr/testify/assert"
)

func halfDark(size testutil.ImageSize, vertical bool) *image.RGBA {
	img := testutil.CreateTestImage(size.Width, size.Height, color.White)
	half := image.Rect(0, 0, size.Width/2, size.Height)
	if vertical {
		half = image.Rect(0, 0, size.Width, size.Height/2)
	}
	utils.FillRect(img, half, color.Black)
	return img
}

func TestFrameMemoryRecognisesRepeatedFrame(t *testing.T) {
	m := newFrameMemory(4)
	img := halfDark(testutil.SmallSize, false)

	hash, unchanged := m.lookup(img)
	assert.False(t, unchanged, "nothing remembered yet")
	regions := []region.TextRegion{{Text: "菜单", Box: region.NewBox(0.1, 0.1, 0.2, 0.1)}}
	m.remember(hash, regions, 3)

	_, unchanged = m.lookup(img)
	assert.True(t, unchanged)
	assert.Equal(t, 3, m.detected)

	regions[0].Text = "changed"
	assert.Equal(t, "菜单", m.regions[0].Text, "remembered regions are a copy")
}

func TestFrameMemoryDetectsChange(t *testing.T) {
	m := newFrameMemory(4)
	hash, _ := m.lookup(halfDark(testutil.SmallSize, false))
	m.remember(hash, nil, 0)

	_, unchanged := m.lookup(halfDark(testutil.SmallSize, true))
	assert.False(t, unchanged)
}

func TestFrameMemoryForgetsWithoutHash(t *testing.T) {
	m := newFrameMemory(4)
	hash, _ := m.lookup(halfDark(testutil.SmallSize, false))
	m.remember(hash, nil, 1)
	m.remember(nil, nil, 0)
	assert.Nil(t, m.hash)
}
