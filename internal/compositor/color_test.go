package compositor

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplePoints(t *testing.T) {
	pts := SamplePoints(image.Rect(10, 20, 30, 40), 2)
	assert.Equal(t, []image.Point{image.Pt(12, 30), image.Pt(27, 30), image.Pt(20, 22), image.Pt(20, 37)}, pts)
}

func TestEstimateBackgroundAveragesEdges(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	rect := image.Rect(10, 10, 30, 30)
	utils.FillRect(img, image.Rect(0, 0, 20, 40), color.RGBA{R: 100, A: 255})
	utils.FillRect(img, image.Rect(20, 0, 40, 40), color.RGBA{R: 200, A: 255})
	// The centre is dark "ink" that must not influence the estimate.
	utils.FillRect(img, image.Rect(15, 15, 25, 25), color.RGBA{A: 255})

	bg := EstimateBackground(img, rect, 2, white)
	// left=100, right=200, top and bottom midpoints sit at x=20 -> 200.
	assert.Equal(t, color.RGBA{R: 175, A: 255}, bg)
}

func TestEstimateBackgroundFallback(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	bg := EstimateBackground(img, image.Rect(50, 50, 80, 80), 2, white)
	assert.Equal(t, white, bg)
}

func TestEstimateBackgroundPartialBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	utils.FillRect(img, img.Bounds(), color.RGBA{G: 90, A: 255})
	// Only the left sample lands in the image.
	bg := EstimateBackground(img, image.Rect(5, 5, 35, 25), 2, white)
	assert.Equal(t, color.RGBA{G: 90, A: 255}, bg)
}

func TestTextColorFor(t *testing.T) {
	assert.Equal(t, black, TextColorFor(color.White))
	assert.Equal(t, white, TextColorFor(color.Black))
	assert.Equal(t, black, TextColorFor(color.RGBA{R: 200, G: 200, B: 200, A: 255}))
	// Pure blue is dark by luminance even though it is saturated.
	assert.Equal(t, white, TextColorFor(color.RGBA{B: 255, A: 255}))
	// Pure green is light.
	assert.Equal(t, black, TextColorFor(color.RGBA{G: 255, A: 255}))
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#1e1e1e")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 30, G: 30, B: 30, A: 255}, c)

	_, err = ParseColor("white")
	require.Error(t, err)
}
