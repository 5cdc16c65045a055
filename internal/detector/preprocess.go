package detector

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/lingolens/internal/utils"
)

// Preprocess prepares a frame for recognition: a mild contrast boost,
// luminance-only sharpening and a smooth upscale. The image is never binarized,
// complex glyphs lose strokes when thresholded.
func Preprocess(img image.Image, cfg Config) (image.Image, error) {
	enhanced, err := utils.EnhanceForRecognition(img, cfg.ContrastBoost, cfg.SharpenSigma)
	if err != nil {
		return nil, fmt.Errorf("failed to enhance image: %w", err)
	}
	scaled, err := utils.Upscale(enhanced, cfg.UpscaleFactor)
	if err != nil {
		return nil, fmt.Errorf("failed to upscale image: %w", err)
	}
	return scaled, nil
}
