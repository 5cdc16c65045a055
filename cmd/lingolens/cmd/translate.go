package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/capture"
	"github.com/MeKo-Tech/lingolens/internal/pipeline"
	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// translateCmd translates a single image.
var translateCmd = &cobra.Command{
	Use:   "translate <image>",
	Short: "Translate the text in a single image",
	Long: `Run one image through detection, filtering, translation and compositing.

The composited image is written next to the input (or to --output) and the
detected regions are printed as text or JSON.

Supported formats: PNG, JPEG, BMP

Examples:
  lingolens translate screenshot.png --glossary glossary.yaml
  lingolens translate menu.jpg --output menu_en.png --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if format != outputFormatText && format != outputFormatJSON {
			return fmt.Errorf("unsupported output format %q (want %s or %s)", format, outputFormatText, outputFormatJSON)
		}
		noImage, _ := cmd.Flags().GetBool("no-image")

		input := args[0]
		img, meta, err := utils.LoadImage(input)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", input, err)
		}

		st, err := buildStack(cfg, capture.NewChannelSource(1))
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		frame := capture.Frame{Image: img, ContentRect: img.Bounds(), CapturedAt: time.Now(), Source: input}
		tf, err := st.orchestrator.ProcessFrame(cmd.Context(), frame, st.translator)
		if err != nil {
			return fmt.Errorf("failed to translate %s: %w", input, err)
		}

		outPath := ""
		if !noImage {
			outPath, _ = cmd.Flags().GetString("output")
			if outPath == "" {
				outPath = translatedPath(input)
			}
			if err := utils.SavePNG(outPath, tf.Image); err != nil {
				return fmt.Errorf("failed to save %s: %w", outPath, err)
			}
		}

		result := newTranslateResult(meta, tf, outPath)
		if format == outputFormatJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		return writeRegionTable(cmd.OutOrStdout(), result)
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().StringP("output", "o", "", "output PNG path (default <input>_translated.png)")
	translateCmd.Flags().StringP("format", "f", outputFormatText, "result format: text or json")
	translateCmd.Flags().Bool("no-image", false, "only print results, do not write the composited image")
	addTranslationFlags(translateCmd)
}

// addTranslationFlags defines the flags selecting the translation backend.
func addTranslationFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "glossary", "translation backend: glossary or http")
	cmd.Flags().String("glossary", "", "YAML glossary file for the glossary backend")
	cmd.Flags().String("endpoint", "http://localhost:5000", "LibreTranslate-compatible endpoint for the http backend")
	cmd.Flags().String("cache-policy", "lru", "translation cache policy: lru or clear")
	cmd.Flags().Int("cache-capacity", 1000, "translation cache capacity")
}

// translatedPath derives the default output path for input.
func translatedPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_translated.png"
}

// TranslateResult is the printable outcome of a single-image translation.
type TranslateResult struct {
	Input      string          `json:"input"`
	Output     string          `json:"output,omitempty"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Detected   int             `json:"detected"`
	Translated int             `json:"translated"`
	DurationMs int64           `json:"duration_ms"`
	Regions    []RegionSummary `json:"regions"`
}

// RegionSummary is one detected region in a TranslateResult.
type RegionSummary struct {
	Text        string     `json:"text"`
	Translation string     `json:"translation,omitempty"`
	Confidence  float64    `json:"confidence"`
	Box         region.Box `json:"box"`
}

func newTranslateResult(meta utils.ImageMetadata, tf pipeline.TranslatedFrame, outPath string) TranslateResult {
	res := TranslateResult{
		Input:      meta.Path,
		Output:     outPath,
		Width:      meta.Width,
		Height:     meta.Height,
		Detected:   tf.Detected,
		Translated: tf.TranslatedCount(),
		DurationMs: tf.ProcessingDuration.Milliseconds(),
		Regions:    make([]RegionSummary, 0, len(tf.Regions)),
	}
	for _, r := range tf.Regions {
		res.Regions = append(res.Regions, RegionSummary{
			Text:        r.Trimmed(),
			Translation: r.TranslationText(),
			Confidence:  r.Confidence,
			Box:         r.Box,
		})
	}
	return res
}

// writeRegionTable prints one region per line with the source column padded
// to its display width, so CJK text lines up.
func writeRegionTable(w io.Writer, res TranslateResult) error {
	width := runewidth.StringWidth("text")
	for _, r := range res.Regions {
		width = max(width, runewidth.StringWidth(r.Text))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%dx%d): %d detected, %d translated in %dms\n",
		res.Input, res.Width, res.Height, res.Detected, res.Translated, res.DurationMs)
	if res.Output != "" {
		fmt.Fprintf(&b, "wrote %s\n", res.Output)
	}
	if len(res.Regions) > 0 {
		fmt.Fprintf(&b, "%s  %s\n", runewidth.FillRight("text", width), "translation")
	}
	for _, r := range res.Regions {
		tr := r.Translation
		if tr == "" {
			tr = "-"
		}
		fmt.Fprintf(&b, "%s  %s\n", runewidth.FillRight(r.Text, width), tr)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
