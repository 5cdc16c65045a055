package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/lingolens/internal/capture"
	"github.com/MeKo-Tech/lingolens/internal/pipeline"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/spf13/cobra"
)

// runCmd replays a directory of frames through the pipeline.
var runCmd = &cobra.Command{
	Use:   "run [frames-dir]",
	Short: "Translate a directory of captured frames",
	Long: `Replay the images of a directory as a frame stream at --frame-rate and
write each translated frame as a PNG to --output.

Without --loop the run ends after the last image. Interrupt stops the
pipeline and keeps what was written so far.

Examples:
  lingolens run ./frames
  lingolens run ./frames --frame-rate 2 --skip-unchanged --progress
  lingolens run --config lingolens.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		target := cfg.Capture.Target
		if len(args) == 1 {
			target = args[0]
		}
		if target == "" {
			return errors.New("no frames directory given (argument or capture.target)")
		}
		outDir := cfg.Output.Dir
		if err := os.MkdirAll(outDir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := buildStack(cfg, capture.NewDirectorySource(cfg.Capture.Loop))
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		logEvery, _ := cmd.Flags().GetInt("log-every")
		defer st.orchestrator.Subscribe(pipeline.NewLogListener(slog.Default(), slog.LevelInfo).WithInterval(logEvery))()
		if progress, _ := cmd.Flags().GetBool("progress"); progress {
			defer st.orchestrator.Subscribe(pipeline.NewConsoleListener(cmd.ErrOrStderr(), "lingolens "))()
		}

		out, err := st.orchestrator.Start(ctx, target, st.translator, cfg.Capture.FrameRate)
		if err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			st.orchestrator.Stop()
		}()

		written := 0
		for tf := range out {
			path := filepath.Join(outDir, frameFileName(written, tf.Source))
			if err := utils.SavePNG(path, tf.Image); err != nil {
				slog.Error("Failed to save translated frame", "path", path, "error", err)
				continue
			}
			written++
		}

		stats := st.orchestrator.Stats()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s (errors=%d dropped=%d avg=%v)\n",
			written, outDir, stats.ErrorCount, stats.DroppedFrames, stats.AverageDuration)

		if err := st.orchestrator.LastError(); err != nil && !errors.Is(err, pipeline.ErrStreamEnded) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Float64("frame-rate", 1, "frames per second read from the directory")
	runCmd.Flags().Bool("loop", false, "start over after the last image")
	runCmd.Flags().StringP("output", "o", "translated", "directory for translated frames")
	runCmd.Flags().Bool("skip-unchanged", false, "reuse regions of visually unchanged frames")
	runCmd.Flags().Bool("progress", false, "show a live status line on stderr")
	runCmd.Flags().Int("log-every", 1, "log every N translated frames")
	addTranslationFlags(runCmd)
}

// frameFileName names the n-th written frame after its source file.
func frameFileName(n int, source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		return fmt.Sprintf("%06d.png", n)
	}
	return fmt.Sprintf("%06d_%s.png", n, base)
}
