package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/capture"
	"github.com/MeKo-Tech/lingolens/internal/pipeline"
	"github.com/MeKo-Tech/lingolens/internal/server"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server controlling the pipeline",
	Long: `Start an HTTP server that controls the translation pipeline and streams
its events to presentation clients.

The server provides the following endpoints:
  GET  /health            - Health check endpoint
  GET  /state             - Pipeline lifecycle state
  GET  /stats             - Pipeline statistics
  POST /pipeline/start    - Start capturing (JSON body: target, frame_rate)
  POST /pipeline/stop     - Stop the pipeline
  POST /pipeline/restart  - Restart with the last parameters
  POST /translate/image   - Translate one uploaded image
  GET  /ws                - WebSocket event stream
  GET  /metrics           - Prometheus metrics

Examples:
  lingolens serve
  lingolens serve --port 8080 --autostart --target ./frames
  lingolens serve --host 0.0.0.0 --save-frames`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer cancel()

		st, err := buildStack(cfg, capture.NewDirectorySource(cfg.Capture.Loop))
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		defer st.orchestrator.Subscribe(pipeline.NewLogListener(slog.Default(), slog.LevelDebug))()

		srvCfg := cfg.ToServerConfig()
		apiServer, err := server.NewServer(srvCfg, st.orchestrator, st.translator)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}
		if save, _ := cmd.Flags().GetBool("save-frames"); save {
			sink, err := newDirectorySink(cfg.Output.Dir)
			if err != nil {
				return err
			}
			apiServer.WithSink(sink)
		}

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", srvCfg.Host, srvCfg.Port),
			Handler:           apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(srvCfg.TimeoutSec) * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			slog.Info("Starting lingolens server", "host", srvCfg.Host, "port", srvCfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		if autostart, _ := cmd.Flags().GetBool("autostart"); autostart {
			if err := apiServer.StartPipeline(ctx, cfg.Capture.Target, cfg.Capture.FrameRate); err != nil {
				slog.Error("Autostart failed, pipeline left in error state", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			slog.Info("Received shutdown signal")
		case err := <-serveErr:
			if err != nil {
				_ = apiServer.Close()
				return fmt.Errorf("server error: %w", err)
			}
		}

		timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
		slog.Info("Starting graceful shutdown", "timeout", timeout)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
		if err := apiServer.Close(); err != nil {
			slog.Error("Server cleanup error", "error", err)
		}
		slog.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 20, "maximum upload size in MB")
	serveCmd.Flags().Int("requests-per-minute", 0, "one-shot translations per minute per client (0 disables)")
	serveCmd.Flags().Bool("send-images", false, "include composited frames in websocket events")
	serveCmd.Flags().String("target", "", "frames directory captured on start")
	serveCmd.Flags().Float64("frame-rate", 1, "capture frame rate")
	serveCmd.Flags().Bool("loop", false, "replay the frames directory endlessly")
	serveCmd.Flags().Bool("skip-unchanged", false, "reuse regions of visually unchanged frames")
	serveCmd.Flags().Bool("autostart", false, "start the pipeline when the server starts")
	serveCmd.Flags().Bool("save-frames", false, "write translated frames to --output")
	serveCmd.Flags().StringP("output", "o", "translated", "directory for saved frames")
	addTranslationFlags(serveCmd)
}

// newDirectorySink returns a frame sink writing numbered PNGs into dir.
func newDirectorySink(dir string) (server.FrameSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	var n atomic.Int64
	return func(tf pipeline.TranslatedFrame) {
		path := filepath.Join(dir, frameFileName(int(n.Add(1)-1), tf.Source))
		if err := utils.SavePNG(path, tf.Image); err != nil {
			slog.Error("Failed to save translated frame", "path", path, "error", err)
		}
	}, nil
}
