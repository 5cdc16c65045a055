package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/capture"
	"github.com/MeKo-Tech/lingolens/internal/pipeline"
	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/MeKo-Tech/lingolens/internal/version"
	_ "golang.org/x/image/bmp"
)

const formatJSON = "json"

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// stateHandler returns the pipeline lifecycle state.
func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *Server) stateResponse() StateResponse {
	resp := StateResponse{State: s.pipeline.State().String()}
	if s.pipeline.State() == pipeline.StateError {
		if err := s.pipeline.LastError(); err != nil {
			resp.Error = err.Error()
		}
	}
	return resp
}

// statsHandler returns the pipeline statistics.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.pipeline.Stats())
}

// startHandler starts the pipeline. The JSON body may name the capture target
// and frame rate; configured defaults apply otherwise.
func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := StartRequest{Target: s.config.DefaultTarget, FrameRate: s.config.DefaultFrameRate}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeErrorResponse(w, "Invalid start request: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Target == "" {
		req.Target = s.config.DefaultTarget
	}
	if req.FrameRate <= 0 {
		req.FrameRate = s.config.DefaultFrameRate
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	if err := s.StartPipeline(ctx, req.Target, req.FrameRate); err != nil {
		s.writePipelineError(w, err)
		return
	}
	slog.Info("Pipeline started via API", "target", req.Target, "frame_rate", req.FrameRate)
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// stopHandler stops the pipeline; it succeeds in any state.
func (s *Server) stopHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.pipeline.Stop()
	s.waitDrained()
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// restartHandler restarts the pipeline with the parameters of the last start.
func (s *Server) restartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()
	out, err := s.pipeline.Restart(ctx)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	s.drain(out)
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// TranslateResponse is the JSON form of a one-shot translation.
type TranslateResponse struct {
	ID         string              `json:"id"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Detected   int                 `json:"detected"`
	Regions    []region.TextRegion `json:"regions"`
	DurationMs int64               `json:"duration_ms"`
}

// translateImageHandler translates one uploaded image without touching the
// running pipeline. It answers with the composited PNG, or JSON with ?format=json.
func (s *Server) translateImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.config.MaxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	frame := capture.Frame{Image: img, ContentRect: img.Bounds(), CapturedAt: time.Now(), Source: header.Filename}
	tf, err := s.pipeline.ProcessFrame(ctx, frame, s.translator)
	if err != nil {
		oneShotTotal.WithLabelValues("error").Inc()
		s.writePipelineError(w, err)
		return
	}
	oneShotTotal.WithLabelValues("success").Inc()

	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	if format == formatJSON {
		writeJSON(w, http.StatusOK, TranslateResponse{
			ID:         tf.ID,
			Width:      tf.Image.Bounds().Dx(),
			Height:     tf.Image.Bounds().Dy(),
			Detected:   tf.Detected,
			Regions:    tf.Regions,
			DurationMs: tf.ProcessingDuration.Milliseconds(),
		})
		return
	}

	png, err := utils.EncodePNG(tf.Image)
	if err != nil {
		s.writeErrorResponse(w, "Failed to encode result", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// writePipelineError maps pipeline errors to HTTP status codes.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	var (
		setupErr *pipeline.SetupError
		frameErr *pipeline.FrameError
	)
	switch {
	case errors.Is(err, pipeline.ErrAlreadyRunning), errors.Is(err, pipeline.ErrNotRestartable):
		s.writeErrorResponse(w, err.Error(), http.StatusConflict)
	case errors.As(err, &setupErr):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: setupErr.Error(), Stage: setupErr.Stage})
	case errors.As(err, &frameErr):
		status := http.StatusInternalServerError
		if frameErr.Stage == pipeline.StageValidate {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, ErrorResponse{Error: frameErr.Error(), Stage: frameErr.Stage})
	default:
		s.writeErrorResponse(w, fmt.Sprintf("Pipeline request failed: %v", err), http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
