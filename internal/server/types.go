// Package server exposes pipeline control, statistics and a live event
// stream over HTTP and WebSocket for a presentation layer.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/capture"
	"github.com/MeKo-Tech/lingolens/internal/pipeline"
	"github.com/MeKo-Tech/lingolens/internal/translation"
)

// Controller is the part of the orchestrator the server drives.
type Controller interface {
	Start(ctx context.Context, target string, tr translation.Translator, frameRate float64) (<-chan pipeline.TranslatedFrame, error)
	Stop()
	Restart(ctx context.Context) (<-chan pipeline.TranslatedFrame, error)
	State() pipeline.State
	LastError() error
	Stats() pipeline.Stats
	Subscribe(l pipeline.Listener) func()
	ProcessFrame(ctx context.Context, frame capture.Frame, tr translation.Translator) (pipeline.TranslatedFrame, error)
}

// FrameSink receives every translated frame of a run started through the server.
type FrameSink func(pipeline.TranslatedFrame)

// Config holds server configuration.
type Config struct {
	Host             string
	Port             int
	CORSOrigin       string
	MaxUploadMB      int64
	TimeoutSec       int
	DefaultTarget    string
	DefaultFrameRate float64
	SendImages       bool // include the composited PNG in websocket frame events
	ClientQueue      int  // per websocket client send queue
	RateLimit        RateLimitConfig
}

// RateLimitConfig bounds one-shot translation uploads per client.
type RateLimitConfig struct {
	RequestsPerMinute int
	MaxDataPerDay     int64 // bytes
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    Controller
	translator  translation.Translator
	hub         *Hub
	rateLimiter *RateLimiter
	sink        FrameSink
	config      Config
	unsubscribe []func()

	mu      sync.Mutex
	drained chan struct{} // closed when the current output channel is drained
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

type StateResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

type StartRequest struct {
	Target    string  `json:"target"`
	FrameRate float64 `json:"frame_rate"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Stage   string `json:"stage,omitempty"`
}

// NewServer creates a server around a pipeline controller. The translator is
// handed to the pipeline on start and used for one-shot translations.
func NewServer(config Config, ctrl Controller, tr translation.Translator) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("server: pipeline controller is required")
	}
	if tr == nil {
		return nil, errors.New("server: translator is required")
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 20
	}
	if config.TimeoutSec <= 0 {
		config.TimeoutSec = 30
	}
	if config.DefaultFrameRate <= 0 {
		config.DefaultFrameRate = 1
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}

	s := &Server{
		pipeline:   ctrl,
		translator: tr,
		hub:        NewHub(config.ClientQueue, config.SendImages),
		config:     config,
	}
	if config.RateLimit.RequestsPerMinute > 0 || config.RateLimit.MaxDataPerDay > 0 {
		s.rateLimiter = NewRateLimiter(config.RateLimit.RequestsPerMinute, config.RateLimit.MaxDataPerDay)
	}
	s.unsubscribe = append(s.unsubscribe,
		ctrl.Subscribe(s.hub),
		ctrl.Subscribe(newMetricsListener()))
	return s, nil
}

// WithSink sets a function receiving every translated frame, for example to
// save frames to disk.
func (s *Server) WithSink(sink FrameSink) *Server {
	s.sink = sink
	return s
}

// Hub returns the websocket event hub.
func (s *Server) Hub() *Hub { return s.hub }

// Close stops the pipeline, detaches the listeners and disconnects clients.
func (s *Server) Close() error {
	s.pipeline.Stop()
	s.waitDrained()
	for _, unsub := range s.unsubscribe {
		unsub()
	}
	s.hub.Close()
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/state", s.corsMiddleware(s.stateHandler))
	mux.HandleFunc("/stats", s.corsMiddleware(s.statsHandler))
	mux.HandleFunc("/pipeline/start", s.corsMiddleware(s.startHandler))
	mux.HandleFunc("/pipeline/stop", s.corsMiddleware(s.stopHandler))
	mux.HandleFunc("/pipeline/restart", s.corsMiddleware(s.restartHandler))
	mux.HandleFunc("/translate/image", s.corsMiddleware(s.rateLimitMiddleware(s.translateImageHandler)))
	mux.HandleFunc("/ws", s.hub.ServeWS)
	mux.Handle("/metrics", metricsHandler())
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// requestContext bounds a handler's pipeline call by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), time.Duration(s.config.TimeoutSec)*time.Second)
}

// StartPipeline starts the pipeline with the server's translator and
// consumes its output in the background. Empty or zero arguments fall back to
// the configured defaults.
func (s *Server) StartPipeline(ctx context.Context, target string, frameRate float64) error {
	if target == "" {
		target = s.config.DefaultTarget
	}
	if frameRate <= 0 {
		frameRate = s.config.DefaultFrameRate
	}
	out, err := s.pipeline.Start(ctx, target, s.translator, frameRate)
	if err != nil {
		return err
	}
	s.drain(out)
	return nil
}

// drain consumes a run's output so the frame loop never blocks on the server.
func (s *Server) drain(out <-chan pipeline.TranslatedFrame) {
	done := make(chan struct{})
	s.mu.Lock()
	s.drained = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for f := range out {
			if s.sink != nil {
				s.sink(f)
			}
		}
	}()
}

func (s *Server) waitDrained() {
	s.mu.Lock()
	done := s.drained
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}
