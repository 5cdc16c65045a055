package server

import (
	"net/http"

	"github.com/MeKo-Tech/lingolens/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingolens_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lingolens_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Pipeline metrics
	framesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lingolens_frames_total",
			Help: "Total number of translated frames emitted",
		},
	)

	frameErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingolens_frame_errors_total",
			Help: "Total number of skipped frames",
		},
		[]string{"stage"},
	)

	frameProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lingolens_frame_processing_seconds",
			Help:    "Time spent detecting, filtering, translating and compositing one frame",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
	)

	regionsTranslated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lingolens_regions_translated",
			Help:    "Number of translated regions per frame",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	pipelineState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lingolens_pipeline_state",
			Help: "1 for the current pipeline state, 0 otherwise",
		},
		[]string{"state"},
	)

	droppedFrames = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lingolens_dropped_frames",
			Help: "Frames discarded because processing fell behind capture",
		},
	)

	cacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lingolens_translation_cache_entries",
			Help: "Entries in the translation cache",
		},
	)

	oneShotTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingolens_translate_image_requests_total",
			Help: "Total number of one-shot image translations",
		},
		[]string{"status"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingolens_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, data
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lingolens_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lingolens_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingolens_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)

	websocketDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lingolens_websocket_dropped_messages_total",
			Help: "Messages dropped because a client's queue was full",
		},
	)
)

var allStates = []pipeline.State{
	pipeline.StateIdle, pipeline.StateStarting, pipeline.StateRunning, pipeline.StateStopping, pipeline.StateError,
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsListener mirrors pipeline events into Prometheus metrics.
type metricsListener struct{}

func newMetricsListener() metricsListener {
	setStateGauge(pipeline.StateIdle)
	return metricsListener{}
}

func setStateGauge(current pipeline.State) {
	for _, st := range allStates {
		v := 0.0
		if st == current {
			v = 1
		}
		pipelineState.WithLabelValues(st.String()).Set(v)
	}
}

func (metricsListener) OnStateChange(change pipeline.StateChange) {
	setStateGauge(change.To)
}

func (metricsListener) OnFrame(frame pipeline.TranslatedFrame, stats pipeline.Stats) {
	framesTotal.Inc()
	frameProcessingDuration.Observe(frame.ProcessingDuration.Seconds())
	regionsTranslated.Observe(float64(frame.TranslatedCount()))
	droppedFrames.Set(float64(stats.DroppedFrames))
	cacheSize.Set(float64(stats.CacheSize))
}

func (metricsListener) OnFrameError(err *pipeline.FrameError) {
	frameErrorsTotal.WithLabelValues(err.Stage).Inc()
}
