package pipeline

import (
	"sync"
	"time"
)

// Stats is a snapshot of pipeline counters.
type Stats struct {
	State            State         `json:"state"`
	FrameCount       int64         `json:"frame_count"`
	ErrorCount       int64         `json:"error_count"`
	DroppedFrames    int64         `json:"dropped_frames"`
	ReusedFrames     int64         `json:"reused_frames"`
	AverageDuration  time.Duration `json:"average_duration"`
	LastDuration     time.Duration `json:"last_duration"`
	CacheHits        int64         `json:"cache_hits"`
	CacheMisses      int64         `json:"cache_misses"`
	CacheSize        int           `json:"cache_size"`
	WindowSize       int           `json:"window_size"`
	LastFrameAt      time.Time     `json:"last_frame_at,omitzero"`
	AverageFrameRate float64       `json:"average_frame_rate"`
}

// rollingStats keeps frame counters and the last N processing durations.
type rollingStats struct {
	mu        sync.Mutex
	window    []time.Duration
	next      int
	filled    int
	sum       time.Duration
	frames    int64
	errors    int64
	reused    int64
	last      time.Duration
	lastFrame time.Time
}

func newRollingStats(window int) *rollingStats {
	return &rollingStats{window: make([]time.Duration, window)}
}

func (s *rollingStats) recordFrame(d time.Duration, at time.Time, reused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	if reused {
		s.reused++
	}
	s.last = d
	s.lastFrame = at
	s.sum -= s.window[s.next]
	s.window[s.next] = d
	s.sum += d
	s.next = (s.next + 1) % len(s.window)
	if s.filled < len(s.window) {
		s.filled++
	}
}

func (s *rollingStats) recordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
}

func (s *rollingStats) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		FrameCount:   s.frames,
		ErrorCount:   s.errors,
		ReusedFrames: s.reused,
		LastDuration: s.last,
		LastFrameAt:  s.lastFrame,
		WindowSize:   s.filled,
	}
	if s.filled > 0 {
		st.AverageDuration = s.sum / time.Duration(s.filled)
		if st.AverageDuration > 0 {
			st.AverageFrameRate = float64(time.Second) / float64(st.AverageDuration)
		}
	}
	return st
}
