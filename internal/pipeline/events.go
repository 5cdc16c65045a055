package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Listener receives orchestrator events. Callbacks run on the frame loop
// goroutine (or on the goroutine calling Start/Stop/Restart for state changes)
// and must not block.
type Listener interface {
	// OnStateChange is called after every lifecycle transition.
	OnStateChange(change StateChange)

	// OnFrame is called after a translated frame has been emitted.
	OnFrame(frame TranslatedFrame, stats Stats)

	// OnFrameError is called when a frame is skipped because a stage failed.
	OnFrameError(err *FrameError)
}

// NoOpListener implements Listener but does nothing.
type NoOpListener struct{}

func (NoOpListener) OnStateChange(StateChange)      {}
func (NoOpListener) OnFrame(TranslatedFrame, Stats) {}
func (NoOpListener) OnFrameError(*FrameError)       {}

// LogListener logs events using slog.
type LogListener struct {
	logger   *slog.Logger
	level    slog.Level
	interval int // Log every N frames
}

// NewLogListener creates a log-based listener.
func NewLogListener(logger *slog.Logger, level slog.Level) *LogListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogListener{logger: logger, level: level, interval: 1}
}

// WithInterval sets how frequently frames are logged (every N frames).
func (l *LogListener) WithInterval(interval int) *LogListener {
	if interval < 1 {
		interval = 1
	}
	l.interval = interval
	return l
}

func (l *LogListener) OnStateChange(change StateChange) {
	attrs := []any{"from", change.From.String(), "to", change.To.String()}
	if change.Err != nil {
		attrs = append(attrs, "error", change.Err)
		l.logger.Log(context.Background(), slog.LevelError, "Pipeline state changed", attrs...)
		return
	}
	l.logger.Log(context.Background(), l.level, "Pipeline state changed", attrs...)
}

func (l *LogListener) OnFrame(frame TranslatedFrame, stats Stats) {
	if stats.FrameCount%int64(l.interval) != 0 {
		return
	}
	l.logger.Log(context.Background(), l.level, "Frame translated",
		"id", frame.ID,
		"detected", frame.Detected,
		"translated", frame.TranslatedCount(),
		"reused", frame.Reused,
		"duration", frame.ProcessingDuration,
		"frames", stats.FrameCount,
		"avg_duration", stats.AverageDuration)
}

func (l *LogListener) OnFrameError(err *FrameError) {
	l.logger.Log(context.Background(), slog.LevelWarn, "Frame skipped", "stage", err.Stage, "error", err.Err)
}

// ConsoleListener prints a one-line status per frame, overwriting the line.
type ConsoleListener struct {
	writer         io.Writer
	prefix         string
	updateInterval time.Duration
	lastUpdate     time.Time
	mutex          sync.Mutex
}

// NewConsoleListener creates a console status reporter.
func NewConsoleListener(writer io.Writer, prefix string) *ConsoleListener {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleListener{writer: writer, prefix: prefix, updateInterval: 100 * time.Millisecond}
}

// WithUpdateInterval sets how frequently the status line updates.
func (c *ConsoleListener) WithUpdateInterval(interval time.Duration) *ConsoleListener {
	c.updateInterval = interval
	return c
}

func (c *ConsoleListener) OnStateChange(change StateChange) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if change.Err != nil {
		_, _ = fmt.Fprintf(c.writer, "\n%s%s -> %s: %v\n", c.prefix, change.From, change.To, change.Err)
		return
	}
	_, _ = fmt.Fprintf(c.writer, "\n%s%s -> %s\n", c.prefix, change.From, change.To)
}

func (c *ConsoleListener) OnFrame(frame TranslatedFrame, stats Stats) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	if now.Sub(c.lastUpdate) < c.updateInterval {
		return
	}
	c.lastUpdate = now
	_, _ = fmt.Fprintf(c.writer, "\r%sframes=%d errors=%d dropped=%d regions=%d/%d avg=%v",
		c.prefix, stats.FrameCount, stats.ErrorCount, stats.DroppedFrames,
		frame.TranslatedCount(), frame.Detected, stats.AverageDuration.Round(time.Millisecond))
}

func (c *ConsoleListener) OnFrameError(err *FrameError) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, _ = fmt.Fprintf(c.writer, "\n%sframe skipped (%s): %v\n", c.prefix, err.Stage, err.Err)
}

// MultiListener fans events out to several listeners.
type MultiListener struct {
	listeners []Listener
}

// NewMultiListener creates a listener that forwards to all given listeners.
func NewMultiListener(listeners ...Listener) *MultiListener {
	return &MultiListener{listeners: listeners}
}

func (m *MultiListener) OnStateChange(change StateChange) {
	for _, l := range m.listeners {
		l.OnStateChange(change)
	}
}

func (m *MultiListener) OnFrame(frame TranslatedFrame, stats Stats) {
	for _, l := range m.listeners {
		l.OnFrame(frame, stats)
	}
}

func (m *MultiListener) OnFrameError(err *FrameError) {
	for _, l := range m.listeners {
		l.OnFrameError(err)
	}
}

// listenerSet is the orchestrator's subscription registry.
type listenerSet struct {
	mu     sync.RWMutex
	nextID int
	byID   map[int]Listener
}

func newListenerSet() *listenerSet {
	return &listenerSet{byID: make(map[int]Listener)}
}

func (s *listenerSet) add(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.byID[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.byID, id)
			s.mu.Unlock()
		})
	}
}

func (s *listenerSet) snapshot() []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Listener, 0, len(s.byID))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.byID[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (s *listenerSet) stateChange(c StateChange) {
	for _, l := range s.snapshot() {
		l.OnStateChange(c)
	}
}

func (s *listenerSet) frame(f TranslatedFrame, st Stats) {
	for _, l := range s.snapshot() {
		l.OnFrame(f, st)
	}
}

func (s *listenerSet) frameError(err *FrameError) {
	for _, l := range s.snapshot() {
		l.OnFrameError(err)
	}
}
