package capture

import (
	"context"
	"sync"
)

// ChannelSource relays frames pushed by the embedding application, for
// example from a platform capture layer or a test.
type ChannelSource struct {
	in      chan Frame
	ended   chan struct{}
	endOnce sync.Once

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	target  string
	started int
	fail    error
}

// NewChannelSource creates a source whose Push calls enqueue up to buffer frames.
func NewChannelSource(buffer int) *ChannelSource {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelSource{in: make(chan Frame, buffer), ended: make(chan struct{})}
}

// FailNextStart makes the next Start return err.
func (s *ChannelSource) FailNextStart(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Push enqueues a frame. It blocks while the buffer is full and returns false
// once ctx is done or End was called.
func (s *ChannelSource) Push(ctx context.Context, f Frame) bool {
	select {
	case <-s.ended:
		return false
	default:
	}
	select {
	case s.in <- f:
		return true
	case <-s.ended:
		return false
	case <-ctx.Done():
		return false
	}
}

// End marks the input finished; the stream closes once buffered frames are delivered.
func (s *ChannelSource) End() {
	s.endOnce.Do(func() { close(s.ended) })
}

// Start begins relaying pushed frames. frameRate is ignored.
func (s *ChannelSource) Start(ctx context.Context, target string, _ float64) (<-chan Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail; err != nil {
		s.fail = nil
		return nil, err
	}
	if s.cancel != nil {
		return nil, ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.target = target
	s.started++
	out := make(chan Frame)
	go s.relay(runCtx, out, s.done)
	return out, nil
}

func (s *ChannelSource) relay(ctx context.Context, out chan<- Frame, done chan<- struct{}) {
	defer close(done)
	defer close(out)
	for {
		var f Frame
		select {
		case <-ctx.Done():
			return
		case f = <-s.in:
		case <-s.ended:
			// Deliver what is still buffered, then end the stream.
			select {
			case f = <-s.in:
			default:
				return
			}
		}
		select {
		case out <- f:
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the current stream. Frames still buffered stay queued for the next Start.
func (s *ChannelSource) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Starts returns how many times Start succeeded.
func (s *ChannelSource) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Active reports whether a stream is open, that is Start succeeded and Stop
// has not been called since.
func (s *ChannelSource) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Target returns the target of the last successful Start.
func (s *ChannelSource) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}
