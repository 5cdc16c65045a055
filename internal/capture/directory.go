package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/utils"
)

// DirectorySource replays the supported images of a directory in name order.
type DirectorySource struct {
	Loop bool // Start over after the last image instead of ending the stream

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	now    func() time.Time
}

// NewDirectorySource creates a directory replay source.
func NewDirectorySource(loop bool) *DirectorySource {
	return &DirectorySource{Loop: loop, now: time.Now}
}

// Start lists target and begins emitting its images at frameRate.
func (s *DirectorySource) Start(ctx context.Context, target string, frameRate float64) (<-chan Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil, ErrAlreadyStarted
	}

	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a readable directory", ErrTargetUnavailable, target)
	}
	paths, err := utils.ListImages(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTargetUnavailable, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no supported images in %s", ErrTargetUnavailable, target)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	out := make(chan Frame)
	go s.run(runCtx, paths, FrameInterval(frameRate), out, s.done)

	slog.Info("Directory capture started", "dir", target, "images", len(paths), "frame_rate", frameRate, "loop", s.Loop)
	return out, nil
}

func (s *DirectorySource) run(ctx context.Context, paths []string, interval time.Duration, out chan<- Frame, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		if i == len(paths) {
			if !s.Loop {
				return
			}
			i = 0
		}
		img, _, err := utils.LoadImage(paths[i])
		if err != nil {
			slog.Warn("Skipping unreadable frame", "path", paths[i], "error", err)
		} else {
			f := Frame{Image: img, ContentRect: img.Bounds(), CapturedAt: s.now(), Source: paths[i]}
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the stream and waits for the producer to exit. It is safe to call
// more than once.
func (s *DirectorySource) Stop() {
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
