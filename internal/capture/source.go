// Package capture supplies frames to the pipeline. Platform screen capture is
// out of scope; the sources here replay images or relay frames pushed by an
// embedding application.
package capture

import (
	"context"
	"errors"
	"image"
	"time"
)

// ErrTargetUnavailable is returned by Start when the capture target cannot be opened.
var ErrTargetUnavailable = errors.New("capture: target unavailable")

// ErrAlreadyStarted is returned by Start on a source that is already producing frames.
var ErrAlreadyStarted = errors.New("capture: source already started")

// Frame is one captured image.
type Frame struct {
	Image       image.Image
	ContentRect image.Rectangle // Region of Image showing the target window
	CapturedAt  time.Time
	Source      string // Where the frame came from, e.g. a file path
}

// Source produces frames for a target at roughly frameRate frames per second.
// The returned channel is closed when the source ends or Stop is called.
type Source interface {
	Start(ctx context.Context, target string, frameRate float64) (<-chan Frame, error)
	Stop()
}

// FrameInterval converts a frame rate to the delay between frames.
func FrameInterval(frameRate float64) time.Duration {
	if frameRate <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / frameRate)
}
