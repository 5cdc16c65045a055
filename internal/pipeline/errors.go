package pipeline

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyRunning is returned by Start unless the orchestrator is idle.
	ErrAlreadyRunning = errors.New("pipeline: already running")
	// ErrStreamEnded is recorded when the capture stream closes while running.
	ErrStreamEnded = errors.New("pipeline: capture stream ended")
	// ErrNotRestartable is returned by Restart before any successful Start parameters exist.
	ErrNotRestartable = errors.New("pipeline: nothing to restart")
)

// SetupError reports a failure while starting the pipeline. The orchestrator
// is left in StateError.
type SetupError struct {
	Stage string // "translator" or "capture"
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("pipeline setup failed at %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// Stage names used in FrameError.
const (
	StageValidate  = "validate"
	StageDetect    = "detect"
	StageTranslate = "translate"
	StageRender    = "render"
	StagePanic     = "panic"
)

// FrameError reports a failure processing one frame. The frame is skipped and
// the pipeline keeps running.
type FrameError struct {
	Stage      string
	CapturedAt time.Time
	Err        error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame captured at %s failed at %s: %v", e.CapturedAt.Format(time.RFC3339Nano), e.Stage, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }
