// Package pipeline drives captured frames through detection, filtering,
// translation and compositing, and owns the pipeline lifecycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/capture"
	"github.com/MeKo-Tech/lingolens/internal/translation"
)

// runParams are the arguments of the last Start, reused by Restart.
type runParams struct {
	target     string
	translator translation.Translator
	frameRate  float64
}

// run is one Start..Stop cycle of the frame loop.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}
	ring   *capture.RingBuffer
}

// Orchestrator owns the lifecycle of one pipeline. It is safe for concurrent
// use; Start, Stop and Restart are serialized.
type Orchestrator struct {
	config    Config
	deps      Deps
	listeners *listenerSet
	stats     *rollingStats
	dropped   atomic.Int64 // frames dropped by finished runs

	opMu sync.Mutex // serializes Start, Stop and Restart

	mu      sync.Mutex
	state   State
	lastErr error
	current *run
	params  *runParams
}

// New creates an idle orchestrator. Every stage in deps is required.
func New(config Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Detector == nil:
		return nil, errors.New("pipeline: detector is required")
	case deps.Filter == nil:
		return nil, errors.New("pipeline: filter is required")
	case deps.Batcher == nil:
		return nil, errors.New("pipeline: batcher is required")
	case deps.Compositor == nil:
		return nil, errors.New("pipeline: compositor is required")
	case deps.Source == nil:
		return nil, errors.New("pipeline: frame source is required")
	}
	config = config.withDefaults()
	return &Orchestrator{
		config:    config,
		deps:      deps,
		listeners: newListenerSet(),
		stats:     newRollingStats(config.StatsWindow),
	}, nil
}

// Subscribe registers a listener and returns a function that removes it.
func (o *Orchestrator) Subscribe(l Listener) func() {
	return o.listeners.add(l)
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastError returns the error that moved the pipeline into StateError, or nil.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

type batcherStats interface {
	Stats() translation.BatcherStats
}

// Stats returns a snapshot of the pipeline statistics.
func (o *Orchestrator) Stats() Stats {
	st := o.stats.snapshot()
	o.mu.Lock()
	st.State = o.state
	cur := o.current
	o.mu.Unlock()

	st.DroppedFrames = o.dropped.Load()
	if cur != nil {
		st.DroppedFrames += cur.ring.Dropped()
	}
	if bs, ok := o.deps.Batcher.(batcherStats); ok {
		b := bs.Stats()
		st.CacheHits, st.CacheMisses, st.CacheSize = b.Hits, b.Misses, b.CacheSize
	}
	return st
}

// Start prepares the translator, opens the frame source for target and starts
// the frame loop. It returns as soon as the loop runs; translated frames are
// delivered on the returned channel, which is closed when the loop ends.
// Start fails with ErrAlreadyRunning unless the pipeline is idle. Setup
// failures leave the pipeline in StateError and are returned as *SetupError.
func (o *Orchestrator) Start(ctx context.Context, target string, tr translation.Translator, frameRate float64) (<-chan TranslatedFrame, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	return o.start(ctx, runParams{target: target, translator: tr, frameRate: frameRate})
}

func (o *Orchestrator) start(ctx context.Context, p runParams) (<-chan TranslatedFrame, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	o.params = &p
	o.mu.Unlock()
	o.transition(StateIdle, StateStarting, nil)

	if p.translator == nil {
		return nil, o.setupFailed("translator", errNilTranslator)
	}
	if err := p.translator.Prepare(ctx); err != nil {
		return nil, o.setupFailed("translator", err)
	}

	// The loop outlives the caller's ctx; only Stop ends it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	frames, err := o.deps.Source.Start(runCtx, p.target, p.frameRate)
	if err != nil {
		cancel()
		return nil, o.setupFailed("capture", err)
	}

	r := &run{
		cancel: cancel,
		done:   make(chan struct{}),
		ring:   capture.NewRingBuffer(o.config.BufferCapacity),
	}
	buffered := r.ring.Relay(runCtx, frames)
	out := make(chan TranslatedFrame, o.config.OutputBuffer)

	o.mu.Lock()
	o.current = r
	o.lastErr = nil
	o.mu.Unlock()
	o.transition(StateStarting, StateRunning, nil)

	slog.Info("Pipeline started", "target", p.target, "frame_rate", p.frameRate)
	go o.loop(runCtx, r, buffered, out, p.translator)
	return out, nil
}

func (o *Orchestrator) setupFailed(stage string, err error) error {
	setupErr := &SetupError{Stage: stage, Err: err}
	o.transition(StateStarting, StateError, setupErr)
	return setupErr
}

// Stop cancels the frame loop, releases the frame source and returns the
// pipeline to idle. It only acts while running; in any other state it is a no-op.
func (o *Orchestrator) Stop() {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	o.stop()
}

func (o *Orchestrator) stop() {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return
	}
	r := o.current
	o.mu.Unlock()
	o.transition(StateRunning, StateStopping, nil)

	r.cancel()
	<-r.done
	o.deps.Source.Stop()
	o.retire(r)
	o.transition(StateStopping, StateIdle, nil)
	slog.Info("Pipeline stopped")
}

// Restart starts the pipeline again with the parameters of the last Start.
// A running pipeline is stopped first; a pipeline in StateError is reset.
// The translation cache is kept.
func (o *Orchestrator) Restart(ctx context.Context) (<-chan TranslatedFrame, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.mu.Lock()
	state, params := o.state, o.params
	r := o.current
	o.mu.Unlock()
	if params == nil {
		return nil, ErrNotRestartable
	}

	switch state {
	case StateRunning:
		o.stop()
	case StateError:
		if r != nil {
			r.cancel()
			<-r.done
			o.deps.Source.Stop()
			o.retire(r)
		}
		o.transition(StateError, StateIdle, nil)
	}
	return o.start(ctx, *params)
}

// retire folds a finished run's counters into the orchestrator totals.
func (o *Orchestrator) retire(r *run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != r {
		return
	}
	o.dropped.Add(r.ring.Dropped())
	o.current = nil
}

// transition moves from one state to another and notifies listeners. It is a
// no-op when the current state is no longer from.
func (o *Orchestrator) transition(from, to State, err error) bool {
	o.mu.Lock()
	if o.state != from {
		o.mu.Unlock()
		return false
	}
	o.state = to
	if to == StateError {
		o.lastErr = err
	}
	o.mu.Unlock()

	change := StateChange{From: from, To: to, Err: err, At: time.Now()}
	slog.Debug("Pipeline state changed", "from", from.String(), "to", to.String())
	o.listeners.stateChange(change)
	return true
}

func (o *Orchestrator) loop(ctx context.Context, r *run, frames <-chan capture.Frame, out chan<- TranslatedFrame, tr translation.Translator) {
	defer close(r.done)
	defer close(out)

	var mem *frameMemory
	if o.config.SkipUnchanged {
		mem = newFrameMemory(o.config.MaxHashDistance)
	}

	for {
		var (
			frame capture.Frame
			ok    bool
		)
		select {
		case <-ctx.Done():
			return
		case frame, ok = <-frames:
		}
		if !ok {
			if ctx.Err() == nil {
				o.streamEnded(r)
			}
			return
		}

		tf, err := o.safeProcess(ctx, frame, tr, mem)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			o.frameFailed(frame, err)
			continue
		}

		o.stats.recordFrame(tf.ProcessingDuration, tf.CaptureTime, tf.Reused)
		select {
		case out <- tf:
		case <-ctx.Done():
			return
		}
		o.listeners.frame(tf, o.Stats())
	}
}

// safeProcess contains a panicking stage to the frame it happened on.
func (o *Orchestrator) safeProcess(ctx context.Context, frame capture.Frame, tr translation.Translator, mem *frameMemory) (tf TranslatedFrame, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &FrameError{Stage: StagePanic, CapturedAt: frame.CapturedAt, Err: fmt.Errorf("recovered: %v", rec)}
		}
	}()
	return o.processFrame(ctx, frame, tr, mem)
}

func (o *Orchestrator) frameFailed(frame capture.Frame, err error) {
	o.stats.recordError()
	var fe *FrameError
	if !errors.As(err, &fe) {
		fe = &FrameError{Stage: "unknown", CapturedAt: frame.CapturedAt, Err: err}
	}
	slog.Warn("Skipping frame", "stage", fe.Stage, "source", frame.Source, "error", fe.Err)
	o.listeners.frameError(fe)
}

// streamEnded handles the frame source closing on its own while running. The
// source is released before the error state becomes visible.
func (o *Orchestrator) streamEnded(r *run) {
	o.mu.Lock()
	running := o.state == StateRunning
	o.mu.Unlock()
	if !running {
		return
	}
	r.cancel()
	o.deps.Source.Stop()
	if o.transition(StateRunning, StateError, ErrStreamEnded) {
		slog.Error("Capture stream ended unexpectedly")
	}
}
