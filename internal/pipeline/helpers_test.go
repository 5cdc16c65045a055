package pipeline

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/capture"
	"github.com/MeKo-Tech/lingolens/internal/compositor"
	"github.com/MeKo-Tech/lingolens/internal/detector"
	"github.com/MeKo-Tech/lingolens/internal/filter"
	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/MeKo-Tech/lingolens/internal/testutil"
	"github.com/MeKo-Tech/lingolens/internal/translation"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/stretchr/testify/require"
)

var errScripted = errors.New("scripted recognition failure")

const waitTimeout = 5 * time.Second

// scriptedRecognizer answers the primary pass with primary and the inverted
// pass with inverted. Test frames have a light top-left corner, so the
// inverted pass is recognised by a dark one.
type scriptedRecognizer struct {
	mu       sync.Mutex
	primary  []detector.Observation
	inverted []detector.Observation
	failures int           // primary passes left to fail
	calls    int           // primary passes seen
	gate     chan struct{} // when set, primary passes wait for it
}

func (r *scriptedRecognizer) Recognize(ctx context.Context, img image.Image, _ []string) ([]detector.Observation, error) {
	b := img.Bounds()
	if utils.Luminance(img.At(b.Min.X, b.Min.Y)) < 0.5 {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.inverted, nil
	}

	r.mu.Lock()
	r.calls++
	gate := r.gate
	fail := r.failures > 0
	if fail {
		r.failures--
	}
	obs := r.primary
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errScripted
	}
	return obs, nil
}

func (r *scriptedRecognizer) primaryCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *scriptedRecognizer) script(primary, inverted []detector.Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.primary, r.inverted = primary, inverted
}

func (r *scriptedRecognizer) failNext(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = n
}

func (r *scriptedRecognizer) hold() chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
	return r.gate
}

func observation(text string, conf float64, box region.Box) detector.Observation {
	return detector.Observation{Candidates: []detector.Candidate{{Text: text, Confidence: conf}}, Box: box}
}

func fixtureObservations(obs []testutil.FixtureObservation) []detector.Observation {
	out := make([]detector.Observation, 0, len(obs))
	for _, o := range obs {
		out = append(out, observation(o.Text, o.Confidence, o.RegionBox()))
	}
	return out
}

// flakyTranslator fails Prepare a number of times before delegating.
type flakyTranslator struct {
	*translation.StaticTranslator
	mu       sync.Mutex
	failures int
}

func (f *flakyTranslator) Prepare(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return translation.ErrLanguagePairUnavailable
	}
	return f.StaticTranslator.Prepare(ctx)
}

// recordingListener keeps every event for assertions.
type recordingListener struct {
	mu     sync.Mutex
	states []StateChange
	frames []TranslatedFrame
	errs   []*FrameError
}

func (l *recordingListener) OnStateChange(c StateChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, c)
}

func (l *recordingListener) OnFrame(f TranslatedFrame, _ Stats) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, f)
}

func (l *recordingListener) OnFrameError(err *FrameError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *recordingListener) transitions() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]State, 0, len(l.states))
	for _, c := range l.states {
		out = append(out, c.To)
	}
	return out
}

func (l *recordingListener) frameErrors() []*FrameError {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*FrameError(nil), l.errs...)
}

type harness struct {
	t          *testing.T
	rec        *scriptedRecognizer
	source     *capture.ChannelSource
	translator *translation.StaticTranslator
	batcher    *translation.Batcher
	events     *recordingListener
	orch       *Orchestrator
	clock      time.Time
}

func newHarness(t *testing.T, cfg Config, glossary map[string]string) *harness {
	t.Helper()

	rec := &scriptedRecognizer{}
	det, err := detector.New(detector.DefaultConfig(), rec)
	require.NoError(t, err)
	cache, err := translation.NewCache(translation.PolicyLRU, 100)
	require.NoError(t, err)
	comp, err := compositor.New(compositor.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = comp.Close() })

	h := &harness{
		t:          t,
		rec:        rec,
		source:     capture.NewChannelSource(16),
		translator: translation.NewStaticTranslator(glossary),
		batcher:    translation.NewBatcher(cache),
		events:     &recordingListener{},
		clock:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	h.orch, err = New(cfg, Deps{
		Detector:   det,
		Filter:     filter.New(filter.DefaultConfig()),
		Batcher:    h.batcher,
		Compositor: comp,
		Source:     h.source,
	})
	require.NoError(t, err)
	h.orch.Subscribe(h.events)
	t.Cleanup(h.orch.Stop)
	return h
}

func (h *harness) start() <-chan TranslatedFrame {
	h.t.Helper()
	out, err := h.orch.Start(context.Background(), "test-window", h.translator, 2)
	require.NoError(h.t, err)
	return out
}

// push enqueues img with a capture time one millisecond after the previous push.
func (h *harness) push(img image.Image) capture.Frame {
	h.t.Helper()
	h.clock = h.clock.Add(time.Millisecond)
	f := capture.Frame{Image: img, ContentRect: img.Bounds(), CapturedAt: h.clock, Source: "test"}
	require.True(h.t, h.source.Push(context.Background(), f))
	return f
}

func (h *harness) waitState(want State) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.orch.State() == want },
		waitTimeout, 5*time.Millisecond, "state never became %s", want)
}

func receive(t *testing.T, ch <-chan TranslatedFrame) TranslatedFrame {
	t.Helper()
	select {
	case f, ok := <-ch:
		require.True(t, ok, "output closed")
		return f
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a translated frame")
	}
	return TranslatedFrame{}
}

func requireClosed(t *testing.T, ch <-chan TranslatedFrame) {
	t.Helper()
	select {
	case _, ok := <-ch:
		require.False(t, ok, "unexpected frame on output")
	case <-time.After(waitTimeout):
		t.Fatal("output was not closed")
	}
}
