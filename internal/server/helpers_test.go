package server

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/capture"
	"github.com/MeKo-Tech/lingolens/internal/compositor"
	"github.com/MeKo-Tech/lingolens/internal/detector"
	"github.com/MeKo-Tech/lingolens/internal/filter"
	"github.com/MeKo-Tech/lingolens/internal/pipeline"
	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/MeKo-Tech/lingolens/internal/testutil"
	"github.com/MeKo-Tech/lingolens/internal/translation"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/stretchr/testify/require"
)

var helloBox = region.NewBox(0.2, 0.2, 0.6, 0.6)

// helloRecognizer reports "你好世界" on the primary pass of a light frame.
func helloRecognizer() detector.Recognizer {
	return detector.RecognizerFunc(func(ctx context.Context, img image.Image, _ []string) ([]detector.Observation, error) {
		b := img.Bounds()
		if utils.Luminance(img.At(b.Min.X, b.Min.Y)) < 0.5 {
			return nil, ctx.Err()
		}
		return []detector.Observation{{
			Candidates: []detector.Candidate{{Text: "你好世界", Confidence: 0.95}},
			Box:        helloBox,
		}}, ctx.Err()
	})
}

type fixture struct {
	t      *testing.T
	srv    *Server
	orch   *pipeline.Orchestrator
	source *capture.ChannelSource
	tr     *translation.StaticTranslator
	ts     *httptest.Server
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	det, err := detector.New(detector.DefaultConfig(), helloRecognizer())
	require.NoError(t, err)
	cache, err := translation.NewCache(translation.PolicyLRU, 50)
	require.NoError(t, err)
	comp, err := compositor.New(compositor.DefaultConfig())
	require.NoError(t, err)
	source := capture.NewChannelSource(8)

	orch, err := pipeline.New(pipeline.DefaultConfig(), pipeline.Deps{
		Detector:   det,
		Filter:     filter.New(filter.DefaultConfig()),
		Batcher:    translation.NewBatcher(cache),
		Compositor: comp,
		Source:     source,
	})
	require.NoError(t, err)

	tr := translation.NewStaticTranslator(map[string]string{"你好世界": "Hello World"})
	if cfg.DefaultTarget == "" {
		cfg.DefaultTarget = "test-window"
	}
	srv, err := NewServer(cfg, orch, tr)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
		_ = comp.Close()
	})
	return &fixture{t: t, srv: srv, orch: orch, source: source, tr: tr, ts: ts}
}

func (f *fixture) post(path string, body []byte) *http.Response {
	f.t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, f.ts.URL+path, bytes.NewReader(body))
	require.NoError(f.t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) get(path string) *http.Response {
	f.t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, f.ts.URL+path, nil)
	require.NoError(f.t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) pushFrame() {
	f.t.Helper()
	img := testutil.GlyphFrame(testutil.SmallSize, color.White, helloBox)
	require.True(f.t, f.source.Push(context.Background(), capture.Frame{Image: img, CapturedAt: time.Now()}))
}

// uploadForm builds a multipart body with img under the "image" field.
func uploadForm(t *testing.T, img image.Image, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "frame.png")
	require.NoError(t, err)
	data, err := utils.EncodePNG(img)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func (f *fixture) upload(path string, body *bytes.Buffer, contentType string) *http.Response {
	f.t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, f.ts.URL+path, body)
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", contentType)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func bytesBuffer(s string) *bytes.Buffer {
	return bytes.NewBufferString(s)
}
