package translation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHTTPConfig(url string) HTTPConfig {
	cfg := DefaultHTTPConfig()
	cfg.Endpoint = url + "/"
	cfg.Retry = resilience.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	return cfg
}

func languagesHandler(w http.ResponseWriter, _ *http.Request) {
	_ = json.NewEncoder(w).Encode([]languageInfo{
		{Code: "en", Name: "English", Targets: []string{"zh"}},
		{Code: "zh", Name: "Chinese", Targets: []string{"en", "ja"}},
	})
}

func TestNewHTTPTranslatorValidates(t *testing.T) {
	_, err := NewHTTPTranslator(HTTPConfig{Source: "zh", Target: "en"})
	require.Error(t, err)
	_, err = NewHTTPTranslator(HTTPConfig{Endpoint: "http://x"})
	require.Error(t, err)
}

func TestHTTPTranslatorPrepare(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /languages", languagesHandler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tr, err := NewHTTPTranslator(testHTTPConfig(srv.URL))
	require.NoError(t, err)
	require.NoError(t, tr.Prepare(context.Background()))

	cfg := testHTTPConfig(srv.URL)
	cfg.Target = "de"
	tr, err = NewHTTPTranslator(cfg)
	require.NoError(t, err)
	require.ErrorIs(t, tr.Prepare(context.Background()), ErrLanguagePairUnavailable)
}

func TestHTTPTranslatorTranslateBatch(t *testing.T) {
	var got translateRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /translate", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		out := make([]string, len(got.Q))
		for i, q := range got.Q {
			out[i] = "T(" + q + ")"
		}
		_ = json.NewEncoder(w).Encode(translateResponse{TranslatedText: out})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testHTTPConfig(srv.URL)
	cfg.APIKey = "secret"
	tr, err := NewHTTPTranslator(cfg)
	require.NoError(t, err)

	out, err := tr.TranslateBatch(context.Background(), []string{"你好", "世界"})
	require.NoError(t, err)
	assert.Equal(t, []string{"T(你好)", "T(世界)"}, out)
	assert.Equal(t, "zh", got.Source)
	assert.Equal(t, "en", got.Target)
	assert.Equal(t, "text", got.Format)
	assert.Equal(t, "secret", got.APIKey)

	empty, err := tr.TranslateBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHTTPTranslatorRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(translateResponse{TranslatedText: []string{"Hi"}})
	}))
	defer srv.Close()

	tr, err := NewHTTPTranslator(testHTTPConfig(srv.URL))
	require.NoError(t, err)
	out, err := tr.TranslateBatch(context.Background(), []string{"你好"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi"}, out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPTranslatorDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tr, err := NewHTTPTranslator(testHTTPConfig(srv.URL))
	require.NoError(t, err)
	_, err = tr.TranslateBatch(context.Background(), []string{"你好"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPTranslatorLengthMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(translateResponse{TranslatedText: []string{"only one"}})
	}))
	defer srv.Close()

	tr, err := NewHTTPTranslator(testHTTPConfig(srv.URL))
	require.NoError(t, err)
	_, err = tr.TranslateBatch(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, ErrBatchMismatch)
}

func TestHTTPTranslatorBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testHTTPConfig(srv.URL)
	cfg.Retry.MaxRetries = 0
	cfg.Breaker = resilience.BreakerConfig{Threshold: 2, ResetTimeout: time.Hour}
	tr, err := NewHTTPTranslator(cfg)
	require.NoError(t, err)

	for range 2 {
		_, err = tr.TranslateBatch(context.Background(), []string{"你好"})
		require.Error(t, err)
	}
	assert.Equal(t, resilience.Open, tr.BreakerState())
	_, err = tr.TranslateBatch(context.Background(), []string{"你好"})
	require.ErrorIs(t, err, resilience.ErrOpen)
}
