package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/resilience"
)

// HTTPConfig configures a LibreTranslate-compatible HTTP translator.
type HTTPConfig struct {
	Endpoint string        // Base URL, e.g. http://localhost:5000
	Source   string        // Source language code (default: zh)
	Target   string        // Target language code (default: en)
	APIKey   string        // Optional API key
	Timeout  time.Duration // Per-request timeout (default: 10s)
	Retry    resilience.RetryConfig
	Breaker  resilience.BreakerConfig
}

// DefaultHTTPConfig returns defaults for a local LibreTranslate instance.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Endpoint: "http://localhost:5000",
		Source:   "zh",
		Target:   "en",
		Timeout:  10 * time.Second,
		Retry:    resilience.DefaultRetryConfig(),
		Breaker:  resilience.DefaultBreakerConfig(),
	}
}

// HTTPTranslator calls a LibreTranslate-compatible JSON API.
type HTTPTranslator struct {
	cfg     HTTPConfig
	client  *http.Client
	breaker *resilience.Breaker
}

// NewHTTPTranslator creates a translator for cfg.
func NewHTTPTranslator(cfg HTTPConfig) (*HTTPTranslator, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("translation endpoint cannot be empty")
	}
	if cfg.Source == "" || cfg.Target == "" {
		return nil, errors.New("source and target languages are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &HTTPTranslator{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.NewBreaker(cfg.Breaker),
	}, nil
}

type languageInfo struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Targets []string `json:"targets"`
}

type translateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText []string `json:"translatedText"`
	Error          string   `json:"error,omitempty"`
}

// Prepare checks that the service lists the configured language pair.
func (t *HTTPTranslator) Prepare(ctx context.Context) error {
	var langs []languageInfo
	err := resilience.Retry(ctx, t.cfg.Retry, func() error {
		return t.do(ctx, http.MethodGet, "/languages", nil, &langs)
	})
	if err != nil {
		return fmt.Errorf("query languages: %w", err)
	}
	for _, l := range langs {
		if l.Code != t.cfg.Source {
			continue
		}
		// Older servers omit targets and translate between every listed language.
		if len(l.Targets) == 0 || slices.Contains(l.Targets, t.cfg.Target) {
			slog.Info("Translation service ready", "endpoint", t.cfg.Endpoint, "source", t.cfg.Source, "target", t.cfg.Target)
			return nil
		}
	}
	return fmt.Errorf("%w: %s->%s", ErrLanguagePairUnavailable, t.cfg.Source, t.cfg.Target)
}

// TranslateBatch translates texts in one request.
func (t *HTTPTranslator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	req := translateRequest{
		Q:      texts,
		Source: t.cfg.Source,
		Target: t.cfg.Target,
		Format: "text",
		APIKey: t.cfg.APIKey,
	}
	var resp translateResponse
	err := resilience.Retry(ctx, t.cfg.Retry, func() error {
		_, err := resilience.ExecuteWithResult(t.breaker, func() (struct{}, error) {
			return struct{}{}, t.do(ctx, http.MethodPost, "/translate", req, &resp)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(resp.TranslatedText) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrBatchMismatch, len(texts), len(resp.TranslatedText))
	}
	return resp.TranslatedText, nil
}

// BreakerState reports the circuit breaker state guarding the service.
func (t *HTTPTranslator) BreakerState() resilience.BreakerState {
	return t.breaker.State()
}

func (t *HTTPTranslator) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("encode request: %w", err))
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.cfg.Endpoint+path, rdr)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("build request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s %s: server returned %d", method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return resilience.Permanent(fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data))))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resilience.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
