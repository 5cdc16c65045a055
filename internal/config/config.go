package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/lingolens/internal/translation"
)

// Translation backends selectable in configuration.
const (
	BackendGlossary = "glossary"
	BackendHTTP     = "http"
)

// Config represents the complete configuration for lingolens. It covers every
// command (run, translate, serve) and supports loading from configuration
// files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Capture     CaptureConfig     `mapstructure:"capture" yaml:"capture" json:"capture"`
	Detector    DetectorConfig    `mapstructure:"detector" yaml:"detector" json:"detector"`
	Filter      FilterConfig      `mapstructure:"filter" yaml:"filter" json:"filter"`
	Translation TranslationConfig `mapstructure:"translation" yaml:"translation" json:"translation"`
	Compositor  CompositorConfig  `mapstructure:"compositor" yaml:"compositor" json:"compositor"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output" json:"output"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server" json:"server"`
}

// CaptureConfig selects the frame source used by the run command.
type CaptureConfig struct {
	Target    string  `mapstructure:"target" yaml:"target" json:"target"` // directory of frames
	FrameRate float64 `mapstructure:"frame_rate" yaml:"frame_rate" json:"frame_rate"`
	Loop      bool    `mapstructure:"loop" yaml:"loop" json:"loop"`
}

// DetectorConfig contains text detection settings.
type DetectorConfig struct {
	MinConfidence   float64           `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	ContrastBoost   float64           `mapstructure:"contrast_boost" yaml:"contrast_boost" json:"contrast_boost"`
	SharpenSigma    float64           `mapstructure:"sharpen_sigma" yaml:"sharpen_sigma" json:"sharpen_sigma"`
	UpscaleFactor   float64           `mapstructure:"upscale_factor" yaml:"upscale_factor" json:"upscale_factor"`
	MergeOverlap    float64           `mapstructure:"merge_overlap" yaml:"merge_overlap" json:"merge_overlap"`
	LanguageHints   []string          `mapstructure:"language_hints" yaml:"language_hints" json:"language_hints"`
	InvertedPass    bool              `mapstructure:"inverted_pass" yaml:"inverted_pass" json:"inverted_pass"`
	EngineVariables map[string]string `mapstructure:"engine_variables" yaml:"engine_variables,omitempty" json:"engine_variables,omitempty"`
}

// FilterConfig contains the candidate filter thresholds.
type FilterConfig struct {
	MinConfidence  float64 `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	LatinThreshold float64 `mapstructure:"latin_threshold" yaml:"latin_threshold" json:"latin_threshold"`
}

// TranslationConfig selects the translation backend and the cache policy.
type TranslationConfig struct {
	Backend       string     `mapstructure:"backend" yaml:"backend" json:"backend"`
	Glossary      string     `mapstructure:"glossary" yaml:"glossary" json:"glossary"`
	CachePolicy   string     `mapstructure:"cache_policy" yaml:"cache_policy" json:"cache_policy"`
	CacheCapacity int        `mapstructure:"cache_capacity" yaml:"cache_capacity" json:"cache_capacity"`
	HTTP          HTTPConfig `mapstructure:"http" yaml:"http" json:"http"`
}

// HTTPConfig configures the LibreTranslate-compatible backend.
type HTTPConfig struct {
	Endpoint         string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Source           string `mapstructure:"source" yaml:"source" json:"source"`
	Target           string `mapstructure:"target" yaml:"target" json:"target"`
	APIKey           string `mapstructure:"api_key" yaml:"api_key" json:"-"`
	TimeoutSec       int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	MaxRetries       int    `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
	BreakerThreshold int    `mapstructure:"breaker_threshold" yaml:"breaker_threshold" json:"breaker_threshold"`
	BreakerResetSec  int    `mapstructure:"breaker_reset_sec" yaml:"breaker_reset_sec" json:"breaker_reset_sec"`
}

// CompositorConfig controls overlay rendering.
type CompositorConfig struct {
	Margin          int     `mapstructure:"margin" yaml:"margin" json:"margin"`
	SampleInset     int     `mapstructure:"sample_inset" yaml:"sample_inset" json:"sample_inset"`
	FontScale       float64 `mapstructure:"font_scale" yaml:"font_scale" json:"font_scale"`
	MinFontSize     float64 `mapstructure:"min_font_size" yaml:"min_font_size" json:"min_font_size"`
	PaddingFraction float64 `mapstructure:"padding_fraction" yaml:"padding_fraction" json:"padding_fraction"`
	AvgCharWidth    float64 `mapstructure:"avg_char_width" yaml:"avg_char_width" json:"avg_char_width"`
	FallbackColor   string  `mapstructure:"fallback_color" yaml:"fallback_color" json:"fallback_color"`
	DebugOutline    bool    `mapstructure:"debug_outline" yaml:"debug_outline" json:"debug_outline"`
}

// PipelineConfig contains orchestrator settings.
type PipelineConfig struct {
	StatsWindow     int  `mapstructure:"stats_window" yaml:"stats_window" json:"stats_window"`
	BufferCapacity  int  `mapstructure:"buffer_capacity" yaml:"buffer_capacity" json:"buffer_capacity"`
	OutputBuffer    int  `mapstructure:"output_buffer" yaml:"output_buffer" json:"output_buffer"`
	SkipUnchanged   bool `mapstructure:"skip_unchanged" yaml:"skip_unchanged" json:"skip_unchanged"`
	MaxHashDistance int  `mapstructure:"max_hash_distance" yaml:"max_hash_distance" json:"max_hash_distance"`
	MaxImageSize    int  `mapstructure:"max_image_size" yaml:"max_image_size" json:"max_image_size"`
}

// OutputConfig contains output settings for the run and translate commands.
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	SendImages      bool            `mapstructure:"send_images" yaml:"send_images" json:"send_images"`
	ClientQueue     int             `mapstructure:"client_queue" yaml:"client_queue" json:"client_queue"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig limits one-shot translation requests per client.
type RateLimitConfig struct {
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Capture: CaptureConfig{
			FrameRate: 1,
		},
		Detector: DetectorConfig{
			MinConfidence: 0.3,
			ContrastBoost: 20,
			SharpenSigma:  1.0,
			UpscaleFactor: 2,
			MergeOverlap:  0.5,
			LanguageHints: []string{"zh-Hans"},
			InvertedPass:  true,
		},
		Filter: FilterConfig{
			MinConfidence:  0.5,
			LatinThreshold: 0.7,
		},
		Translation: TranslationConfig{
			Backend:       BackendGlossary,
			CachePolicy:   translation.PolicyLRU,
			CacheCapacity: translation.DefaultCacheCapacity,
			HTTP: HTTPConfig{
				Endpoint:         "http://localhost:5000",
				Source:           "zh",
				Target:           "en",
				TimeoutSec:       10,
				MaxRetries:       3,
				BreakerThreshold: 5,
				BreakerResetSec:  30,
			},
		},
		Compositor: CompositorConfig{
			Margin:          2,
			SampleInset:     2,
			FontScale:       0.8,
			MinFontSize:     8,
			PaddingFraction: 0.05,
			AvgCharWidth:    0.55,
			FallbackColor:   "#ffffff",
		},
		Pipeline: PipelineConfig{
			StatsWindow:     30,
			BufferCapacity:  2,
			OutputBuffer:    1,
			MaxHashDistance: 4,
			MaxImageSize:    8192,
		},
		Output: OutputConfig{
			Dir: "translated",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			ClientQueue:     16,
		},
	}
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("invalid log level %q (want one of %s)", c.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	if c.Capture.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("capture frame rate must be positive, got %v", c.Capture.FrameRate))
	}
	if err := c.ToDetectorConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}
	if err := c.ToFilterConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("filter: %w", err))
	}
	if err := c.validateTranslation(); err != nil {
		errs = append(errs, fmt.Errorf("translation: %w", err))
	}
	if _, err := c.ToCompositorConfig(); err != nil {
		errs = append(errs, fmt.Errorf("compositor: %w", err))
	}
	if c.Pipeline.StatsWindow < 1 || c.Pipeline.BufferCapacity < 1 {
		errs = append(errs, errors.New("pipeline: stats window and buffer capacity must be at least 1"))
	}
	if c.Pipeline.OutputBuffer < 0 || c.Pipeline.MaxHashDistance < 0 {
		errs = append(errs, errors.New("pipeline: output buffer and max hash distance cannot be negative"))
	}
	if c.Pipeline.MaxImageSize < 1 {
		errs = append(errs, fmt.Errorf("pipeline: max image size must be positive, got %d", c.Pipeline.MaxImageSize))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server: invalid port number %d (must be between 1 and 65535)", c.Server.Port))
	}
	if c.Server.MaxUploadMB < 1 || c.Server.TimeoutSec < 1 {
		errs = append(errs, errors.New("server: max upload size and timeout must be positive"))
	}
	if c.Server.RateLimit.RequestsPerMinute < 0 || c.Server.RateLimit.MaxDataPerDay < 0 {
		errs = append(errs, errors.New("server: rate limits cannot be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateTranslation() error {
	t := c.Translation
	switch t.Backend {
	case BackendGlossary:
	case BackendHTTP:
		if strings.TrimSpace(t.HTTP.Endpoint) == "" {
			return errors.New("http backend requires an endpoint")
		}
		if t.HTTP.TimeoutSec < 1 {
			return fmt.Errorf("http timeout must be positive, got %d", t.HTTP.TimeoutSec)
		}
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", t.Backend, BackendGlossary, BackendHTTP)
	}
	if t.CacheCapacity < 1 {
		return fmt.Errorf("cache capacity must be at least 1, got %d", t.CacheCapacity)
	}
	if t.CachePolicy != translation.PolicyLRU && t.CachePolicy != translation.PolicyClear {
		return fmt.Errorf("unknown cache policy %q", t.CachePolicy)
	}
	return nil
}
