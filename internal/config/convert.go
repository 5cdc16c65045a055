package config

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/compositor"
	"github.com/MeKo-Tech/lingolens/internal/detector"
	"github.com/MeKo-Tech/lingolens/internal/filter"
	"github.com/MeKo-Tech/lingolens/internal/pipeline"
	"github.com/MeKo-Tech/lingolens/internal/server"
	"github.com/MeKo-Tech/lingolens/internal/translation"
	"github.com/MeKo-Tech/lingolens/internal/utils"
)

// ToDetectorConfig converts the detector section.
func (c *Config) ToDetectorConfig() detector.Config {
	d := c.Detector
	return detector.Config{
		MinConfidence:   d.MinConfidence,
		ContrastBoost:   d.ContrastBoost,
		SharpenSigma:    d.SharpenSigma,
		UpscaleFactor:   d.UpscaleFactor,
		MergeOverlap:    d.MergeOverlap,
		LanguageHints:   slices.Clone(d.LanguageHints),
		InvertedPass:    d.InvertedPass,
		EngineVariables: maps.Clone(d.EngineVariables),
	}
}

// ToFilterConfig converts the filter section.
func (c *Config) ToFilterConfig() filter.Config {
	return filter.Config{
		MinConfidence:  c.Filter.MinConfidence,
		LatinThreshold: c.Filter.LatinThreshold,
	}
}

// ToCompositorConfig converts the compositor section, parsing the fallback colour.
func (c *Config) ToCompositorConfig() (compositor.Config, error) {
	cc := c.Compositor
	cfg := compositor.Config{
		Margin:          cc.Margin,
		SampleInset:     cc.SampleInset,
		FontScale:       cc.FontScale,
		MinFontSize:     cc.MinFontSize,
		PaddingFraction: cc.PaddingFraction,
		AvgCharWidth:    cc.AvgCharWidth,
		Fallback:        compositor.DefaultConfig().Fallback,
		DebugOutline:    cc.DebugOutline,
	}
	if cc.FallbackColor != "" {
		col, err := compositor.ParseColor(cc.FallbackColor)
		if err != nil {
			return compositor.Config{}, err
		}
		cfg.Fallback = col
	}
	if err := cfg.Validate(); err != nil {
		return compositor.Config{}, err
	}
	return cfg, nil
}

// ToPipelineConfig converts the pipeline section.
func (c *Config) ToPipelineConfig() pipeline.Config {
	p := c.Pipeline
	constraints := utils.DefaultImageConstraints()
	if p.MaxImageSize > 0 {
		constraints.MaxWidth = p.MaxImageSize
		constraints.MaxHeight = p.MaxImageSize
	}
	return pipeline.Config{
		StatsWindow:     p.StatsWindow,
		BufferCapacity:  p.BufferCapacity,
		OutputBuffer:    p.OutputBuffer,
		SkipUnchanged:   p.SkipUnchanged,
		MaxHashDistance: p.MaxHashDistance,
		Constraints:     constraints,
	}
}

// ToServerConfig converts the server section. The capture section supplies
// the default start target and frame rate.
func (c *Config) ToServerConfig() server.Config {
	s := c.Server
	return server.Config{
		Host:             s.Host,
		Port:             s.Port,
		CORSOrigin:       s.CORSOrigin,
		MaxUploadMB:      int64(s.MaxUploadMB),
		TimeoutSec:       s.TimeoutSec,
		DefaultTarget:    c.Capture.Target,
		DefaultFrameRate: c.Capture.FrameRate,
		SendImages:       s.SendImages,
		ClientQueue:      s.ClientQueue,
		RateLimit: server.RateLimitConfig{
			RequestsPerMinute: s.RateLimit.RequestsPerMinute,
			MaxDataPerDay:     s.RateLimit.MaxDataPerDay,
		},
	}
}

// ToHTTPTranslatorConfig converts the HTTP backend section.
func (c *Config) ToHTTPTranslatorConfig() translation.HTTPConfig {
	h := c.Translation.HTTP
	cfg := translation.DefaultHTTPConfig()
	cfg.Endpoint = h.Endpoint
	if h.Source != "" {
		cfg.Source = h.Source
	}
	if h.Target != "" {
		cfg.Target = h.Target
	}
	cfg.APIKey = h.APIKey
	if h.TimeoutSec > 0 {
		cfg.Timeout = time.Duration(h.TimeoutSec) * time.Second
	}
	if h.MaxRetries >= 0 {
		cfg.Retry.MaxRetries = h.MaxRetries
	}
	if h.BreakerThreshold > 0 {
		cfg.Breaker.Threshold = h.BreakerThreshold
	}
	if h.BreakerResetSec > 0 {
		cfg.Breaker.ResetTimeout = time.Duration(h.BreakerResetSec) * time.Second
	}
	return cfg
}

// NewTranslator builds the configured translation backend. The glossary
// backend without a glossary file translates nothing, which leaves every
// region untranslated but keeps the pipeline usable for inspection.
func (c *Config) NewTranslator() (translation.Translator, error) {
	switch c.Translation.Backend {
	case BackendHTTP:
		tr, err := translation.NewHTTPTranslator(c.ToHTTPTranslatorConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP translator: %w", err)
		}
		return tr, nil
	case BackendGlossary, "":
		if c.Translation.Glossary == "" {
			return translation.NewStaticTranslator(nil), nil
		}
		tr, err := translation.LoadGlossary(c.Translation.Glossary)
		if err != nil {
			return nil, fmt.Errorf("failed to load glossary: %w", err)
		}
		return tr, nil
	default:
		return nil, fmt.Errorf("unknown translation backend %q", c.Translation.Backend)
	}
}

// NewCache builds the configured translation cache.
func (c *Config) NewCache() (translation.Cache, error) {
	return translation.NewCache(c.Translation.CachePolicy, c.Translation.CacheCapacity)
}
