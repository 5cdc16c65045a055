package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/lingolens/internal/capture"
	"github.com/MeKo-Tech/lingolens/internal/compositor"
	"github.com/MeKo-Tech/lingolens/internal/config"
	"github.com/MeKo-Tech/lingolens/internal/detector"
	"github.com/MeKo-Tech/lingolens/internal/filter"
	"github.com/MeKo-Tech/lingolens/internal/pipeline"
	"github.com/MeKo-Tech/lingolens/internal/translation"
)

// newRecognizer creates the recognition engine. Tests replace it with a
// scripted recognizer.
var newRecognizer = detector.NewDefaultRecognizer

// newTranslator creates the translation backend from configuration.
var newTranslator = func(cfg *config.Config) (translation.Translator, error) {
	return cfg.NewTranslator()
}

// stack is an assembled pipeline with the collaborators it was built from.
type stack struct {
	orchestrator *pipeline.Orchestrator
	translator   translation.Translator
	compositor   *compositor.Compositor
}

// buildStack wires detector, filter, cache, batcher and compositor from cfg
// into an orchestrator reading from source.
func buildStack(cfg *config.Config, source capture.Source) (*stack, error) {
	detCfg := cfg.ToDetectorConfig()
	rec, err := newRecognizer(detCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}
	det, err := detector.New(detCfg, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	if err := cfg.ToFilterConfig().Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter config: %w", err)
	}

	cache, err := cfg.NewCache()
	if err != nil {
		return nil, fmt.Errorf("failed to create translation cache: %w", err)
	}

	compCfg, err := cfg.ToCompositorConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid compositor config: %w", err)
	}
	comp, err := compositor.New(compCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create compositor: %w", err)
	}

	tr, err := newTranslator(cfg)
	if err != nil {
		_ = comp.Close()
		return nil, err
	}

	orch, err := pipeline.New(cfg.ToPipelineConfig(), pipeline.Deps{
		Detector:   det,
		Filter:     filter.New(cfg.ToFilterConfig()),
		Batcher:    translation.NewBatcher(cache),
		Compositor: comp,
		Source:     source,
	})
	if err != nil {
		_ = comp.Close()
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return &stack{orchestrator: orch, translator: tr, compositor: comp}, nil
}

// Close stops the pipeline and releases the compositor.
func (s *stack) Close() error {
	s.orchestrator.Stop()
	return s.compositor.Close()
}
