package translation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Glossary is the on-disk format of a static translation table.
type Glossary struct {
	Source  string            `yaml:"source"`
	Target  string            `yaml:"target"`
	Entries map[string]string `yaml:"entries"`
}

// StaticTranslator translates from a fixed glossary. Unknown strings map to ""
// so they are left untouched by the compositor.
type StaticTranslator struct {
	mu      sync.RWMutex
	entries map[string]string
	calls   int
}

// NewStaticTranslator wraps a map of source to target strings.
func NewStaticTranslator(entries map[string]string) *StaticTranslator {
	m := make(map[string]string, len(entries))
	for k, v := range entries {
		m[strings.TrimSpace(k)] = v
	}
	return &StaticTranslator{entries: m}
}

// LoadGlossary reads a YAML glossary file into a StaticTranslator.
func LoadGlossary(path string) (*StaticTranslator, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: glossary path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	var g Glossary
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse glossary %s: %w", path, err)
	}
	return NewStaticTranslator(g.Entries), nil
}

// Prepare always succeeds.
func (s *StaticTranslator) Prepare(ctx context.Context) error {
	return ctx.Err()
}

// TranslateBatch looks up each text in the glossary.
func (s *StaticTranslator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = s.entries[strings.TrimSpace(t)]
	}
	return out, nil
}

// Calls returns how many batches were translated.
func (s *StaticTranslator) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

// Len returns the glossary size.
func (s *StaticTranslator) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
