package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/stretchr/testify/require"
)

// ScenarioFixture describes a scripted frame: what the recognizer reports for
// it, the glossary the translator knows and what the pipeline should produce.
type ScenarioFixture struct {
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Width        int                  `json:"width"`
	Height       int                  `json:"height"`
	Observations []FixtureObservation `json:"observations"`
	Inverted     []FixtureObservation `json:"inverted,omitempty"`
	Glossary     map[string]string    `json:"glossary"`
	Expected     FixtureExpectation   `json:"expected"`
}

// FixtureObservation is one recognized line with its normalized box
// (x, y, width, height; origin bottom-left).
type FixtureObservation struct {
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"`
}

// FixtureExpectation is the expected pipeline output for a scenario.
type FixtureExpectation struct {
	Regions      int               `json:"regions"`
	Translations map[string]string `json:"translations"`
	Unmodified   bool              `json:"unmodified"`
}

// RegionBox returns the observation's box.
func (o FixtureObservation) RegionBox() region.Box {
	return region.NewBox(o.Box[0], o.Box[1], o.Box[2], o.Box[3])
}

// Size returns the frame size of the scenario.
func (f ScenarioFixture) Size() ImageSize {
	return ImageSize{Width: f.Width, Height: f.Height}
}

// Boxes returns the boxes of all observations, both passes.
func (f ScenarioFixture) Boxes() []region.Box {
	boxes := make([]region.Box, 0, len(f.Observations)+len(f.Inverted))
	for _, o := range f.Observations {
		boxes = append(boxes, o.RegionBox())
	}
	for _, o := range f.Inverted {
		boxes = append(boxes, o.RegionBox())
	}
	return boxes
}

// LoadFixture loads a scenario fixture from testdata/fixtures/<name>.json.
func LoadFixture(t *testing.T, name string) ScenarioFixture {
	t.Helper()

	path := filepath.Join(GetFixturesDir(t), name+".json")
	data, err := os.ReadFile(path) //nolint:gosec // G304: test fixture path
	require.NoError(t, err, "Failed to read fixture %s", name)

	var fixture ScenarioFixture
	require.NoError(t, json.Unmarshal(data, &fixture), "Failed to parse fixture %s", name)
	return fixture
}

// SaveFixture writes a scenario fixture to dir as <name>.json.
func SaveFixture(t *testing.T, dir string, fixture ScenarioFixture) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	data, err := json.MarshalIndent(fixture, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(dir, fixture.Name+".json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
