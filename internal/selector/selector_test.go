package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compforge/internal/estimator"
)

func newTestSelector(t *testing.T, opts Options) *Selector {
	t.Helper()
	s, err := New(DefaultCatalog(), opts)
	require.NoError(t, err)
	return s
}

func TestNewEmptyTable(t *testing.T) {
	_, err := New(nil, Options{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestSelectLowComplexityPicksLowestTier(t *testing.T) {
	s := newTestSelector(t, Options{})
	cfg := s.Select(2, StageTemplate, estimator.FeatureSet{Fields: []string{"text"}}, ObjectiveQuality)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Model)
}

func TestSelectHighComplexityPicksTopTier(t *testing.T) {
	s := newTestSelector(t, Options{})
	features := estimator.FeatureSet{
		Fields:      []string{"image", "multifield"},
		Responsive:  true,
		Interactive: true,
	}
	cfg := s.Select(10, StageTemplate, features, ObjectiveQuality)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
}

func TestSelectFallbackWhenNothingQualifies(t *testing.T) {
	table := Catalog{
		{Provider: "groq", Model: "small", MaxComplexity: 4, CostPer1K: 0.001, Speed: 2},
		{Provider: "gemini", Model: "big", MaxComplexity: 12, CostPer1K: 0.01, Speed: 1},
	}
	s, err := New(table, Options{})
	require.NoError(t, err)

	cfg := s.Select(50, StageAnalysis, estimator.FeatureSet{}, ObjectiveQuality)
	assert.Equal(t, "big", cfg.Model)
}

func TestSelectSpeedObjectiveRewardsThroughput(t *testing.T) {
	s := newTestSelector(t, Options{})
	cfg := s.Select(3, StageTemplate, estimator.FeatureSet{}, ObjectiveSpeed)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Model)
}

func TestSelectOverrideBypassesScoring(t *testing.T) {
	s := newTestSelector(t, Options{Override: "gemini-2.5-pro"})
	cfg := s.Select(1, StageTemplate, estimator.FeatureSet{}, ObjectiveQuality)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
}

func TestSelectUnknownOverrideFallsThrough(t *testing.T) {
	s := newTestSelector(t, Options{Override: "no-such-model"})
	cfg := s.Select(2, StageTemplate, estimator.FeatureSet{}, ObjectiveQuality)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Model)
}

func TestStageTemperatureDefaults(t *testing.T) {
	s := newTestSelector(t, Options{Override: "gemini-2.5-pro"})

	dialog := s.Select(1, StageDialog, estimator.FeatureSet{}, ObjectiveQuality)
	clientlib := s.Select(1, StageClientlib, estimator.FeatureSet{}, ObjectiveQuality)
	assert.InDelta(t, 0.1, float64(dialog.Temperature), 0.001)
	assert.InDelta(t, 0.3, float64(clientlib.Temperature), 0.001)
}

func TestLowerTierTemperatureScaledDown(t *testing.T) {
	s := newTestSelector(t, Options{Override: "llama-3.1-8b-instant"})
	cfg := s.Select(1, StageDialog, estimator.FeatureSet{}, ObjectiveQuality)
	assert.InDelta(t, 0.08, float64(cfg.Temperature), 0.001)
}
