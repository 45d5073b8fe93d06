package scoring

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stumpInfo(features ...string) Info {
	return Info{Name: "test", Version: "t1", SchemaVersion: "test-v1", Features: features}
}

// Two features, one tree per feature.
func testEnsemble(t *testing.T) *TreeEnsemble {
	t.Helper()
	m, err := NewTreeEnsemble(stumpInfo("a", "b"), 0.5, []Tree{
		{Nodes: []Node{
			{Feature: 0, Threshold: 10, Left: 1, Right: 2, Cover: 100},
			{Leaf: true, Value: -1, Cover: 60},
			{Leaf: true, Value: 1, Cover: 40},
		}},
		{Nodes: []Node{
			{Feature: 1, Threshold: 0.5, Left: 1, Right: 2, Cover: 100},
			{Leaf: true, Value: 0.25, Cover: 50},
			{Leaf: true, Value: -0.25, Cover: 50},
		}},
	})
	require.NoError(t, err)
	return m
}

func TestTreeEnsemblePredict(t *testing.T) {
	m := testEnsemble(t)

	score, err := m.Predict([]float64{5, 1})
	require.NoError(t, err)
	assert.InDelta(t, -0.75, score.Margin, 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(0.75)), score.Probability, 1e-12)

	score, err = m.Predict([]float64{10, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.75, score.Margin, 1e-12, "threshold value routes right")

	assert.True(t, m.Supports(StrategyTreeSHAP))
	assert.True(t, m.Supports(StrategyPerturbation))
	assert.Equal(t, KindTreeEnsemble, m.Info().Kind)
}

func TestPredictRejectsBadInput(t *testing.T) {
	m := testEnsemble(t)

	_, err := m.Predict([]float64{1})
	var modelErr *ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, ReasonIncompatible, modelErr.Reason)

	_, err = m.Predict([]float64{math.NaN(), 0})
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, ReasonIncompatible, modelErr.Reason)
}

func TestTreeValidation(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
	}{
		{"empty", nil},
		{"self loop", []Node{{Feature: 0, Threshold: 1, Left: 0, Right: 1, Cover: 2}, {Leaf: true, Cover: 2}}},
		{"child out of range", []Node{{Feature: 0, Threshold: 1, Left: 1, Right: 5, Cover: 2}, {Leaf: true, Cover: 1}}},
		{"feature out of range", []Node{{Feature: 3, Threshold: 1, Left: 1, Right: 2, Cover: 2}, {Leaf: true, Cover: 1}, {Leaf: true, Cover: 1}}},
		{"cover mismatch", []Node{{Feature: 0, Threshold: 1, Left: 1, Right: 2, Cover: 5}, {Leaf: true, Cover: 1}, {Leaf: true, Cover: 1}}},
		{"zero cover", []Node{{Leaf: true, Value: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTreeEnsemble(stumpInfo("a"), 0, []Tree{{Nodes: tt.nodes}})
			var modelErr *ModelError
			require.ErrorAs(t, err, &modelErr)
			assert.Equal(t, ReasonInvalidArtifact, modelErr.Reason)
		})
	}
}

func TestLogistic(t *testing.T) {
	info := stumpInfo("a", "b")
	info.Stats = []FeatureStat{{Mean: 10, Std: 2}, {Mean: 0, Std: 0}}
	m, err := NewLogistic(info, -1, []float64{0.5, 2})
	require.NoError(t, err)

	score, err := m.Predict([]float64{14, 0.25})
	require.NoError(t, err)
	assert.InDelta(t, -1+0.5*2+2*0.25, score.Margin, 1e-12)
	assert.False(t, m.Supports(StrategyTreeSHAP))
	assert.True(t, m.Supports(StrategyPerturbation))

	_, err = NewLogistic(stumpInfo("a", "b"), 0, []float64{1, 1})
	assert.Error(t, err, "statistics are required")
}

func TestLoad(t *testing.T) {
	t.Run("default artifact", func(t *testing.T) {
		m, err := Default()
		require.NoError(t, err)
		info := m.Info()
		assert.Equal(t, "credit-v2", info.SchemaVersion)
		assert.Len(t, info.Features, 31)
		assert.Len(t, info.Stats, 31)
		assert.Equal(t, KindTreeEnsemble, info.Kind)
	})

	t.Run("logistic artifact", func(t *testing.T) {
		m, err := Load(strings.NewReader(`{
			"name": "lr", "version": "1", "kind": "logistic", "schema_version": "s",
			"features": ["a"], "feature_stats": [{"mean": 0, "std": 1}],
			"intercept": 0.1, "coefficients": [0.4]
		}`))
		require.NoError(t, err)
		assert.Equal(t, KindLogistic, m.Info().Kind)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Load(strings.NewReader(`{"version": "1", "kind": "svm", "schema_version": "s", "features": ["a"]}`))
		assert.ErrorContains(t, err, "unknown model kind")
	})

	t.Run("unknown artifact field", func(t *testing.T) {
		_, err := Load(strings.NewReader(`{"version": "1", "kind": "logistic", "bogus": true}`))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile("/nonexistent/model.json")
		var modelErr *ModelError
		require.ErrorAs(t, err, &modelErr)
		assert.Equal(t, ReasonNotLoaded, modelErr.Reason)
	})
}

func TestScorer(t *testing.T) {
	t.Run("not loaded", func(t *testing.T) {
		s := NewScorer(nil)
		assert.False(t, s.Loaded())
		_, err := s.Score([]float64{1})
		var modelErr *ModelError
		require.ErrorAs(t, err, &modelErr)
		assert.Equal(t, ReasonNotLoaded, modelErr.Reason)
	})

	t.Run("scores with version", func(t *testing.T) {
		s := NewScorer(testEnsemble(t))
		res, err := s.Score([]float64{20, 0})
		require.NoError(t, err)
		assert.Equal(t, "t1", res.ModelVersion)
		assert.InDelta(t, sigmoid(1.75), res.Probability, 1e-12)
	})

	t.Run("pure", func(t *testing.T) {
		s := NewScorer(testEnsemble(t))
		a, _ := s.Score([]float64{3, 3})
		b, _ := s.Score([]float64{3, 3})
		assert.Equal(t, a, b)
	})
}

func TestParseStrategy(t *testing.T) {
	s, ok := ParseStrategy("tree_shap")
	assert.True(t, ok)
	assert.Equal(t, StrategyTreeSHAP, s)
	_, ok = ParseStrategy("lime")
	assert.False(t, ok)
}
