package decision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(DefaultDeclineThreshold, DefaultBands())
	require.NoError(t, err)
	return p
}

func TestDecideGrades(t *testing.T) {
	p := defaultPolicy(t)

	tests := []struct {
		prob  float64
		grade string
		label Label
		level RiskLevel
		score int
	}{
		{prob: 0, grade: "AAA", label: LabelApproved, level: RiskLow, score: 850},
		{prob: 0.0499, grade: "AAA", label: LabelApproved, level: RiskLow, score: 823},
		{prob: 0.05, grade: "AA", label: LabelApproved, level: RiskLow, score: 822},
		{prob: 0.12, grade: "A", label: LabelApproved, level: RiskLow, score: 784},
		{prob: 0.20, grade: "BBB", label: LabelApproved, level: RiskLow, score: 740},
		{prob: 0.30, grade: "BB", label: LabelApproved, level: RiskMedium, score: 685},
		{prob: 0.4999, grade: "B", label: LabelApproved, level: RiskMedium, score: 575},
		{prob: 0.50, grade: "CCC", label: LabelDeclined, level: RiskMedium, score: 575},
		{prob: 0.70, grade: "CC", label: LabelDeclined, level: RiskHigh, score: 465},
		{prob: 0.80, grade: "D", label: LabelDeclined, level: RiskHigh, score: 410},
		{prob: 1, grade: "D", label: LabelDeclined, level: RiskHigh, score: 300},
	}
	for _, tt := range tests {
		d, err := p.Decide(tt.prob)
		require.NoError(t, err, "p=%v", tt.prob)
		assert.Equal(t, tt.grade, d.RiskGrade, "p=%v", tt.prob)
		assert.Equal(t, tt.label, d.Label, "p=%v", tt.prob)
		assert.Equal(t, tt.level, d.RiskLevel, "p=%v", tt.prob)
		assert.Equal(t, tt.score, d.ScoreEquivalent, "p=%v", tt.prob)
	}
}

func TestDecideEveryProbabilityGetsOneGrade(t *testing.T) {
	p := defaultPolicy(t)
	grades := map[string]bool{}
	for _, b := range DefaultBands() {
		grades[b.Grade] = true
	}

	prevScore := math.MaxInt
	for i := 0; i <= 10000; i++ {
		prob := float64(i) / 10000
		d, err := p.Decide(prob)
		require.NoError(t, err)
		assert.True(t, grades[d.RiskGrade], "p=%v got %q", prob, d.RiskGrade)
		assert.GreaterOrEqual(t, d.ScoreEquivalent, 300)
		assert.LessOrEqual(t, d.ScoreEquivalent, 850)
		assert.LessOrEqual(t, d.ScoreEquivalent, prevScore, "score must not increase with risk")
		prevScore = d.ScoreEquivalent
	}
}

func TestDecideRejectsInvalidProbability(t *testing.T) {
	p := defaultPolicy(t)
	for _, prob := range []float64{-0.01, 1.0001, math.NaN(), math.Inf(1)} {
		_, err := p.Decide(prob)
		assert.ErrorIs(t, err, ErrProbabilityOutOfRange, "p=%v", prob)
	}
}

func TestCustomThreshold(t *testing.T) {
	p, err := NewPolicy(0.3, DefaultBands())
	require.NoError(t, err)

	d, err := p.Decide(0.31)
	require.NoError(t, err)
	assert.Equal(t, LabelDeclined, d.Label)
	assert.Equal(t, "BB", d.RiskGrade)
	assert.Equal(t, 0.3, p.Threshold())
}

func TestNewPolicyValidation(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		bands     []Band
	}{
		{name: "zero threshold", threshold: 0, bands: DefaultBands()},
		{name: "threshold above one", threshold: 1.5, bands: DefaultBands()},
		{name: "no bands", threshold: 0.5, bands: nil},
		{name: "gap at top", threshold: 0.5, bands: []Band{{"A", 0.5}, {"B", 0.9}}},
		{name: "overlap", threshold: 0.5, bands: []Band{{"A", 0.5}, {"B", 0.4}, {"C", 1}}},
		{name: "duplicate grade", threshold: 0.5, bands: []Band{{"A", 0.5}, {"A", 1}}},
		{name: "empty grade", threshold: 0.5, bands: []Band{{"", 1}}},
		{name: "beyond one", threshold: 0.5, bands: []Band{{"A", 0.5}, {"B", 1.2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(tt.threshold, tt.bands)
			assert.Error(t, err)
		})
	}
}

func TestBandsReturnsCopy(t *testing.T) {
	p := defaultPolicy(t)
	bands := p.Bands()
	bands[0].Grade = "X"

	d, err := p.Decide(0.01)
	require.NoError(t, err)
	assert.Equal(t, "AAA", d.RiskGrade)
}
