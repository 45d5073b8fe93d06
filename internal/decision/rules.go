package decision

import (
	"errors"
	"fmt"
	"math"
)

// DefaultDeclineThreshold is the probability at or above which an
// application is declined.
const DefaultDeclineThreshold = 0.5

const (
	scoreCeiling = 850
	scoreRange   = 550
)

// ErrProbabilityOutOfRange is returned by Decide for NaN or values outside
// [0,1]. A well-formed model never produces one.
var ErrProbabilityOutOfRange = errors.New("probability outside [0,1]")

// Band maps probabilities below Upper to Grade. The last band also covers
// p == Upper.
type Band struct {
	Grade string
	Upper float64
}

// DefaultBands returns the nine-grade scale from AAA to D.
func DefaultBands() []Band {
	return []Band{
		{Grade: "AAA", Upper: 0.05},
		{Grade: "AA", Upper: 0.10},
		{Grade: "A", Upper: 0.15},
		{Grade: "BBB", Upper: 0.25},
		{Grade: "BB", Upper: 0.35},
		{Grade: "B", Upper: 0.50},
		{Grade: "CCC", Upper: 0.65},
		{Grade: "CC", Upper: 0.80},
		{Grade: "D", Upper: 1.00},
	}
}

// Policy turns a default probability into a decision. It is immutable.
type Policy struct {
	threshold float64
	bands     []Band
}

// NewPolicy validates that bands are contiguous from 0 and end exactly at 1,
// and that the threshold lies in (0,1].
func NewPolicy(threshold float64, bands []Band) (*Policy, error) {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("decline threshold %v outside (0,1]", threshold)
	}
	if len(bands) == 0 {
		return nil, errors.New("no grade bands configured")
	}
	seen := make(map[string]struct{}, len(bands))
	lower := 0.0
	for i, b := range bands {
		if b.Grade == "" {
			return nil, fmt.Errorf("band %d has no grade", i)
		}
		if _, dup := seen[b.Grade]; dup {
			return nil, fmt.Errorf("grade %q appears twice", b.Grade)
		}
		seen[b.Grade] = struct{}{}
		if !(b.Upper > lower) {
			return nil, fmt.Errorf("band %q upper bound %v does not exceed %v", b.Grade, b.Upper, lower)
		}
		lower = b.Upper
	}
	if lower != 1 {
		return nil, fmt.Errorf("grade bands end at %v, want 1", lower)
	}
	return &Policy{threshold: threshold, bands: append([]Band(nil), bands...)}, nil
}

// Threshold returns the decline threshold.
func (p *Policy) Threshold() float64 {
	return p.threshold
}

// Bands returns a copy of the grade scale.
func (p *Policy) Bands() []Band {
	return append([]Band(nil), p.bands...)
}

// Decide applies the threshold, grade bands and score mapping to prob.
func (p *Policy) Decide(prob float64) (Decision, error) {
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return Decision{}, fmt.Errorf("%w: %v", ErrProbabilityOutOfRange, prob)
	}
	label := LabelApproved
	if prob >= p.threshold {
		label = LabelDeclined
	}
	return Decision{
		Label:           label,
		Probability:     prob,
		RiskGrade:       p.grade(prob),
		ScoreEquivalent: ScoreEquivalent(prob),
		RiskLevel:       RiskLevelFor(prob),
	}, nil
}

func (p *Policy) grade(prob float64) string {
	for _, b := range p.bands {
		if prob < b.Upper {
			return b.Grade
		}
	}
	return p.bands[len(p.bands)-1].Grade
}

// ScoreEquivalent maps prob onto the 300-850 scale; higher is better.
func ScoreEquivalent(prob float64) int {
	return scoreCeiling - int(math.Round(prob*scoreRange))
}

// RiskLevelFor buckets prob into LOW (<0.30), MEDIUM (<0.70) or HIGH.
func RiskLevelFor(prob float64) RiskLevel {
	switch {
	case prob < 0.30:
		return RiskLow
	case prob < 0.70:
		return RiskMedium
	default:
		return RiskHigh
	}
}
