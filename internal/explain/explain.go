// Package explain attributes a model's output to its input features.
package explain

import (
	"cmp"
	"math"
	"slices"

	"creditrisk/internal/scoring"
)

// Direction states whether a feature pushed default risk up or down.
type Direction string

const (
	RiskIncreasing Direction = "RISK_INCREASING"
	RiskDecreasing Direction = "RISK_DECREASING"
)

// Attribution is one feature's contribution, in log-odds of default.
type Attribution struct {
	Feature   string
	Index     int
	Value     float64
	Impact    float64
	Direction Direction
}

// Explanation is a ranked attribution set for one prediction. BaseValue
// plus the sum of impacts approximates ModelOutput; for tree_shap the
// equality is exact.
type Explanation struct {
	Method       scoring.Strategy
	BaseValue    float64
	ModelOutput  float64
	Attributions []Attribution
}

// Adverse returns up to k risk-increasing attributions in rank order.
// k <= 0 returns all of them.
func (e *Explanation) Adverse(k int) []Attribution {
	out := make([]Attribution, 0)
	for _, a := range e.Attributions {
		if a.Direction != RiskIncreasing {
			continue
		}
		out = append(out, a)
		if k > 0 && len(out) == k {
			break
		}
	}
	return out
}

// Top returns the k highest-ranked attributions regardless of direction.
func (e *Explanation) Top(k int) []Attribution {
	if k <= 0 || k >= len(e.Attributions) {
		return slices.Clone(e.Attributions)
	}
	return slices.Clone(e.Attributions[:k])
}

// Config tunes the perturbation strategy.
type Config struct {
	Samples     int
	Seed        uint64
	KernelWidth float64
	Ridge       float64
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{Samples: 1000, Seed: 42, Ridge: 1}
}

// Explainer computes explanations. It is stateless between calls.
type Explainer struct {
	cfg Config
}

// New returns an explainer; zero config values take defaults.
func New(cfg Config) *Explainer {
	def := DefaultConfig()
	if cfg.Samples <= 0 {
		cfg.Samples = def.Samples
	}
	if cfg.Ridge <= 0 {
		cfg.Ridge = def.Ridge
	}
	return &Explainer{cfg: cfg}
}

// Explain attributes model's output at vec using strategy.
func (e *Explainer) Explain(model scoring.Model, vec []float64, strategy scoring.Strategy) (*Explanation, error) {
	if model == nil {
		return nil, &ExplainError{Reason: ReasonFailed, Strategy: strategy, Detail: "no model"}
	}
	if !model.Supports(strategy) {
		return nil, &ExplainError{Reason: ReasonUnsupportedStrategy, Strategy: strategy}
	}
	score, err := model.Predict(vec)
	if err != nil {
		return nil, &ExplainError{Reason: ReasonFailed, Strategy: strategy, Err: err}
	}

	var base float64
	var impacts []float64
	switch strategy {
	case scoring.StrategyTreeSHAP:
		trees, ok := model.(treeModel)
		if !ok {
			return nil, &ExplainError{Reason: ReasonUnsupportedStrategy, Strategy: strategy}
		}
		base, impacts = treeSHAP(trees, vec)
	case scoring.StrategyPerturbation:
		base, impacts, err = e.perturbation(model, vec)
		if err != nil {
			return nil, &ExplainError{Reason: ReasonFailed, Strategy: strategy, Err: err}
		}
	default:
		return nil, &ExplainError{Reason: ReasonUnsupportedStrategy, Strategy: strategy}
	}

	return &Explanation{
		Method:       strategy,
		BaseValue:    base,
		ModelOutput:  score.Margin,
		Attributions: rank(model.Info().Features, vec, impacts),
	}, nil
}

// Fallback returns the strategy to try when preferred is not available.
func Fallback(preferred scoring.Strategy) scoring.Strategy {
	if preferred == scoring.StrategyTreeSHAP {
		return scoring.StrategyPerturbation
	}
	return scoring.StrategyTreeSHAP
}

// rank orders by absolute impact, ties broken by schema position.
func rank(names []string, vec, impacts []float64) []Attribution {
	out := make([]Attribution, len(impacts))
	for i, impact := range impacts {
		dir := RiskDecreasing
		if impact > 0 {
			dir = RiskIncreasing
		}
		out[i] = Attribution{Feature: names[i], Index: i, Value: vec[i], Impact: impact, Direction: dir}
	}
	slices.SortStableFunc(out, func(a, b Attribution) int {
		if c := cmp.Compare(math.Abs(b.Impact), math.Abs(a.Impact)); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return out
}
