// Package scoring loads the trained default-risk model and turns feature
// vectors into probabilities.
package scoring

import (
	"math"
	"slices"
)

// Strategy names an attribution method a model may support.
type Strategy string

const (
	StrategyTreeSHAP     Strategy = "tree_shap"
	StrategyPerturbation Strategy = "perturbation"
)

// ParseStrategy maps a request value to a Strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case StrategyTreeSHAP, StrategyPerturbation:
		return Strategy(s), true
	}
	return "", false
}

// Kind is the artifact family.
type Kind string

const (
	KindTreeEnsemble Kind = "tree_ensemble"
	KindLogistic     Kind = "logistic"
)

// FeatureStat is the training distribution of one feature.
type FeatureStat struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Info describes a loaded model.
type Info struct {
	Name          string             `json:"name"`
	Version       string             `json:"version"`
	Kind          Kind               `json:"kind"`
	SchemaVersion string             `json:"schema_version"`
	TrainedAt     string             `json:"trained_at,omitempty"`
	TrainingData  string             `json:"training_data,omitempty"`
	Performance   map[string]float64 `json:"performance,omitempty"`
	Features      []string           `json:"features"`
	Stats         []FeatureStat      `json:"-"`
	Strategies    []Strategy         `json:"strategies"`
}

// Score is a single model evaluation. Margin is the raw log-odds.
type Score struct {
	Probability float64
	Margin      float64
}

// Model is a trained binary classifier over a fixed feature layout.
// Implementations are immutable and safe for concurrent use.
type Model interface {
	Info() Info
	Predict(x []float64) (Score, error)
	Supports(strategy Strategy) bool
}

func sigmoid(m float64) float64 {
	return 1 / (1 + math.Exp(-m))
}

func checkInput(x []float64, n int) error {
	if len(x) != n {
		return &ModelError{Reason: ReasonIncompatible, Detail: "feature vector length does not match model"}
	}
	if slices.ContainsFunc(x, func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }) {
		return &ModelError{Reason: ReasonIncompatible, Detail: "feature vector contains non-finite values"}
	}
	return nil
}
