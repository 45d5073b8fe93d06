package decision

import (
	"fmt"

	"creditrisk/internal/explain"
	"creditrisk/internal/features"
	"creditrisk/internal/notice"
	"creditrisk/internal/scoring"
)

// RuntimeConfig collects everything needed to assemble the pipeline.
type RuntimeConfig struct {
	Schema            features.Schema
	Model             scoring.Model
	Explain           explain.Config
	PreferredStrategy scoring.Strategy
	DeclineThreshold  float64
	Bands             []Band
	NoticeTopK        int
}

// Runtime is the immutable set of pipeline components shared by every
// request. Build it once at startup.
type Runtime struct {
	schema    features.Schema
	encoder   *features.Encoder
	scorer    *scoring.Scorer
	explainer *explain.Explainer
	policy    *Policy
	notices   *notice.Generator
	preferred scoring.Strategy
}

// NewRuntime wires the pipeline and checks that the model was trained on the
// encoder's schema. A nil model is allowed; assessments then fail as
// unavailable until a model is loaded.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	if cfg.Schema.Len() == 0 {
		cfg.Schema = features.DefaultSchema()
	}
	if cfg.DeclineThreshold == 0 {
		cfg.DeclineThreshold = DefaultDeclineThreshold
	}
	if cfg.Bands == nil {
		cfg.Bands = DefaultBands()
	}
	if cfg.PreferredStrategy == "" {
		cfg.PreferredStrategy = scoring.StrategyTreeSHAP
	}

	if cfg.Model != nil {
		info := cfg.Model.Info()
		if err := features.Verify(cfg.Schema, info.SchemaVersion, info.Features); err != nil {
			return nil, fmt.Errorf("model %s %s: %w", info.Name, info.Version, err)
		}
	}

	policy, err := NewPolicy(cfg.DeclineThreshold, cfg.Bands)
	if err != nil {
		return nil, fmt.Errorf("decision policy: %w", err)
	}

	return &Runtime{
		schema:    cfg.Schema,
		encoder:   features.NewEncoder(cfg.Schema),
		scorer:    scoring.NewScorer(cfg.Model),
		explainer: explain.New(cfg.Explain),
		policy:    policy,
		notices:   notice.New(cfg.NoticeTopK),
		preferred: cfg.PreferredStrategy,
	}, nil
}

func (r *Runtime) Schema() features.Schema {
	return r.schema
}

func (r *Runtime) Policy() *Policy {
	return r.policy
}

// Model returns the loaded model, or nil.
func (r *Runtime) Model() scoring.Model {
	return r.scorer.Model()
}
