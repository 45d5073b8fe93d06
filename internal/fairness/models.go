// Package fairness measures outcome disparity of the decision pipeline
// across protected groups. It runs offline against a labeled dataset and is
// never on the request path.
package fairness

import (
	"fmt"
	"time"
)

// Metric names a disparity measure.
type Metric string

const (
	MetricDemographicParity Metric = "demographic_parity"
	MetricEqualizedOdds     Metric = "equalized_odds"
)

// AllMetrics lists every supported metric in report order.
func AllMetrics() []Metric {
	return []Metric{MetricDemographicParity, MetricEqualizedOdds}
}

// ParseMetric maps a flag or config value to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricDemographicParity, MetricEqualizedOdds:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown fairness metric %q", s)
}

// Verdict is the outcome of comparing a metric against its thresholds.
type Verdict string

const (
	VerdictPass   Verdict = "PASS"
	VerdictReview Verdict = "REVIEW"
	VerdictFail   Verdict = "FAIL"
)

func (v Verdict) severity() int {
	switch v {
	case VerdictFail:
		return 2
	case VerdictReview:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether v is as severe as other or worse.
func (v Verdict) AtLeast(other Verdict) bool {
	return v.severity() >= other.severity()
}

// Thresholds bound the PASS and REVIEW verdicts.
type Thresholds struct {
	Pass   float64 `json:"pass" yaml:"pass"`
	Review float64 `json:"review" yaml:"review"`
}

// DefaultThresholds returns PASS below 0.10 and REVIEW below 0.20.
func DefaultThresholds() Thresholds {
	return Thresholds{Pass: 0.10, Review: 0.20}
}

// Validate requires 0 < Pass <= Review.
func (t Thresholds) Validate() error {
	if !(t.Pass > 0) || t.Review < t.Pass {
		return fmt.Errorf("fairness thresholds must satisfy 0 < pass (%v) <= review (%v)", t.Pass, t.Review)
	}
	return nil
}

// Verdict classifies a metric value. Disparities are compared by magnitude.
func (t Thresholds) Verdict(value float64) Verdict {
	if value < 0 {
		value = -value
	}
	switch {
	case value < t.Pass:
		return VerdictPass
	case value < t.Review:
		return VerdictReview
	default:
		return VerdictFail
	}
}

// Observation is one scored row: the true outcome, the prediction and the
// row's protected attribute values. Positive means defaulted or declined.
type Observation struct {
	Actual    bool
	Predicted bool
	Groups    map[string]string
}

// GroupStats is the per-group breakdown for one attribute. TPR and FPR are
// nil when the group has no positive or no negative examples.
type GroupStats struct {
	Group         string   `json:"group" yaml:"group"`
	Count         int      `json:"count" yaml:"count"`
	SelectionRate float64  `json:"selection_rate" yaml:"selection_rate"`
	TPR           *float64 `json:"true_positive_rate,omitempty" yaml:"true_positive_rate,omitempty"`
	FPR           *float64 `json:"false_positive_rate,omitempty" yaml:"false_positive_rate,omitempty"`
	Accuracy      float64  `json:"accuracy" yaml:"accuracy"`
}

// MetricResult is one metric's value and verdict.
type MetricResult struct {
	Metric  Metric  `json:"metric" yaml:"metric"`
	Value   float64 `json:"value" yaml:"value"`
	Verdict Verdict `json:"verdict" yaml:"verdict"`
}

// AttributeReport holds the results for one protected attribute.
// Unassigned counts rows with no value for the attribute; they are left
// out of every group and metric.
type AttributeReport struct {
	Attribute  string         `json:"attribute" yaml:"attribute"`
	Groups     []GroupStats   `json:"groups" yaml:"groups"`
	Unassigned int            `json:"unassigned" yaml:"unassigned"`
	Metrics    []MetricResult `json:"metrics" yaml:"metrics"`
	Verdict    Verdict        `json:"verdict" yaml:"verdict"`
}

// Report is the output of one audit run.
type Report struct {
	GeneratedAt  time.Time         `json:"generated_at" yaml:"generated_at"`
	ModelVersion string            `json:"model_version,omitempty" yaml:"model_version,omitempty"`
	Samples      int               `json:"samples" yaml:"samples"`
	Skipped      int               `json:"skipped" yaml:"skipped"`
	Thresholds   Thresholds        `json:"thresholds" yaml:"thresholds"`
	Attributes   []AttributeReport `json:"attributes" yaml:"attributes"`
	Verdict      Verdict           `json:"verdict" yaml:"verdict"`
}

// worst returns the most severe of the given verdicts, PASS for none.
func worst(verdicts ...Verdict) Verdict {
	out := VerdictPass
	for _, v := range verdicts {
		if v.severity() > out.severity() {
			out = v
		}
	}
	return out
}
