package decision

import (
	"time"

	"creditrisk/internal/application"
	"creditrisk/internal/explain"
	"creditrisk/internal/notice"
	"creditrisk/internal/scoring"

	"github.com/google/uuid"
)

// Label is the binary credit outcome.
type Label string

const (
	LabelApproved Label = "APPROVED"
	LabelDeclined Label = "DECLINED"
)

// RiskLevel is the coarse three-way bucket shown next to the grade.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Channel identifies the entry point an assessment came through.
type Channel string

const (
	ChannelFull    Channel = "full"
	ChannelQuick   Channel = "quick"
	ChannelBatch   Channel = "batch"
	ChannelExplain Channel = "explain"
)

// Decision is the policy's verdict on one probability.
type Decision struct {
	Label           Label
	Probability     float64
	RiskGrade       string
	ScoreEquivalent int
	RiskLevel       RiskLevel
}

// Declined reports whether the decision is a decline.
func (d Decision) Declined() bool {
	return d.Label == LabelDeclined
}

func (d Decision) subject() notice.Subject {
	return notice.Subject{
		Declined:    d.Declined(),
		Label:       string(d.Label),
		Probability: d.Probability,
		RiskGrade:   d.RiskGrade,
	}
}

// Counterfactual reports the smallest tested credit amount reduction that
// flips a decline, if any.
type Counterfactual struct {
	Found          bool
	ReductionPct   int
	CreditAmount   float64
	Probability    float64
	Message        string
	TestedPercents []int
}

// Ratios are the raw affordability ratios echoed in the response. Nil
// means the inputs were not provided.
type Ratios struct {
	DebtToIncome *float64
	LoanToValue  *float64
}

// Assessment is the full output of one pipeline run.
type Assessment struct {
	RequestID       uuid.UUID
	Timestamp       time.Time
	Channel         Channel
	Mode            application.Mode
	Decision        Decision
	ModelVersion    string
	Explanation     *explain.Explanation
	ExplanationText string
	Notice          *notice.AdverseNotice
	Recommendations []string
	Counterfactual  *Counterfactual
	Ratios          Ratios
	ProcessingTime  time.Duration
}

// TopFactors returns the k highest-ranked attributions, or nil when no
// explanation could be produced.
func (a *Assessment) TopFactors(k int) []explain.Attribution {
	if a.Explanation == nil {
		return nil
	}
	return a.Explanation.Top(k)
}

// BatchItem is one entry of a batch request. Err carries a decoding failure
// detected before the item reached the service.
type BatchItem struct {
	Application *application.Application
	Err         error
}

// BatchResult holds one result per input, in input order.
type BatchResult struct {
	Items    []BatchOutcome
	Approved int
	Declined int
	Failed   int
	Duration time.Duration
}

// BatchOutcome is either an Assessment or an error.
type BatchOutcome struct {
	Index      int
	Assessment *Assessment
	Err        error
}

// ExplainResult is returned by the explain-only operation.
type ExplainResult struct {
	RequestID   uuid.UUID
	Requested   scoring.Strategy
	Decision    Decision
	Explanation *explain.Explanation
}

// Health is a snapshot of runtime counters.
type Health struct {
	ModelLoaded      bool
	ModelVersion     string
	SchemaVersion    string
	Uptime           time.Duration
	TotalPredictions int64
}
