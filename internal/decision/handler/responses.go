package handler

import (
	"time"

	"creditrisk/internal/application"
	"creditrisk/internal/decision"
	"creditrisk/internal/explain"
	"creditrisk/internal/notice"
	"creditrisk/internal/scoring"
	dErrors "creditrisk/pkg/domain-errors"
)

// topFactorCount is the number of attributions echoed in an assessment.
const topFactorCount = 5

// AssessmentResponse is the HTTP response for POST /assess and /quick-check.
type AssessmentResponse struct {
	RequestID             string                  `json:"request_id"`
	Timestamp             time.Time               `json:"timestamp"`
	Decision              string                  `json:"decision"`
	Probability           float64                 `json:"probability"`
	RiskLevel             string                  `json:"risk_level"`
	RiskGrade             string                  `json:"risk_grade"`
	CreditScoreEquivalent int                     `json:"credit_score_equivalent"`
	ModelVersion          string                  `json:"model_version"`
	TopFactors            []FactorResponse        `json:"top_factors"`
	Explainability        ExplainabilityResponse  `json:"explainability"`
	AdverseNotice         *notice.AdverseNotice   `json:"adverse_notice,omitempty"`
	Recommendations       []string                `json:"recommendations,omitempty"`
	Counterfactual        *CounterfactualResponse `json:"counterfactual,omitempty"`
	DebtToIncomeRatio     *float64                `json:"debt_to_income_ratio,omitempty"`
	LoanToValueRatio      *float64                `json:"loan_to_value_ratio,omitempty"`
	ProcessingTimeMS      float64                 `json:"processing_time_ms"`
}

// FactorResponse is one ranked feature attribution.
type FactorResponse struct {
	Feature   string  `json:"feature"`
	Value     float64 `json:"value"`
	Impact    float64 `json:"impact"`
	Direction string  `json:"direction"`
}

// ExplainabilityResponse summarizes how the explanation was produced.
type ExplainabilityResponse struct {
	Method          string   `json:"method"`
	BaseValue       *float64 `json:"base_value,omitempty"`
	ModelOutput     *float64 `json:"model_output,omitempty"`
	ExplanationText string   `json:"explanation_text"`
}

// CounterfactualResponse reports the credit amount reduction test.
type CounterfactualResponse struct {
	Found          bool     `json:"found"`
	ReductionPct   int      `json:"reduction_pct,omitempty"`
	CreditAmount   *float64 `json:"credit_amount,omitempty"`
	Probability    *float64 `json:"probability,omitempty"`
	Message        string   `json:"message"`
	TestedPercents []int    `json:"tested_percents"`
}

// FromAssessment converts a domain Assessment to an HTTP response.
func FromAssessment(a *decision.Assessment) *AssessmentResponse {
	resp := &AssessmentResponse{
		RequestID:             a.RequestID.String(),
		Timestamp:             a.Timestamp,
		Decision:              string(a.Decision.Label),
		Probability:           a.Decision.Probability,
		RiskLevel:             string(a.Decision.RiskLevel),
		RiskGrade:             a.Decision.RiskGrade,
		CreditScoreEquivalent: a.Decision.ScoreEquivalent,
		ModelVersion:          a.ModelVersion,
		TopFactors:            factors(a.TopFactors(topFactorCount)),
		Explainability:        explainability(a.Explanation, a.ExplanationText),
		AdverseNotice:         a.Notice,
		Recommendations:       a.Recommendations,
		DebtToIncomeRatio:     a.Ratios.DebtToIncome,
		LoanToValueRatio:      a.Ratios.LoanToValue,
		ProcessingTimeMS:      float64(a.ProcessingTime.Microseconds()) / 1000,
	}
	if cf := a.Counterfactual; cf != nil {
		resp.Counterfactual = &CounterfactualResponse{
			Found:          cf.Found,
			Message:        cf.Message,
			TestedPercents: cf.TestedPercents,
		}
		if cf.Found {
			resp.Counterfactual.ReductionPct = cf.ReductionPct
			resp.Counterfactual.CreditAmount = &cf.CreditAmount
			resp.Counterfactual.Probability = &cf.Probability
		}
	}
	return resp
}

func factors(attrs []explain.Attribution) []FactorResponse {
	out := make([]FactorResponse, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, FactorResponse{
			Feature:   a.Feature,
			Value:     a.Value,
			Impact:    a.Impact,
			Direction: string(a.Direction),
		})
	}
	return out
}

func explainability(exp *explain.Explanation, text string) ExplainabilityResponse {
	if exp == nil {
		return ExplainabilityResponse{Method: "none", ExplanationText: text}
	}
	return ExplainabilityResponse{
		Method:          string(exp.Method),
		BaseValue:       &exp.BaseValue,
		ModelOutput:     &exp.ModelOutput,
		ExplanationText: text,
	}
}

// BatchResponse is the HTTP response for POST /batch-assess.
type BatchResponse struct {
	Summary BatchSummary        `json:"summary"`
	Results []BatchItemResponse `json:"results"`
}

// BatchSummary tallies a batch.
type BatchSummary struct {
	Total            int     `json:"total"`
	Approved         int     `json:"approved"`
	Declined         int     `json:"declined"`
	Failed           int     `json:"failed"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
}

// BatchItemResponse carries either an assessment or an error for one input.
type BatchItemResponse struct {
	Index      int                 `json:"index"`
	Status     string              `json:"status"`
	Assessment *AssessmentResponse `json:"assessment,omitempty"`
	Error      *ItemError          `json:"error,omitempty"`
}

// ItemError mirrors the top-level error envelope for a single batch item.
type ItemError struct {
	Error            string               `json:"error"`
	ErrorDescription string               `json:"error_description,omitempty"`
	Fields           []dErrors.FieldError `json:"fields,omitempty"`
}

// FromBatch converts a domain BatchResult to an HTTP response.
func FromBatch(res *decision.BatchResult) *BatchResponse {
	resp := &BatchResponse{
		Summary: BatchSummary{
			Total:            len(res.Items),
			Approved:         res.Approved,
			Declined:         res.Declined,
			Failed:           res.Failed,
			ProcessingTimeMS: float64(res.Duration.Microseconds()) / 1000,
		},
		Results: make([]BatchItemResponse, len(res.Items)),
	}
	for i, o := range res.Items {
		item := BatchItemResponse{Index: o.Index}
		if o.Err != nil {
			item.Status = "error"
			item.Error = toItemError(o.Err)
		} else {
			item.Status = "ok"
			item.Assessment = FromAssessment(o.Assessment)
		}
		resp.Results[i] = item
	}
	return resp
}

// toItemError withholds internal error details the same way WriteError does.
func toItemError(err error) *ItemError {
	de, ok := dErrors.As(err)
	if !ok || de.Code == dErrors.CodeInternal {
		return &ItemError{Error: string(dErrors.CodeInternal)}
	}
	return &ItemError{
		Error:            string(de.Code),
		ErrorDescription: de.Message,
		Fields:           de.Fields,
	}
}

// ExplainResponse is the HTTP response for POST /explain.
type ExplainResponse struct {
	RequestID         string           `json:"request_id"`
	RequestedStrategy string           `json:"requested_strategy"`
	Method            string           `json:"method"`
	Decision          string           `json:"decision"`
	Probability       float64          `json:"probability"`
	RiskGrade         string           `json:"risk_grade"`
	BaseValue         float64          `json:"base_value"`
	ModelOutput       float64          `json:"model_output"`
	Attributions      []FactorResponse `json:"attributions"`
}

// FromExplain converts a domain ExplainResult to an HTTP response.
func FromExplain(res *decision.ExplainResult) *ExplainResponse {
	return &ExplainResponse{
		RequestID:         res.RequestID.String(),
		RequestedStrategy: string(res.Requested),
		Method:            string(res.Explanation.Method),
		Decision:          string(res.Decision.Label),
		Probability:       res.Decision.Probability,
		RiskGrade:         res.Decision.RiskGrade,
		BaseValue:         res.Explanation.BaseValue,
		ModelOutput:       res.Explanation.ModelOutput,
		Attributions:      factors(res.Explanation.Attributions),
	}
}

// HealthResponse is the HTTP response for GET /health.
type HealthResponse struct {
	Status           string  `json:"status"`
	ModelLoaded      bool    `json:"model_loaded"`
	ModelVersion     string  `json:"model_version,omitempty"`
	SchemaVersion    string  `json:"schema_version"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	TotalPredictions int64   `json:"total_predictions"`
}

// FromHealth converts runtime counters to an HTTP response. A service
// without a model reports itself degraded.
func FromHealth(h decision.Health) *HealthResponse {
	status := "healthy"
	if !h.ModelLoaded {
		status = "degraded"
	}
	return &HealthResponse{
		Status:           status,
		ModelLoaded:      h.ModelLoaded,
		ModelVersion:     h.ModelVersion,
		SchemaVersion:    h.SchemaVersion,
		UptimeSeconds:    h.Uptime.Seconds(),
		TotalPredictions: h.TotalPredictions,
	}
}

// ModelInfoResponse is the HTTP response for GET /model-info.
type ModelInfoResponse struct {
	scoring.Info
	FeatureCount     int                `json:"feature_count"`
	DeclineThreshold float64            `json:"decline_threshold"`
	Grades           []GradeBand        `json:"grades"`
	Performance      map[string]float64 `json:"performance"`
}

// GradeBand is one entry of the grade scale.
type GradeBand struct {
	Grade string  `json:"grade"`
	Upper float64 `json:"upper"`
}

// FromModelInfo describes the model together with the policy that consumes
// its output.
func FromModelInfo(info scoring.Info, policy *decision.Policy) *ModelInfoResponse {
	resp := &ModelInfoResponse{
		Info:             info,
		FeatureCount:     len(info.Features),
		DeclineThreshold: policy.Threshold(),
		Performance:      info.Performance,
	}
	if resp.Performance == nil {
		resp.Performance = map[string]float64{}
	}
	for _, b := range policy.Bands() {
		resp.Grades = append(resp.Grades, GradeBand{Grade: b.Grade, Upper: b.Upper})
	}
	return resp
}

// FieldsResponse is the HTTP response for GET /application-fields.
type FieldsResponse struct {
	QuickRequired []string          `json:"quick_required"`
	FullRequired  []string          `json:"full_required"`
	Sections      []SectionResponse `json:"sections"`
}

// SectionResponse lists the fields of one form section.
type SectionResponse struct {
	Name   string          `json:"name"`
	Fields []FieldResponse `json:"fields"`
}

// FieldResponse describes one accepted application field.
type FieldResponse struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Description string   `json:"description,omitempty"`
}

// FieldCatalogue builds the field listing from the application registry.
func FieldCatalogue() *FieldsResponse {
	bySection := map[application.Section][]FieldResponse{}
	for _, spec := range application.Specs() {
		f := FieldResponse{
			Name:        string(spec.Field),
			Type:        string(spec.Kind),
			Categories:  spec.Categories,
			Description: spec.Description,
		}
		if spec.Kind == application.KindNumber || spec.Kind == application.KindInteger {
			f.Min, f.Max = &spec.Min, &spec.Max
		}
		bySection[spec.Section] = append(bySection[spec.Section], f)
	}

	resp := &FieldsResponse{
		QuickRequired: fieldNames(application.ModeQuick.Required()),
		FullRequired:  fieldNames(application.ModeFull.Required()),
	}
	for _, s := range application.Sections() {
		resp.Sections = append(resp.Sections, SectionResponse{Name: string(s), Fields: bySection[s]})
	}
	return resp
}

func fieldNames(fields []application.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
