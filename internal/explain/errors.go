package explain

import "creditrisk/internal/scoring"

// Reason classifies an explanation failure.
type Reason string

const (
	ReasonUnsupportedStrategy Reason = "unsupported_strategy"
	ReasonFailed              Reason = "failed"
)

// ExplainError is returned when no explanation could be produced.
type ExplainError struct {
	Reason   Reason
	Strategy scoring.Strategy
	Detail   string
	Err      error
}

func (e *ExplainError) Error() string {
	msg := "explain " + string(e.Strategy) + ": " + string(e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExplainError) Unwrap() error {
	return e.Err
}
