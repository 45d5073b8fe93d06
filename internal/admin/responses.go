package admin

import (
	"time"

	"creditrisk/pkg/platform/audit"
)

// AuditEventResponse is the HTTP response DTO for one audit event.
type AuditEventResponse struct {
	ID           string    `json:"id"`
	Category     string    `json:"category"`
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	RequestID    string    `json:"request_id,omitempty"`
	Channel      string    `json:"channel,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	Decision     string    `json:"decision,omitempty"`
	RiskGrade    string    `json:"risk_grade,omitempty"`
	Probability  *float64  `json:"probability,omitempty"`
	ModelVersion string    `json:"model_version,omitempty"`
	Method       string    `json:"method,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

// AuditEventsResponse wraps the list of events for HTTP response.
type AuditEventsResponse struct {
	Events  []*AuditEventResponse `json:"events"`
	Total   int                   `json:"total"`
	Dropped uint64                `json:"dropped"`
}

func toEventResponse(e audit.Event) *AuditEventResponse {
	resp := &AuditEventResponse{
		ID:           e.ID.String(),
		Category:     string(e.Category),
		Timestamp:    e.Timestamp,
		Action:       e.Action,
		RequestID:    e.RequestID,
		Channel:      e.Channel,
		Subject:      e.Subject,
		Decision:     e.Decision,
		RiskGrade:    e.RiskGrade,
		ModelVersion: e.ModelVersion,
		Method:       e.Method,
		Reason:       e.Reason,
	}
	// Only assessment outcomes carry a probability.
	if e.Decision != "" {
		p := e.Probability
		resp.Probability = &p
	}
	return resp
}
