package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events so stores can apply different
// retention to each class.
type EventCategory string

const (
	// CategoryCompliance covers credit decisions and notices, which carry
	// regulatory retention requirements.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers access control outcomes such as rejected API
	// keys and exhausted quotas.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine reads that are useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted by the decision pipeline and the HTTP boundary. It never
// carries applicant data: only identifiers and decision outcomes.
type Event struct {
	ID           uuid.UUID
	Category     EventCategory
	Timestamp    time.Time
	Action       string
	RequestID    string
	Channel      string
	Subject      string
	Decision     string
	RiskGrade    string
	Probability  float64
	ModelVersion string
	Method       string
	Reason       string
}

type AuditEvent string

const (
	// Decision events
	EventAssessmentCompleted AuditEvent = "assessment_completed"
	EventAssessmentRejected  AuditEvent = "assessment_rejected"
	EventExplanationServed   AuditEvent = "explanation_served"
	EventNoticeIssued        AuditEvent = "adverse_notice_issued"
	EventNoticeRetrieved     AuditEvent = "adverse_notice_retrieved"

	// Access events
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
	EventAPIKeyRejected    AuditEvent = "api_key_rejected"
	EventAuditLogAccessed  AuditEvent = "audit_log_accessed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAssessmentCompleted: CategoryCompliance,
	EventNoticeIssued:        CategoryCompliance,
	EventNoticeRetrieved:     CategoryCompliance,

	EventRateLimitExceeded: CategorySecurity,
	EventAPIKeyRejected:    CategorySecurity,
	EventAuditLogAccessed:  CategorySecurity,

	EventAssessmentRejected: CategoryOperations,
	EventExplanationServed:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
