package features

import (
	"fmt"
	"strings"
)

// Reason classifies an encoding failure.
type Reason string

const (
	ReasonMissingField   Reason = "missing_field"
	ReasonOutOfRange     Reason = "out_of_range"
	ReasonSchemaMismatch Reason = "schema_mismatch"
)

// Violation names one offending field and the constraint it broke.
type Violation struct {
	Field  string
	Reason Reason
	Detail string
}

// EncodingError is returned when an application cannot be turned into a
// feature vector, or when a model's schema does not match the encoder's.
type EncodingError struct {
	Violations []Violation
}

func (e *EncodingError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", v.Field, v.Reason, v.Detail))
	}
	return "encoding failed: " + strings.Join(parts, "; ")
}

// Has reports whether any violation carries reason.
func (e *EncodingError) Has(reason Reason) bool {
	for _, v := range e.Violations {
		if v.Reason == reason {
			return true
		}
	}
	return false
}
