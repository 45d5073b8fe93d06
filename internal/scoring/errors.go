package scoring

// Reason classifies a model failure.
type Reason string

const (
	ReasonNotLoaded       Reason = "not_loaded"
	ReasonIncompatible    Reason = "incompatible"
	ReasonInvalidArtifact Reason = "invalid_artifact"
)

// ModelError reports a missing, malformed or mismatched model.
type ModelError struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *ModelError) Error() string {
	msg := "model " + string(e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
