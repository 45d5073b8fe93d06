package decision

import (
	"errors"

	"creditrisk/internal/features"
	"creditrisk/internal/scoring"
	dErrors "creditrisk/pkg/domain-errors"
)

// translate maps pipeline errors onto domain error codes. Encoding problems
// are the caller's to fix; model problems are ours.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}

	var encErr *features.EncodingError
	if errors.As(err, &encErr) {
		if encErr.Has(features.ReasonSchemaMismatch) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "model and encoder schemas differ")
		}
		fields := make([]dErrors.FieldError, 0, len(encErr.Violations))
		for _, v := range encErr.Violations {
			fields = append(fields, dErrors.FieldError{
				Field:  v.Field,
				Reason: string(v.Reason) + ": " + v.Detail,
			})
		}
		return dErrors.Wrap(err, dErrors.CodeValidation, "application failed validation").WithFields(fields...)
	}

	var modelErr *scoring.ModelError
	if errors.As(err, &modelErr) {
		if modelErr.Reason == scoring.ReasonNotLoaded {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "scoring model is not loaded")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "scoring failed")
	}

	return dErrors.Wrap(err, dErrors.CodeInternal, "assessment failed")
}

// rejectReason is the metric and audit label for a failed assessment.
func rejectReason(err error) string {
	if de, ok := dErrors.As(err); ok {
		return string(de.Code)
	}
	return string(dErrors.CodeInternal)
}
