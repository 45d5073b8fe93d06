package handler

import (
	"encoding/json"
	"fmt"

	"creditrisk/internal/application"
	"creditrisk/internal/decision"
	dErrors "creditrisk/pkg/domain-errors"
)

// BatchRequest is the HTTP request body for POST /batch-assess. Entries stay
// raw so that one malformed application fails alone instead of the batch.
type BatchRequest struct {
	Applications []json.RawMessage `json:"applications"`

	items []decision.BatchItem
}

// Validate decodes each entry. Decoding failures are attached to their item.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *BatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Applications) == 0 {
		return dErrors.New(dErrors.CodeValidation, "applications must not be empty").WithFields(dErrors.FieldError{
			Field:  "applications",
			Reason: "required",
		})
	}

	r.items = make([]decision.BatchItem, len(r.Applications))
	for i, raw := range r.Applications {
		app := application.New()
		if err := json.Unmarshal(raw, app); err != nil {
			r.items[i] = decision.BatchItem{Err: itemError(i, err)}
			continue
		}
		r.items[i] = decision.BatchItem{Application: app}
	}
	return nil
}

// Items returns the decoded batch.
func (r *BatchRequest) Items() []decision.BatchItem {
	return r.items
}

// itemError prefixes field names with the item position so clients can
// locate the problem.
func itemError(i int, err error) error {
	de, ok := dErrors.As(err)
	if !ok {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, fmt.Sprintf("applications[%d] is not valid JSON", i))
	}
	fields := make([]dErrors.FieldError, len(de.Fields))
	for j, f := range de.Fields {
		fields[j] = dErrors.FieldError{
			Field:  fmt.Sprintf("applications[%d].%s", i, f.Field),
			Reason: f.Reason,
		}
	}
	return dErrors.Wrap(err, de.Code, de.Message).WithFields(fields...)
}
