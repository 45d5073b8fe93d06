// Package httputil holds the JSON envelope helpers shared by every handler.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	dErrors "creditrisk/pkg/domain-errors"
)

// MaxBodyBytes bounds request bodies decoded by DecodeAndPrepare.
const MaxBodyBytes int64 = 1 << 20

// Validatable is implemented by request types that check and normalize
// themselves after decoding.
type Validatable interface {
	Validate() error
}

type errorResponse struct {
	Error            string               `json:"error"`
	ErrorDescription string               `json:"error_description,omitempty"`
	Fields           []dErrors.FieldError `json:"fields,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a JSON error envelope. Internal errors never
// expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	var resp errorResponse
	if de, ok := dErrors.As(err); ok {
		code = de.Code
		if code != dErrors.CodeInternal {
			resp.ErrorDescription = de.Message
			resp.Fields = de.Fields
		}
	}
	resp.Error = string(code)
	WriteJSON(w, StatusFor(code), resp)
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON strictly decodes a request body into dst. Unknown fields and
// type mismatches become validation errors naming the field.
func DecodeJSON(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return dErrors.New(dErrors.CodeBadRequest, "request body must contain a single JSON value")
	}
	return nil
}

// DecodeAndPrepare decodes the body into a T, runs its Validate hook and
// writes the error response itself when anything fails.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer body.Close()

	req := new(T)
	if err := DecodeJSON(body, req); err != nil {
		logger.WarnContext(ctx, "invalid request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}

	if v, ok := any(req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "request validation failed",
				"request_id", requestID,
				"error", err,
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return req, true
}

func decodeError(err error) error {
	// Errors produced by custom UnmarshalJSON implementations already carry
	// their own code and field details.
	if _, ok := dErrors.As(err); ok {
		return err
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return dErrors.New(dErrors.CodeValidation, "invalid field type").WithFields(dErrors.FieldError{
			Field:  field,
			Reason: "must be of type " + typeErr.Type.String(),
		})
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return dErrors.New(dErrors.CodeBadRequest, "request body too large")
	}
	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return dErrors.New(dErrors.CodeValidation, "unknown field").WithFields(dErrors.FieldError{
			Field:  strings.Trim(name, `"`),
			Reason: "unknown field",
		})
	}
	if errors.Is(err, io.EOF) {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed JSON body")
}
