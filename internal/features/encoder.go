// Package features turns applications into the fixed-order numeric vectors
// the scoring model consumes.
package features

import (
	"fmt"
	"math"

	"creditrisk/internal/application"
)

// Vector is a model input laid out by a Schema.
type Vector []float64

// Encoder maps applications to vectors for one schema. It holds no mutable
// state and is safe for concurrent use.
type Encoder struct {
	schema Schema
}

// NewEncoder returns an encoder for schema.
func NewEncoder(schema Schema) *Encoder {
	return &Encoder{schema: schema}
}

// Schema returns the layout this encoder produces.
func (e *Encoder) Schema() Schema {
	return e.schema
}

// Encode validates app for mode and builds its feature vector. Every
// missing required field and every out-of-range value is reported.
func (e *Encoder) Encode(app *application.Application, mode application.Mode) (Vector, error) {
	if err := e.check(app, mode); err != nil {
		return nil, err
	}

	vec := make(Vector, e.schema.Len())
	for i, f := range e.schema.Features {
		vec[i] = e.value(app, f)
	}
	return vec, nil
}

func (e *Encoder) check(app *application.Application, mode application.Mode) error {
	var violations []Violation
	for _, f := range mode.Required() {
		if !app.Has(f) {
			violations = append(violations, Violation{Field: string(f), Reason: ReasonMissingField, Detail: "required"})
		}
	}
	for _, spec := range application.Specs() {
		v, ok := app.Number(spec.Field)
		if !ok {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || !spec.InRange(v) {
			violations = append(violations, Violation{
				Field:  string(spec.Field),
				Reason: ReasonOutOfRange,
				Detail: fmt.Sprintf("must be between %g and %g", spec.Min, spec.Max),
			})
		}
	}
	if len(violations) > 0 {
		return &EncodingError{Violations: violations}
	}
	return nil
}

func (e *Encoder) value(app *application.Application, f Feature) float64 {
	switch f.Kind {
	case KindNumeric:
		if v, ok := app.Number(f.Source); ok {
			return v
		}
	case KindCategorical:
		if v, ok := app.Category(f.Source); ok {
			return float64(f.CategoryIndex(v))
		}
	case KindFlag:
		if v, ok := app.Flag(f.Source); ok {
			if v {
				return 1
			}
			return 0
		}
	case KindDerived:
		if v, ok := f.derive(app); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
		return 0
	}
	return f.Impute
}
