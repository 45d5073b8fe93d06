// Package application defines the credit application record accepted by the
// service. Fields come from a closed enumeration; anything else is rejected.
package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	dErrors "creditrisk/pkg/domain-errors"
)

// Application is one credit request. Absent optional fields are simply not
// set; there are no zero-value defaults.
type Application struct {
	numbers    map[Field]float64
	categories map[Field]string
	flags      map[Field]bool
}

// New returns an empty application.
func New() *Application {
	return &Application{
		numbers:    map[Field]float64{},
		categories: map[Field]string{},
		flags:      map[Field]bool{},
	}
}

// Quick builds the four-field application used by quick screening.
func Quick(age int, creditAmount float64, duration, installmentRate int) *Application {
	return New().
		SetNumber(FieldAge, float64(age)).
		SetNumber(FieldCreditAmount, creditAmount).
		SetNumber(FieldDuration, float64(duration)).
		SetNumber(FieldInstallmentRate, float64(installmentRate))
}

func (a *Application) ensure() {
	if a.numbers == nil {
		a.numbers = map[Field]float64{}
	}
	if a.categories == nil {
		a.categories = map[Field]string{}
	}
	if a.flags == nil {
		a.flags = map[Field]bool{}
	}
}

// SetNumber sets a numeric or integer field.
func (a *Application) SetNumber(f Field, v float64) *Application {
	a.ensure()
	a.numbers[f] = v
	return a
}

// SetCategory sets a categorical field. Values are normalized to lower case.
func (a *Application) SetCategory(f Field, v string) *Application {
	a.ensure()
	a.categories[f] = normalizeCategory(v)
	return a
}

// SetFlag sets a boolean field.
func (a *Application) SetFlag(f Field, v bool) *Application {
	a.ensure()
	a.flags[f] = v
	return a
}

// Number returns a numeric field and whether it is present.
func (a *Application) Number(f Field) (float64, bool) {
	v, ok := a.numbers[f]
	return v, ok
}

// Category returns a categorical field and whether it is present.
func (a *Application) Category(f Field) (string, bool) {
	v, ok := a.categories[f]
	return v, ok
}

// Flag returns a boolean field and whether it is present.
func (a *Application) Flag(f Field) (bool, bool) {
	v, ok := a.flags[f]
	return v, ok
}

// Has reports whether any value is set for f.
func (a *Application) Has(f Field) bool {
	if _, ok := a.numbers[f]; ok {
		return true
	}
	if _, ok := a.categories[f]; ok {
		return true
	}
	_, ok := a.flags[f]
	return ok
}

// Present lists the set fields in registry order.
func (a *Application) Present() []Field {
	out := make([]Field, 0, len(a.numbers)+len(a.categories)+len(a.flags))
	for f := range a.numbers {
		out = append(out, f)
	}
	for f := range a.categories {
		out = append(out, f)
	}
	for f := range a.flags {
		out = append(out, f)
	}
	slices.SortFunc(out, func(x, y Field) int { return order(x) - order(y) })
	return out
}

// Clone returns a deep copy.
func (a *Application) Clone() *Application {
	return &Application{
		numbers:    maps.Clone(a.numbers),
		categories: maps.Clone(a.categories),
		flags:      maps.Clone(a.flags),
	}
}

// CheckMode rejects fields that the mode does not accept.
func (a *Application) CheckMode(mode Mode) error {
	var fields []dErrors.FieldError
	for _, f := range a.Present() {
		if !mode.Allows(f) {
			fields = append(fields, dErrors.FieldError{Field: string(f), Reason: "not accepted in " + string(mode) + " mode"})
		}
	}
	if len(fields) > 0 {
		return dErrors.New(dErrors.CodeValidation, "application contains unsupported fields").WithFields(fields...)
	}
	return nil
}

// UnmarshalJSON decodes an application object. Unknown fields and values of
// the wrong JSON type are collected and reported together.
func (a *Application) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "application must be a JSON object")
	}
	*a = *New()

	var fields []dErrors.FieldError
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		value := raw[name]
		spec, ok := Lookup(name)
		if !ok {
			fields = append(fields, dErrors.FieldError{Field: name, Reason: "unknown field"})
			continue
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			continue
		}
		if reason := a.decodeValue(spec, value); reason != "" {
			fields = append(fields, dErrors.FieldError{Field: name, Reason: reason})
		}
	}
	if len(fields) > 0 {
		slices.SortStableFunc(fields, func(x, y dErrors.FieldError) int {
			return order(Field(x.Field)) - order(Field(y.Field))
		})
		return dErrors.New(dErrors.CodeValidation, "invalid application").WithFields(fields...)
	}
	return nil
}

func (a *Application) decodeValue(spec Spec, value json.RawMessage) string {
	switch spec.Kind {
	case KindNumber, KindInteger:
		var n float64
		if err := json.Unmarshal(value, &n); err != nil {
			return "must be a number"
		}
		if spec.Kind == KindInteger && n != math.Trunc(n) {
			return "must be a whole number"
		}
		a.numbers[spec.Field] = n
	case KindCategory:
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "must be a string"
		}
		a.categories[spec.Field] = normalizeCategory(s)
	case KindFlag:
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return "must be a boolean"
		}
		a.flags[spec.Field] = b
	}
	return ""
}

// MarshalJSON encodes the set fields as a flat object.
func (a *Application) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.numbers)+len(a.categories)+len(a.flags))
	for f, v := range a.numbers {
		out[string(f)] = v
	}
	for f, v := range a.categories {
		out[string(f)] = v
	}
	for f, v := range a.flags {
		out[string(f)] = v
	}
	return json.Marshal(out)
}

// FromRecord parses a string record such as a CSV row. Columns that are not
// application fields are ignored so datasets can carry labels and protected
// attributes alongside; empty cells are treated as absent.
func FromRecord(record map[string]string) (*Application, error) {
	app := New()
	var fields []dErrors.FieldError
	for _, spec := range registry {
		cell, ok := record[string(spec.Field)]
		cell = strings.TrimSpace(cell)
		if !ok || cell == "" {
			continue
		}
		switch spec.Kind {
		case KindNumber, KindInteger:
			n, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				fields = append(fields, dErrors.FieldError{Field: string(spec.Field), Reason: "must be a number"})
				continue
			}
			if spec.Kind == KindInteger && n != math.Trunc(n) {
				fields = append(fields, dErrors.FieldError{Field: string(spec.Field), Reason: "must be a whole number"})
				continue
			}
			app.numbers[spec.Field] = n
		case KindCategory:
			app.categories[spec.Field] = normalizeCategory(cell)
		case KindFlag:
			b, err := strconv.ParseBool(cell)
			if err != nil {
				fields = append(fields, dErrors.FieldError{Field: string(spec.Field), Reason: "must be a boolean"})
				continue
			}
			app.flags[spec.Field] = b
		}
	}
	if len(fields) > 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid application record").WithFields(fields...)
	}
	return app, nil
}

// String renders the present field names only; values are never printed.
func (a *Application) String() string {
	names := make([]string, 0)
	for _, f := range a.Present() {
		names = append(names, string(f))
	}
	return fmt.Sprintf("Application{%s}", strings.Join(names, ","))
}

func normalizeCategory(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
