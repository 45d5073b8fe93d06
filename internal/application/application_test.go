package application

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "creditrisk/pkg/domain-errors"
)

func TestUnmarshalJSON(t *testing.T) {
	t.Run("decodes typed fields", func(t *testing.T) {
		var app Application
		err := json.Unmarshal([]byte(`{
			"age": 30,
			"credit_amount": 5000.5,
			"duration": 24,
			"checking_account_status": " Moderate ",
			"has_telephone": true,
			"property_value": null
		}`), &app)
		require.NoError(t, err)

		age, ok := app.Number(FieldAge)
		assert.True(t, ok)
		assert.Equal(t, 30.0, age)
		status, _ := app.Category(FieldCheckingStatus)
		assert.Equal(t, "moderate", status)
		phone, _ := app.Flag(FieldHasTelephone)
		assert.True(t, phone)
		assert.False(t, app.Has(FieldPropertyValue), "null is treated as absent")
	})

	t.Run("unknown field rejected by name", func(t *testing.T) {
		var app Application
		err := json.Unmarshal([]byte(`{"age": 30, "favourite_colour": "blue"}`), &app)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		de, ok := dErrors.As(err)
		require.True(t, ok)
		require.Len(t, de.Fields, 1)
		assert.Equal(t, "favourite_colour", de.Fields[0].Field)
		assert.Equal(t, "unknown field", de.Fields[0].Reason)
	})

	t.Run("type errors reported in registry order", func(t *testing.T) {
		var app Application
		err := json.Unmarshal([]byte(`{"duration": "long", "age": 30.5, "has_telephone": "yes"}`), &app)
		require.Error(t, err)

		de, ok := dErrors.As(err)
		require.True(t, ok)
		require.Len(t, de.Fields, 3)
		assert.Equal(t, "age", de.Fields[0].Field)
		assert.Equal(t, "must be a whole number", de.Fields[0].Reason)
		assert.Equal(t, "duration", de.Fields[1].Field)
		assert.Equal(t, "has_telephone", de.Fields[2].Field)
	})

	t.Run("non-object rejected", func(t *testing.T) {
		var app Application
		err := json.Unmarshal([]byte(`[1,2,3]`), &app)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestMarshalRoundTrip(t *testing.T) {
	app := Quick(30, 5000, 24, 4).SetCategory(FieldLoanPurpose, "education")

	data, err := json.Marshal(app)
	require.NoError(t, err)

	var decoded Application
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, app.Present(), decoded.Present())
}

func TestCheckMode(t *testing.T) {
	t.Run("quick mode accepts the four quick fields", func(t *testing.T) {
		assert.NoError(t, Quick(30, 5000, 24, 4).CheckMode(ModeQuick))
	})

	t.Run("quick mode rejects other fields", func(t *testing.T) {
		app := Quick(30, 5000, 24, 4).SetNumber(FieldCreditScore, 700)
		err := app.CheckMode(ModeQuick)
		require.Error(t, err)
		de, _ := dErrors.As(err)
		require.Len(t, de.Fields, 1)
		assert.Equal(t, "credit_score", de.Fields[0].Field)
	})

	t.Run("full mode accepts every registry field", func(t *testing.T) {
		app := New()
		for _, spec := range Specs() {
			switch spec.Kind {
			case KindCategory:
				app.SetCategory(spec.Field, spec.Categories[0])
			case KindFlag:
				app.SetFlag(spec.Field, true)
			default:
				app.SetNumber(spec.Field, spec.Min)
			}
		}
		assert.NoError(t, app.CheckMode(ModeFull))
		assert.Len(t, app.Present(), 47)
	})
}

func TestFromRecord(t *testing.T) {
	app, err := FromRecord(map[string]string{
		"age":            "41",
		"credit_amount":  "12000",
		"duration":       "36",
		"housing_status": "own",
		"has_telephone":  "false",
		"default":        "1",
		"gender":         "female",
		"property_value": "",
	})
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldAge, FieldCreditAmount, FieldDuration, FieldHousingStatus, FieldHasTelephone}, app.Present())

	_, err = FromRecord(map[string]string{"age": "old"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestRegistry(t *testing.T) {
	assert.Len(t, Specs(), 47)
	assert.Len(t, Sections(), 9)

	for _, spec := range Specs() {
		if spec.Kind == KindNumber || spec.Kind == KindInteger {
			assert.Less(t, spec.Min, spec.Max, spec.Field)
		}
		if spec.Kind == KindCategory {
			assert.NotEmpty(t, spec.Categories, spec.Field)
		}
	}
}

func TestStringHidesValues(t *testing.T) {
	app := Quick(30, 98765, 24, 4)
	assert.NotContains(t, app.String(), "98765")
	assert.Contains(t, app.String(), "credit_amount")
}
