package fairness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"creditrisk/internal/application"
)

// amountPredictor declines any application above a credit amount.
func amountPredictor(limit float64) Predictor {
	return PredictorFunc(func(_ context.Context, app *application.Application) (bool, error) {
		amount, ok := app.Number(application.FieldCreditAmount)
		if !ok {
			return false, errors.New("credit_amount missing")
		}
		return amount > limit, nil
	})
}

func scenarioCSV() string {
	var b strings.Builder
	b.WriteString("age,credit_amount,duration,default,gender\n")
	// F: 40 of 100 above the limit, M: 32 of 100.
	for i := range 100 {
		amount := 1000
		if i < 40 {
			amount = 9000
		}
		fmt.Fprintf(&b, "30,%d,24,%d,F\n", amount, i%2)
	}
	for i := range 100 {
		amount := 1000
		if i < 32 {
			amount = 9000
		}
		fmt.Fprintf(&b, "30,%d,24,%d,M\n", amount, i%2)
	}
	return b.String()
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestAuditScenario(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(scenarioCSV()), "", []string{"gender"})
	require.NoError(t, err)
	require.Len(t, ds.Records, 200)

	var calls atomic.Int64
	auditor, err := New(
		WithLogger(slog.New(slog.DiscardHandler)),
		WithWorkers(4),
		WithClock(fixedClock),
		WithModelVersion("test-1"),
		WithProgress(func(done, total int) {
			calls.Add(1)
			assert.LessOrEqual(t, done, total)
		}),
	)
	require.NoError(t, err)

	report, err := auditor.Audit(context.Background(), amountPredictor(5000), ds, nil, []Metric{MetricDemographicParity})
	require.NoError(t, err)

	assert.EqualValues(t, 200, calls.Load())
	assert.Equal(t, 200, report.Samples)
	assert.Zero(t, report.Skipped)
	assert.Equal(t, "test-1", report.ModelVersion)
	assert.Equal(t, fixedClock(), report.GeneratedAt)
	require.Len(t, report.Attributes, 1)
	assert.InDelta(t, 0.08, report.Attributes[0].Metrics[0].Value, 1e-12)
	assert.Equal(t, VerdictPass, report.Verdict)
}

func TestAuditCountsSkippedRows(t *testing.T) {
	csv := strings.Join([]string{
		"age,credit_amount,duration,default,gender",
		"30,9000,24,1,F",
		"30,abc,24,0,F",      // bad number
		"30,1000,24,maybe,M", // bad label
		"30,,24,0,M",         // predictor rejects
		"30,1000,24,0,M",
		"30,1000",            // short row
	}, "\n")
	ds, err := LoadCSV(strings.NewReader(csv), "default", []string{"gender"})
	require.NoError(t, err)
	assert.Len(t, ds.Records, 3)
	assert.Equal(t, 3, ds.Skipped)
	require.Len(t, ds.Problems, 3)
	assert.Equal(t, 3, ds.Problems[0].Line)

	auditor, err := New(WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	report, err := auditor.Audit(context.Background(), amountPredictor(5000), ds, []string{"gender"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Samples)
	assert.Equal(t, 4, report.Skipped)
	assert.Len(t, report.Attributes[0].Metrics, 2)
}

func TestLoadCSVReportsPhysicalLines(t *testing.T) {
	csv := strings.Join([]string{
		"age,credit_amount,duration,default,gender,note",
		`30,9000,24,1,F,"first line`,
		`second line"`,
		"30,abc,24,0,F,",
		"30,1000",
	}, "\n")
	ds, err := LoadCSV(strings.NewReader(csv), "default", []string{"gender"})
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, 2, ds.Records[0].Line)
	require.Len(t, ds.Problems, 2)
	assert.Equal(t, 4, ds.Problems[0].Line)
	assert.Equal(t, 5, ds.Problems[1].Line)
}

func TestLoadCSVRequiresColumns(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("age,credit_amount,default\n"), "default", []string{"gender"})
	assert.ErrorContains(t, err, `"gender"`)

	_, err = LoadCSV(strings.NewReader("age,gender\n"), "default", []string{"gender"})
	assert.ErrorContains(t, err, `"default"`)

	_, err = LoadCSV(strings.NewReader(""), "default", []string{"gender"})
	assert.Error(t, err)

	_, err = LoadCSV(strings.NewReader("default,gender\n"), "default", nil)
	assert.Error(t, err)
}

func TestAuditErrors(t *testing.T) {
	auditor, err := New(WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)

	ds, err := LoadCSV(strings.NewReader("credit_amount,default,gender\n100,0,F\n"), "", []string{"gender"})
	require.NoError(t, err)

	t.Run("unknown attribute", func(t *testing.T) {
		_, err := auditor.Audit(context.Background(), amountPredictor(5000), ds, []string{"race"}, nil)
		assert.Error(t, err)
	})
	t.Run("nothing scored", func(t *testing.T) {
		failing := PredictorFunc(func(context.Context, *application.Application) (bool, error) {
			return false, errors.New("boom")
		})
		_, err := auditor.Audit(context.Background(), failing, ds, nil, nil)
		assert.ErrorIs(t, err, ErrNoObservations)
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := auditor.Audit(ctx, amountPredictor(5000), ds, nil, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
	t.Run("bad thresholds", func(t *testing.T) {
		_, err := New(WithThresholds(Thresholds{Pass: 0.3, Review: 0.1}))
		assert.Error(t, err)
	})
}

func TestRender(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(scenarioCSV()), "", []string{"gender"})
	require.NoError(t, err)
	auditor, err := New(WithLogger(slog.New(slog.DiscardHandler)), WithClock(fixedClock))
	require.NoError(t, err)
	report, err := auditor.Audit(context.Background(), amountPredictor(5000), ds, nil, nil)
	require.NoError(t, err)

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, report, FormatText))
		out := buf.String()
		assert.Contains(t, out, "FAIRNESS AUDIT REPORT")
		assert.Contains(t, out, "Protected Attribute: gender")
		assert.Contains(t, out, "Demographic Parity Difference: 0.0800 [PASS]")
		assert.Contains(t, out, "Equalized Odds Difference:")
		assert.Equal(t, out, Text(report), "rendering must be deterministic")
	})
	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, report, FormatYAML))

		var decoded Report
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, report.Samples, decoded.Samples)
		assert.Equal(t, report.Verdict, decoded.Verdict)
		assert.Equal(t, "gender", decoded.Attributes[0].Attribute)
	})
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, report, FormatJSON))
		assert.Contains(t, buf.String(), `"demographic_parity"`)
	})
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}
