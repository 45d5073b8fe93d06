package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditrisk/internal/fairness"
)

// writeDataset puts low-risk applicants in group "a" and high-risk ones in
// group "b", so the model's declines split cleanly by group.
func writeDataset(t *testing.T, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("age,credit_amount,duration,installment_rate,default,sex\n")
	for i := range rows {
		if i%2 == 0 {
			fmt.Fprintf(&b, "30,5000,24,4,%d,a\n", i%4/2)
		} else {
			fmt.Fprintf(&b, "22,50000,60,9,%d,b\n", (i+1)%4/2)
		}
	}
	b.WriteString("not-a-number,5000,24,4,0,a\n")

	path := filepath.Join(t.TempDir(), "holdout.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CREDITRISK_AUDIT_WORKERS", "2")
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRunJSONReport(t *testing.T) {
	data := writeDataset(t, 40)

	out, err := execute(t, "run", "--data", data, "--attributes", "sex", "--format", "json", "--quiet", "--fail-on", "never")
	require.NoError(t, err)

	var report fairness.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 40, report.Samples)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Attributes, 1)
	assert.Equal(t, "sex", report.Attributes[0].Attribute)
	assert.Equal(t, fairness.VerdictFail, report.Verdict, "declines fall entirely on one group")
	assert.NotEmpty(t, report.ModelVersion)
}

func TestRunFailsOnVerdict(t *testing.T) {
	data := writeDataset(t, 20)

	_, err := execute(t, "run", "--data", data, "--attributes", "sex", "--quiet")
	require.Error(t, err)
	var ve *verdictError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, fairness.VerdictFail, ve.verdict)
}

func TestRunWritesReportFile(t *testing.T) {
	data := writeDataset(t, 20)
	dest := filepath.Join(t.TempDir(), "report.yaml")

	_, err := execute(t, "run", "--data", data, "--attributes", "sex",
		"--format", "yaml", "--output", dest, "--metrics", "demographic_parity", "--quiet", "--fail-on", "never")
	require.NoError(t, err)

	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(body), "demographic_parity")
	assert.NotContains(t, string(body), "equalized_odds")
}

func TestRunConfigFile(t *testing.T) {
	data := writeDataset(t, 20)
	cfg := filepath.Join(t.TempDir(), "audit.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("audit:\n  pass_threshold: 1.5\n  review_threshold: 2\n"), 0o600))

	out, err := execute(t, "--config", cfg, "run", "--data", data, "--attributes", "sex", "--quiet")
	require.NoError(t, err, "thresholds above any possible gap always pass")
	assert.Contains(t, out, "FAIRNESS AUDIT REPORT")
}

func TestRunRejectsBadInput(t *testing.T) {
	data := writeDataset(t, 4)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing data flag", args: []string{"run", "--attributes", "sex"}, want: "data"},
		{name: "unknown format", args: []string{"run", "--data", data, "--attributes", "sex", "--format", "xml"}, want: "xml"},
		{name: "unknown metric", args: []string{"run", "--data", data, "--attributes", "sex", "--metrics", "calibration"}, want: "calibration"},
		{name: "unknown attribute", args: []string{"run", "--data", data, "--attributes", "race"}, want: "race"},
		{name: "bad fail-on", args: []string{"run", "--data", data, "--attributes", "sex", "--fail-on", "sometimes"}, want: "sometimes"},
		{name: "bad log format", args: []string{"--log-format", "xml", "run", "--data", data, "--attributes", "sex"}, want: "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
