package fairness

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects a report rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Render writes r in the given format.
func Render(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, Text(r))
		return err
	}
}

const rule = "--------------------------------------------------"

var metricTitles = map[Metric]string{
	MetricDemographicParity: "Demographic Parity Difference:",
	MetricEqualizedOdds:     "Equalized Odds Difference:",
}

// Text renders the plain-text compliance report.
func Text(r *Report) string {
	var b strings.Builder
	b.WriteString("FAIRNESS AUDIT REPORT\n")
	b.WriteString("====================\n\n")
	b.WriteString("This report evaluates model bias across protected attributes.\n")
	if r.ModelVersion != "" {
		fmt.Fprintf(&b, "Model: %s\n", r.ModelVersion)
	}
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Samples: %d (skipped %d)\n", r.Samples, r.Skipped)
	b.WriteString("Thresholds:\n")
	fmt.Fprintf(&b, "  |metric| < %.2f -> PASS\n", r.Thresholds.Pass)
	fmt.Fprintf(&b, "  |metric| < %.2f -> REVIEW\n", r.Thresholds.Review)
	fmt.Fprintf(&b, "  |metric| >= %.2f -> FAIL\n", r.Thresholds.Review)

	for _, ar := range r.Attributes {
		fmt.Fprintf(&b, "\n%s\nProtected Attribute: %s\n%s\n", rule, ar.Attribute, rule)
		for _, m := range ar.Metrics {
			fmt.Fprintf(&b, "%-31s%.4f [%s]\n", metricTitles[m.Metric], m.Value, m.Verdict)
		}
		b.WriteString("\nMetrics by Group:\n")
		fmt.Fprintf(&b, "  %-16s %7s %10s %8s %8s %9s\n", "group", "count", "selection", "tpr", "fpr", "accuracy")
		for _, g := range ar.Groups {
			fmt.Fprintf(&b, "  %-16s %7d %10.4f %8s %8s %9.4f\n",
				g.Group, g.Count, g.SelectionRate, optional(g.TPR), optional(g.FPR), g.Accuracy)
		}
		if ar.Unassigned > 0 {
			fmt.Fprintf(&b, "  (%d rows without a value excluded)\n", ar.Unassigned)
		}
	}

	fmt.Fprintf(&b, "\n%s\nOverall Verdict: %s\n%s\n", rule, r.Verdict, rule)
	b.WriteString("Recommendations:\n")
	b.WriteString("  - Review biased features\n")
	b.WriteString("  - Consider fairness-aware training\n")
	b.WriteString("  - Apply post-processing mitigation\n")
	b.WriteString("  - Escalate to compliance if FAIL\n")
	b.WriteString(rule + "\n")
	return b.String()
}

func optional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
