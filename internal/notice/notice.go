// Package notice renders adverse-action notices, improvement suggestions and
// decision summaries from ranked attributions. Output is a pure function of
// its input.
package notice

import (
	"errors"
	"fmt"
	"strings"

	"creditrisk/internal/explain"
)

// DefaultTopK is the number of reasons listed on a notice.
const DefaultTopK = 5

// ErrNotDeclined is returned when a notice is requested for an approval.
var ErrNotDeclined = errors.New("adverse notice requires a declined decision")

// Subject is the decision a notice or summary describes.
type Subject struct {
	Declined    bool
	Label       string
	Probability float64
	RiskGrade   string
}

// Reason is one plain-language line of a notice.
type Reason struct {
	Rank      int     `json:"rank"`
	Feature   string  `json:"feature"`
	Statement string  `json:"statement"`
	Impact    float64 `json:"impact"`
}

// AdverseNotice is the rendered notice and the reasons it lists.
type AdverseNotice struct {
	Reasons []Reason `json:"reasons"`
	Text    string   `json:"text"`
}

// Generator holds the notice template settings.
type Generator struct {
	topK int
}

// New returns a generator listing up to topK reasons; topK <= 0 uses
// DefaultTopK.
func New(topK int) *Generator {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Generator{topK: topK}
}

// Notice builds the adverse-action notice for a declined decision from the
// top risk-increasing attributions. attributions must already be ranked.
func (g *Generator) Notice(subject Subject, attributions []explain.Attribution) (*AdverseNotice, error) {
	if !subject.Declined {
		return nil, ErrNotDeclined
	}

	var reasons []Reason
	for _, a := range attributions {
		if a.Direction != explain.RiskIncreasing {
			continue
		}
		reasons = append(reasons, Reason{
			Rank:      len(reasons) + 1,
			Feature:   a.Feature,
			Statement: Statement(a.Feature),
			Impact:    a.Impact,
		})
		if len(reasons) == g.topK {
			break
		}
	}

	var b strings.Builder
	b.WriteString("ADVERSE ACTION NOTICE\n")
	b.WriteString("=====================\n\n")
	fmt.Fprintf(&b, "Decision: %s\n", subject.Label)
	fmt.Fprintf(&b, "Risk Grade: %s\n", subject.RiskGrade)
	fmt.Fprintf(&b, "Default Risk Probability: %.2f%%\n\n", subject.Probability*100)
	b.WriteString("Principal reasons for this decision:\n")
	if len(reasons) == 0 {
		b.WriteString("  No individual factor could be isolated; the decision reflects the overall profile.\n")
	}
	for _, r := range reasons {
		fmt.Fprintf(&b, "  %d. %s (impact %.3f)\n", r.Rank, r.Statement, r.Impact)
	}
	b.WriteString(rightsBlock)

	return &AdverseNotice{Reasons: reasons, Text: b.String()}, nil
}

const rightsBlock = `
------------------------------------------------------
Your rights:
- You may request a free copy of your credit report within 60 days.
- You may dispute incomplete or inaccurate information with the reporting agency.
- You may request the specific reasons for this decision in writing.
- Creditors may not discriminate on the basis of race, color, religion, national
  origin, sex, marital status or age.
------------------------------------------------------
`

// Recommendations returns one suggestion per mapped risk-increasing factor,
// in rank order, for at most topK factors. Factors without a suggestion are
// skipped.
func (g *Generator) Recommendations(attributions []explain.Attribution) []string {
	out := make([]string, 0)
	considered := 0
	for _, a := range attributions {
		if a.Direction != explain.RiskIncreasing {
			continue
		}
		if considered == g.topK {
			break
		}
		considered++
		if s, ok := suggestions[a.Feature]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ExplanationText summarizes any decision, approved or declined.
func (g *Generator) ExplanationText(subject Subject, method string, attributions []explain.Attribution) string {
	var b strings.Builder
	b.WriteString("CREDIT DECISION EXPLANATION\n")
	b.WriteString("===========================\n\n")
	fmt.Fprintf(&b, "Decision: %s\n", subject.Label)
	fmt.Fprintf(&b, "Risk Grade: %s\n", subject.RiskGrade)
	fmt.Fprintf(&b, "Default Probability: %.1f%%\n", subject.Probability*100)

	top := attributions
	if len(top) > g.topK {
		top = top[:g.topK]
	}
	if len(top) > 0 {
		b.WriteString("\nTop influencing factors:\n")
		for i, a := range top {
			marker := "+"
			if a.Direction == explain.RiskIncreasing {
				marker = "-"
			}
			fmt.Fprintf(&b, "  %d. [%s] %s (impact %.3f)\n", i+1, marker, Label(a.Feature), a.Impact)
		}
		fmt.Fprintf(&b, "\nFactors were attributed with the %s method.\n", method)
	}
	if subject.Declined {
		b.WriteString("\nAn adverse action notice listing your rights accompanies this decision.\n")
	}
	return b.String()
}
