package decision

import (
	"context"
	"fmt"
	"time"

	"creditrisk/internal/application"
)

// counterfactualSteps are the credit amount reductions tried, in percent.
var counterfactualSteps = []int{10, 20, 30}

// counterfactual re-scores a declined application with a smaller credit
// amount and reports the first reduction that turns it into an approval.
func (s *Service) counterfactual(ctx context.Context, app *application.Application, mode application.Mode) *Counterfactual {
	amount, ok := app.Number(application.FieldCreditAmount)
	if !ok {
		return nil
	}
	start := time.Now()
	defer func() { s.metrics.ObserveStage("counterfactual", time.Since(start)) }()

	cf := &Counterfactual{TestedPercents: counterfactualSteps}
	for _, pct := range counterfactualSteps {
		reduced := amount * float64(100-pct) / 100
		variant := app.Clone().SetNumber(application.FieldCreditAmount, reduced)
		d, _, _, err := s.decide(ctx, variant, mode)
		if err != nil {
			// The reduced amount can fall below the accepted range.
			continue
		}
		if !d.Declined() {
			cf.Found = true
			cf.ReductionPct = pct
			cf.CreditAmount = reduced
			cf.Probability = d.Probability
			cf.Message = fmt.Sprintf("Reducing the credit amount by %d%% to %.2f would change the decision to %s (default probability %.1f%%).",
				pct, reduced, LabelApproved, d.Probability*100)
			return cf
		}
	}
	cf.Message = fmt.Sprintf("Reducing the credit amount by up to %d%% would not change the decision.",
		counterfactualSteps[len(counterfactualSteps)-1])
	return cf
}
