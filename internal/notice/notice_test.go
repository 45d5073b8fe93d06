package notice

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditrisk/internal/explain"
	"creditrisk/pkg/platform/sentinel"
)

var declined = Subject{Declined: true, Label: "DECLINED", Probability: 0.8429, RiskGrade: "CC"}

func attributions() []explain.Attribution {
	return []explain.Attribution{
		{Feature: "credit_amount", Index: 1, Impact: 1.12, Direction: explain.RiskIncreasing},
		{Feature: "duration", Index: 2, Impact: 0.975, Direction: explain.RiskIncreasing},
		{Feature: "installment_rate", Index: 3, Impact: 0.48, Direction: explain.RiskIncreasing},
		{Feature: "age", Index: 0, Impact: 0.425, Direction: explain.RiskIncreasing},
		{Feature: "debt_to_income", Index: 27, Impact: -0.263, Direction: explain.RiskDecreasing},
		{Feature: "monthly_burden", Index: 29, Impact: 0.24, Direction: explain.RiskIncreasing},
		{Feature: "loan_purpose", Index: 19, Impact: 0.1, Direction: explain.RiskIncreasing},
	}
}

func TestNotice(t *testing.T) {
	g := New(5)

	t.Run("lists top risk-increasing reasons in order", func(t *testing.T) {
		n, err := g.Notice(declined, attributions())
		require.NoError(t, err)
		require.Len(t, n.Reasons, 5)

		var features []string
		for _, r := range n.Reasons {
			features = append(features, r.Feature)
		}
		assert.Equal(t, []string{"credit_amount", "duration", "installment_rate", "age", "monthly_burden"}, features)
		assert.Contains(t, n.Text, "1. Requested credit amount is high relative to your profile")
		assert.Contains(t, n.Text, "Your rights:")
		assert.NotContains(t, n.Text, "Debt obligations")
	})

	t.Run("idempotent", func(t *testing.T) {
		first, err := g.Notice(declined, attributions())
		require.NoError(t, err)
		second, err := g.Notice(declined, attributions())
		require.NoError(t, err)
		assert.Equal(t, first.Text, second.Text)
	})

	t.Run("rejects approvals", func(t *testing.T) {
		_, err := g.Notice(Subject{Label: "APPROVED", Probability: 0.1}, attributions())
		assert.ErrorIs(t, err, ErrNotDeclined)
	})

	t.Run("no adverse factors", func(t *testing.T) {
		n, err := g.Notice(declined, nil)
		require.NoError(t, err)
		assert.Empty(t, n.Reasons)
		assert.Contains(t, n.Text, "overall profile")
	})
}

func TestRecommendations(t *testing.T) {
	recs := New(5).Recommendations(attributions())
	assert.Equal(t, []string{
		"Consider requesting a lower credit amount.",
		"Consider a shorter loan term to reduce repayment risk.",
		"Lower the installment rate relative to your disposable income.",
		"Adjust the amount or term to lower the monthly payment.",
	}, recs, "age has no suggestion and is omitted")

	assert.Empty(t, New(5).Recommendations(nil))
}

func TestExplanationText(t *testing.T) {
	g := New(3)
	text := g.ExplanationText(declined, "tree_shap", attributions())
	assert.Contains(t, text, "Decision: DECLINED")
	assert.Contains(t, text, "1. [-] Credit Amount (impact 1.120)")
	assert.NotContains(t, text, "Age")
	assert.Contains(t, text, "adverse action notice")

	approved := g.ExplanationText(Subject{Label: "APPROVED", Probability: 0.08, RiskGrade: "AA"}, "tree_shap", nil)
	assert.NotContains(t, approved, "adverse action notice")
	assert.NotContains(t, approved, "Top influencing factors")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Num Credit Inquiries 6m", Label("num_credit_inquiries_6m"))
	assert.Equal(t, "Some New Factor", Statement("some_new_factor"))
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, archive.Save(ctx, id, "notice body"))

	rc, err := archive.Open(ctx, id)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "notice body", string(body))

	_, err = archive.Open(ctx, uuid.New())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
