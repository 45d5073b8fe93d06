package fairness

import (
	"cmp"
	"slices"
)

type tally struct {
	count, selected, correct int
	positives, truePos       int
	negatives, falsePos      int
}

func (t *tally) add(o Observation) {
	t.count++
	if o.Predicted {
		t.selected++
	}
	if o.Predicted == o.Actual {
		t.correct++
	}
	if o.Actual {
		t.positives++
		if o.Predicted {
			t.truePos++
		}
	} else {
		t.negatives++
		if o.Predicted {
			t.falsePos++
		}
	}
}

func (t *tally) stats(group string) GroupStats {
	gs := GroupStats{
		Group:         group,
		Count:         t.count,
		SelectionRate: ratio(t.selected, t.count),
		Accuracy:      ratio(t.correct, t.count),
	}
	if t.positives > 0 {
		v := ratio(t.truePos, t.positives)
		gs.TPR = &v
	}
	if t.negatives > 0 {
		v := ratio(t.falsePos, t.negatives)
		gs.FPR = &v
	}
	return gs
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// GroupBreakdown tallies observations by their value of attribute. Groups
// are sorted by name. Rows without a value belong to no group; their count
// is returned separately.
func GroupBreakdown(obs []Observation, attribute string) ([]GroupStats, int) {
	tallies := map[string]*tally{}
	missing := 0
	for _, o := range obs {
		g := o.Groups[attribute]
		if g == "" {
			missing++
			continue
		}
		t, ok := tallies[g]
		if !ok {
			t = &tally{}
			tallies[g] = t
		}
		t.add(o)
	}

	out := make([]GroupStats, 0, len(tallies))
	for g, t := range tallies {
		out = append(out, t.stats(g))
	}
	slices.SortFunc(out, func(a, b GroupStats) int { return cmp.Compare(a.Group, b.Group) })
	return out, missing
}

// DemographicParity is the spread between the highest and lowest selection
// rate across groups.
func DemographicParity(groups []GroupStats) float64 {
	rates := make([]float64, 0, len(groups))
	for _, g := range groups {
		rates = append(rates, g.SelectionRate)
	}
	return spread(rates)
}

// EqualizedOdds is the larger of the TPR spread and the FPR spread. Groups
// without the examples a rate needs are left out of that rate's spread.
func EqualizedOdds(groups []GroupStats) float64 {
	var tprs, fprs []float64
	for _, g := range groups {
		if g.TPR != nil {
			tprs = append(tprs, *g.TPR)
		}
		if g.FPR != nil {
			fprs = append(fprs, *g.FPR)
		}
	}
	return max(spread(tprs), spread(fprs))
}

func spread(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	return slices.Max(vals) - slices.Min(vals)
}

// Evaluate computes the requested metrics for one attribute.
func Evaluate(obs []Observation, attribute string, metrics []Metric, th Thresholds) AttributeReport {
	groups, missing := GroupBreakdown(obs, attribute)
	ar := AttributeReport{Attribute: attribute, Groups: groups, Unassigned: missing}

	verdicts := make([]Verdict, 0, len(metrics))
	for _, m := range metrics {
		var v float64
		switch m {
		case MetricDemographicParity:
			v = DemographicParity(groups)
		case MetricEqualizedOdds:
			v = EqualizedOdds(groups)
		default:
			continue
		}
		res := MetricResult{Metric: m, Value: v, Verdict: th.Verdict(v)}
		ar.Metrics = append(ar.Metrics, res)
		verdicts = append(verdicts, res.Verdict)
	}
	ar.Verdict = worst(verdicts...)
	return ar
}
