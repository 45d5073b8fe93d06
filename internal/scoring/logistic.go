package scoring

import "fmt"

// Logistic is a linear model over standardized features. It has no tree
// structure, so only perturbation attribution applies.
type Logistic struct {
	info         Info
	intercept    float64
	coefficients []float64
}

// NewLogistic requires one coefficient and one feature statistic per feature.
func NewLogistic(info Info, intercept float64, coefficients []float64) (*Logistic, error) {
	if len(coefficients) != len(info.Features) {
		return nil, &ModelError{Reason: ReasonInvalidArtifact, Detail: fmt.Sprintf("%d coefficients for %d features", len(coefficients), len(info.Features))}
	}
	if len(info.Stats) != len(info.Features) {
		return nil, &ModelError{Reason: ReasonInvalidArtifact, Detail: "logistic model requires feature statistics"}
	}
	info.Kind = KindLogistic
	info.Strategies = []Strategy{StrategyPerturbation}
	return &Logistic{info: info, intercept: intercept, coefficients: coefficients}, nil
}

func (m *Logistic) Info() Info {
	return m.info
}

func (m *Logistic) Predict(x []float64) (Score, error) {
	if err := checkInput(x, len(m.coefficients)); err != nil {
		return Score{}, err
	}
	margin := m.intercept
	for i, beta := range m.coefficients {
		margin += beta * standardize(x[i], m.info.Stats[i])
	}
	return Score{Probability: sigmoid(margin), Margin: margin}, nil
}

func (m *Logistic) Supports(s Strategy) bool {
	return s == StrategyPerturbation
}

func standardize(v float64, st FeatureStat) float64 {
	if st.Std <= 0 {
		return v - st.Mean
	}
	return (v - st.Mean) / st.Std
}
