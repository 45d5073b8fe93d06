package explain

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"creditrisk/internal/scoring"
)

// perturbation fits a locally weighted ridge surrogate around x in
// standardized feature space. Impacts are the surrogate coefficients times
// the standardized distance of x from the training mean; the base value is
// the surrogate's intercept.
func (e *Explainer) perturbation(model scoring.Model, x []float64) (float64, []float64, error) {
	info := model.Info()
	p := len(x)
	stats := info.Stats
	if len(stats) != p {
		return 0, nil, fmt.Errorf("model carries no feature statistics")
	}

	width := e.cfg.KernelWidth
	if width <= 0 {
		width = 0.75 * math.Sqrt(float64(p))
	}
	n := e.cfg.Samples
	rng := rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed^0x9e3779b97f4a7c15))

	origin := make([]float64, p)
	for j := range x {
		origin[j] = standardize(x[j], stats[j])
	}

	design := mat.NewDense(n, p+1, nil)
	target := mat.NewVecDense(n, nil)
	sample := make([]float64, p)
	for i := range n {
		dist := 0.0
		for j := range p {
			z := origin[j]
			// Row 0 is the instance itself.
			if i > 0 {
				z += rng.NormFloat64()
			}
			dist += (z - origin[j]) * (z - origin[j])
			sample[j] = destandardize(z, stats[j])
			design.Set(i, j+1, z)
		}
		score, err := model.Predict(sample)
		if err != nil {
			return 0, nil, err
		}
		w := math.Sqrt(math.Exp(-dist / (width * width)))
		design.Set(i, 0, 1)
		for j := 0; j <= p; j++ {
			design.Set(i, j, design.At(i, j)*math.Sqrt(w))
		}
		target.SetVec(i, score.Margin*math.Sqrt(w))
	}

	var gram mat.Dense
	gram.Mul(design.T(), design)
	for j := 1; j <= p; j++ {
		gram.Set(j, j, gram.At(j, j)+e.cfg.Ridge)
	}
	var rhs mat.VecDense
	rhs.MulVec(design.T(), target)

	var beta mat.VecDense
	if err := beta.SolveVec(&gram, &rhs); err != nil {
		return 0, nil, fmt.Errorf("solve surrogate: %w", err)
	}

	impacts := make([]float64, p)
	for j := range p {
		impacts[j] = beta.AtVec(j+1) * origin[j]
	}
	return beta.AtVec(0), impacts, nil
}

func standardize(v float64, st scoring.FeatureStat) float64 {
	if st.Std <= 0 {
		return v - st.Mean
	}
	return (v - st.Mean) / st.Std
}

func destandardize(z float64, st scoring.FeatureStat) float64 {
	if st.Std <= 0 {
		return z + st.Mean
	}
	return z*st.Std + st.Mean
}
