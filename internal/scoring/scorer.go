package scoring

// Result is the scorer's output for one vector.
type Result struct {
	Probability  float64
	Margin       float64
	ModelVersion string
}

// Scorer wraps the loaded model. A nil model is allowed so the service can
// start and report itself unavailable.
type Scorer struct {
	model Model
}

// NewScorer returns a scorer for model, which may be nil.
func NewScorer(model Model) *Scorer {
	return &Scorer{model: model}
}

// Model returns the loaded model, or nil.
func (s *Scorer) Model() Model {
	if s == nil {
		return nil
	}
	return s.model
}

// Loaded reports whether a model is available.
func (s *Scorer) Loaded() bool {
	return s.Model() != nil
}

// Score evaluates vec. It has no side effects.
func (s *Scorer) Score(vec []float64) (Result, error) {
	m := s.Model()
	if m == nil {
		return Result{}, &ModelError{Reason: ReasonNotLoaded, Detail: "no model loaded"}
	}
	score, err := m.Predict(vec)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Probability:  score.Probability,
		Margin:       score.Margin,
		ModelVersion: m.Info().Version,
	}, nil
}
