package scoring

import (
	"fmt"
	"math"
)

// Node is one tree node. Internal nodes route x[Feature] < Threshold to
// Left and everything else to Right. Cover is the training sample weight
// that reached the node.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Cover     float64 `json:"cover"`
}

// Tree is a flat node array rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Leaf returns the leaf value x routes to.
func (t Tree) Leaf(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (t Tree) validate(features int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if !(n.Cover > 0) {
			return fmt.Errorf("node %d: cover must be positive", i)
		}
		if n.Leaf {
			if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
				return fmt.Errorf("node %d: leaf value must be finite", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= features {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		// Children must come later so every walk terminates.
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) || n.Left == n.Right {
			return fmt.Errorf("node %d: invalid child reference", i)
		}
		sum := t.Nodes[n.Left].Cover + t.Nodes[n.Right].Cover
		if math.Abs(sum-n.Cover) > 1e-6*math.Max(1, n.Cover) {
			return fmt.Errorf("node %d: cover %g does not equal children %g", i, n.Cover, sum)
		}
	}
	return nil
}

// TreeEnsemble is a gradient-boosted tree model. Its margin is the base
// score plus one leaf per tree.
type TreeEnsemble struct {
	info  Info
	base  float64
	trees []Tree
}

// NewTreeEnsemble validates the trees against info.Features.
func NewTreeEnsemble(info Info, base float64, trees []Tree) (*TreeEnsemble, error) {
	if len(trees) == 0 {
		return nil, &ModelError{Reason: ReasonInvalidArtifact, Detail: "tree ensemble has no trees"}
	}
	for i, t := range trees {
		if err := t.validate(len(info.Features)); err != nil {
			return nil, &ModelError{Reason: ReasonInvalidArtifact, Detail: fmt.Sprintf("tree %d", i), Err: err}
		}
	}
	info.Kind = KindTreeEnsemble
	info.Strategies = []Strategy{StrategyTreeSHAP, StrategyPerturbation}
	return &TreeEnsemble{info: info, base: base, trees: trees}, nil
}

func (m *TreeEnsemble) Info() Info {
	return m.info
}

// BaseScore is the margin before any tree contributes.
func (m *TreeEnsemble) BaseScore() float64 {
	return m.base
}

// Trees exposes the ensemble for exact attribution. Callers must not
// modify the result.
func (m *TreeEnsemble) Trees() []Tree {
	return m.trees
}

func (m *TreeEnsemble) Predict(x []float64) (Score, error) {
	if err := checkInput(x, len(m.info.Features)); err != nil {
		return Score{}, err
	}
	margin := m.base
	for _, t := range m.trees {
		margin += t.Leaf(x)
	}
	return Score{Probability: sigmoid(margin), Margin: margin}, nil
}

func (m *TreeEnsemble) Supports(s Strategy) bool {
	return s == StrategyTreeSHAP || s == StrategyPerturbation
}
