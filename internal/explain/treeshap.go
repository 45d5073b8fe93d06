package explain

import "creditrisk/internal/scoring"

type treeModel interface {
	BaseScore() float64
	Trees() []scoring.Tree
}

// pathElem tracks one feature on the current root-to-node path: the share
// of cover that flows through when the feature is unknown (zero) or known
// (one), and the permutation weight accumulated so far.
type pathElem struct {
	feature int
	zero    float64
	one     float64
	weight  float64
}

// treeSHAP computes exact path-dependent Shapley values in margin space.
// The returned base is the cover-weighted expected margin.
func treeSHAP(m treeModel, x []float64) (float64, []float64) {
	phi := make([]float64, len(x))
	base := m.BaseScore()
	for _, t := range m.Trees() {
		base += expectedValue(t, 0)
		w := &shapWalk{tree: t, x: x, phi: phi}
		w.recurse(0, nil, 1, 1, -1)
	}
	return base, phi
}

func expectedValue(t scoring.Tree, i int) float64 {
	n := t.Nodes[i]
	if n.Leaf {
		return n.Value
	}
	l, r := t.Nodes[n.Left], t.Nodes[n.Right]
	return (l.Cover*expectedValue(t, n.Left) + r.Cover*expectedValue(t, n.Right)) / n.Cover
}

type shapWalk struct {
	tree scoring.Tree
	x    []float64
	phi  []float64
}

func (w *shapWalk) recurse(node int, parent []pathElem, zero, one float64, feature int) {
	depth := len(parent)
	path := make([]pathElem, depth+1)
	copy(path, parent)
	extend(path, depth, zero, one, feature)

	n := w.tree.Nodes[node]
	if n.Leaf {
		for i := 1; i <= depth; i++ {
			el := path[i]
			w.phi[el.feature] += unwoundSum(path, depth, i) * (el.one - el.zero) * n.Value
		}
		return
	}

	hot, cold := n.Right, n.Left
	if w.x[n.Feature] < n.Threshold {
		hot, cold = n.Left, n.Right
	}
	hotZero := w.tree.Nodes[hot].Cover / n.Cover
	coldZero := w.tree.Nodes[cold].Cover / n.Cover

	inZero, inOne := 1.0, 1.0
	for k := 1; k <= depth; k++ {
		if path[k].feature == n.Feature {
			inZero, inOne = path[k].zero, path[k].one
			unwind(path, depth, k)
			path = path[:depth]
			break
		}
	}

	w.recurse(hot, path, hotZero*inZero, inOne, n.Feature)
	w.recurse(cold, path, coldZero*inZero, 0, n.Feature)
}

func extend(path []pathElem, depth int, zero, one float64, feature int) {
	path[depth] = pathElem{feature: feature, zero: zero, one: one}
	if depth == 0 {
		path[depth].weight = 1
	}
	d := float64(depth + 1)
	for i := depth - 1; i >= 0; i-- {
		path[i+1].weight += one * path[i].weight * float64(i+1) / d
		path[i].weight = zero * path[i].weight * float64(depth-i) / d
	}
}

func unwind(path []pathElem, depth, k int) {
	one, zero := path[k].one, path[k].zero
	next := path[depth].weight
	d := float64(depth + 1)
	for i := depth - 1; i >= 0; i-- {
		if one != 0 {
			tmp := path[i].weight
			path[i].weight = next * d / (float64(i+1) * one)
			next = tmp - path[i].weight*zero*float64(depth-i)/d
		} else {
			path[i].weight = path[i].weight * d / (zero * float64(depth-i))
		}
	}
	for i := k; i < depth; i++ {
		path[i].feature = path[i+1].feature
		path[i].zero = path[i+1].zero
		path[i].one = path[i+1].one
	}
}

func unwoundSum(path []pathElem, depth, k int) float64 {
	one, zero := path[k].one, path[k].zero
	next := path[depth].weight
	d := float64(depth + 1)
	total := 0.0
	for i := depth - 1; i >= 0; i-- {
		switch {
		case one != 0:
			tmp := next * d / (float64(i+1) * one)
			total += tmp
			next = path[i].weight - tmp*zero*float64(depth-i)/d
		case zero != 0:
			total += path[i].weight / zero / (float64(depth-i) / d)
		}
	}
	return total
}
