package treecrf

import (
	"fmt"

	"github.com/happyhackingspace/treecrf/cliquetree"
)

// Marginals returns the posterior distribution over hidden states for
// every position of x, read off the calibrated clique tree.
func (m *Model) Marginals(x []int) ([][]float64, error) {
	if err := validateObservations(x, m.Params); err != nil {
		return nil, err
	}
	if want := FeatureSetSize(m.Params); len(m.Theta) != want {
		return nil, fmt.Errorf("treecrf: model has %d parameters, dimensions need %d", len(m.Theta), want)
	}
	fs := BuildFeatureSet(x, m.Params)
	factors := AssembleFactors(fs, m.Theta, m.Params.NumHiddenStates)
	tree, err := cliquetree.Build(factors)
	if err != nil {
		return nil, fmt.Errorf("treecrf: %w", err)
	}
	tree.Calibrate()

	out := make([][]float64, len(x))
	for i := range x {
		c := tree.Covering([]int{i})
		if c < 0 {
			return nil, fmt.Errorf("treecrf: no clique covers variable %d", i)
		}
		marg := tree.Cliques[c].Belief.MarginalizeOnto([]int{i})
		marg.Normalize()
		out[i] = marg.Values
	}
	return out, nil
}

// Predict labels x by posterior decoding: each position gets the state
// with the highest calibrated marginal.
func (m *Model) Predict(x []int) ([]int, error) {
	marginals, err := m.Marginals(x)
	if err != nil {
		return nil, err
	}
	y := make([]int, len(x))
	for i, dist := range marginals {
		best := 0
		for s, p := range dist {
			if p > dist[best] {
				best = s
			}
		}
		y[i] = best
	}
	return y, nil
}
