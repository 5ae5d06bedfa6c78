// Package treecrf computes exact negative log-likelihoods and
// gradients for conditional random fields with tied parameters, using
// clique-tree calibration for inference.
//
// The core entry point evaluates one labeled instance:
//
//	nll, grad, _ := treecrf.Evaluate(x, y, theta, params)
//
// Feature generation, factor assembly, junction-tree calibration and
// gradient assembly are rebuilt from scratch on every call, so the
// routine is a pure function of its arguments and safe to invoke
// concurrently across independent instances.
package treecrf

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/happyhackingspace/treecrf/cliquetree"
	"github.com/happyhackingspace/treecrf/factor"
)

// ModelParams fixes the dimensions and regularization of a model.
type ModelParams struct {
	NumHiddenStates   int     `json:"num_hidden_states"`
	NumObservedStates int     `json:"num_observed_states"`
	Lambda            float64 `json:"lambda"` // L2 regularization strength
}

// Evaluate computes the regularized negative log-likelihood of the
// instance (x, y) under theta and its gradient with respect to theta.
//
//	NLL     = logZ − Σ_{active features} θ[paramIdx] + (λ/2)·Σθ²
//	grad[p] = E_θ[count of p] − empirical count of p + λ·θ[p]
//
// x holds one observed state per position, y one hidden state per
// position. theta must have length FeatureSetSize(p).
func Evaluate(x, y []int, theta []float64, p ModelParams) (float64, []float64, error) {
	if err := validate(x, y, theta, p); err != nil {
		return 0, nil, err
	}
	fs := BuildFeatureSet(x, p)
	nll, grad, err := evaluateInstance(fs, y, theta, p.NumHiddenStates)
	if err != nil {
		return 0, nil, err
	}
	nll += 0.5 * p.Lambda * floats.Dot(theta, theta)
	for i := range grad {
		grad[i] += p.Lambda * theta[i]
	}
	return nll, grad, nil
}

// evaluateInstance computes the unregularized NLL and gradient for a
// prebuilt feature set. The trainer uses it directly so that the
// regularizer is added once per objective, not once per instance.
func evaluateInstance(fs *FeatureSet, y []int, theta []float64, numHiddenStates int) (float64, []float64, error) {
	factors := AssembleFactors(fs, theta, numHiddenStates)
	tree, err := cliquetree.Build(factors)
	if err != nil {
		return 0, nil, fmt.Errorf("treecrf: %w", err)
	}
	logZ := tree.Calibrate()

	// Empirical counts and the log-potential of the true assignment.
	empirical := make([]float64, fs.NumParams)
	goldScore := 0.0
	for _, f := range fs.Features {
		if f.Matches(y) {
			empirical[f.ParamIdx]++
			goldScore += theta[f.ParamIdx]
		}
	}
	nll := logZ - goldScore

	// Model expectations off the calibrated marginals. Features share
	// few distinct scopes, so the covering-clique search and the
	// marginalization both run once per scope, not once per feature.
	marginals := make(map[string]*factor.Factor)
	expected := make([]float64, fs.NumParams)
	for i := range fs.Features {
		f := &fs.Features[i]
		key := scopeKey(f.Scope)
		m, ok := marginals[key]
		if !ok {
			c := tree.Covering(f.Scope)
			if c < 0 {
				return 0, nil, fmt.Errorf("treecrf: no clique covers feature scope %v", f.Scope)
			}
			m = tree.Cliques[c].Belief.MarginalizeOnto(f.Scope)
			m.Normalize()
			marginals[key] = m
		}
		expected[f.ParamIdx] += m.At(f.Assignment)
	}

	grad := make([]float64, fs.NumParams)
	for i := range grad {
		grad[i] = expected[i] - empirical[i]
	}
	return nll, grad, nil
}

func validate(x, y []int, theta []float64, p ModelParams) error {
	if len(x) != len(y) {
		return fmt.Errorf("treecrf: instance lengths %d/%d", len(x), len(y))
	}
	if err := validateObservations(x, p); err != nil {
		return err
	}
	for i, v := range y {
		if v < 0 || v >= p.NumHiddenStates {
			return fmt.Errorf("treecrf: hidden state %d at position %d out of range", v, i)
		}
	}
	if want := FeatureSetSize(p); len(theta) != want {
		return fmt.Errorf("treecrf: theta has %d parameters, model needs %d", len(theta), want)
	}
	return nil
}

// validateObservations checks the model dimensions and the observed
// state range. Prediction entry points take x without labels, so this
// part stands alone.
func validateObservations(x []int, p ModelParams) error {
	if p.NumHiddenStates < 1 || p.NumObservedStates < 1 {
		return fmt.Errorf("treecrf: invalid model dimensions %d/%d", p.NumHiddenStates, p.NumObservedStates)
	}
	if len(x) == 0 {
		return fmt.Errorf("treecrf: empty instance")
	}
	for i, v := range x {
		if v < 0 || v >= p.NumObservedStates {
			return fmt.Errorf("treecrf: observed state %d at position %d out of range", v, i)
		}
	}
	return nil
}

func scopeKey(scope []int) string {
	return fmt.Sprint(scope)
}
