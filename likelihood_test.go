package treecrf

import (
	"math"
	"testing"
)

// TestSingleFeatureScenario checks the closed-form solution for the
// smallest nontrivial model: one variable with 2 states and a single
// indicator on state 0.
//
//	logZ = log(1 + exp(θ))
//	NLL  = log(1 + exp(θ)) − θ
//	grad = exp(θ)/(1 + exp(θ)) − 1
func TestSingleFeatureScenario(t *testing.T) {
	fs := &FeatureSet{
		NumParams: 1,
		Features: []Feature{
			{Scope: []int{0}, Assignment: []int{0}, ParamIdx: 0},
		},
	}
	y := []int{0}

	for _, theta := range []float64{-2, -0.3, 0, 0.7, 3} {
		nll, grad, err := evaluateInstance(fs, y, []float64{theta}, 2)
		if err != nil {
			t.Fatal(err)
		}
		wantNLL := math.Log(1+math.Exp(theta)) - theta
		if math.Abs(nll-wantNLL) > 1e-12 {
			t.Errorf("theta=%v: NLL = %v, want %v", theta, nll, wantNLL)
		}
		wantGrad := math.Exp(theta)/(1+math.Exp(theta)) - 1
		if math.Abs(grad[0]-wantGrad) > 1e-12 {
			t.Errorf("theta=%v: grad = %v, want %v", theta, grad[0], wantGrad)
		}
	}
}

// TestParameterTying ties one parameter across two variables and
// verifies the gradient sums both features' terms.
func TestParameterTying(t *testing.T) {
	// Two independent binary variables, each with an indicator on
	// state 0 sharing parameter 0.
	fs := &FeatureSet{
		NumParams: 1,
		Features: []Feature{
			{Scope: []int{0}, Assignment: []int{0}, ParamIdx: 0},
			{Scope: []int{1}, Assignment: []int{0}, ParamIdx: 0},
		},
	}
	theta := []float64{0.8}
	y := []int{0, 1} // first feature matches, second does not

	nll, grad, err := evaluateInstance(fs, y, theta, 2)
	if err != nil {
		t.Fatal(err)
	}

	// The variables are independent, P(state 0) = σ(θ) for each.
	sigma := math.Exp(theta[0]) / (1 + math.Exp(theta[0]))
	wantGrad := (sigma - 1) + (sigma - 0)
	if math.Abs(grad[0]-wantGrad) > 1e-12 {
		t.Errorf("grad = %v, want %v", grad[0], wantGrad)
	}
	wantNLL := 2*math.Log(1+math.Exp(theta[0])) - theta[0]
	if math.Abs(nll-wantNLL) > 1e-12 {
		t.Errorf("NLL = %v, want %v", nll, wantNLL)
	}
}

// TestParameterTyingRegularizedOnce checks that a tied parameter picks
// up a single λθ term, not one per feature.
func TestParameterTyingRegularizedOnce(t *testing.T) {
	p := ModelParams{NumHiddenStates: 2, NumObservedStates: 1, Lambda: 0.4}
	// With one observed state, the conditioned singleton block ties its
	// parameters across every position.
	x := []int{0, 0, 0}
	y := []int{0, 1, 0}

	theta := make([]float64, FeatureSetSize(p))
	theta[0] = 1.5

	_, grad, err := Evaluate(x, y, theta, p)
	if err != nil {
		t.Fatal(err)
	}
	_, unreg, err := Evaluate(x, y, theta, ModelParams{NumHiddenStates: 2, NumObservedStates: 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs((grad[0]-unreg[0])-p.Lambda*theta[0]) > 1e-12 {
		t.Errorf("tied parameter got %v regularization, want a single %v",
			grad[0]-unreg[0], p.Lambda*theta[0])
	}
}

// TestGradientMarginalsNormalized exercises the gradient path on a
// model where every expectation must come from a normalized marginal:
// expectations over all states of one variable sum to 1.
func TestGradientMarginalsNormalized(t *testing.T) {
	p := ModelParams{NumHiddenStates: 3, NumObservedStates: 2}
	x := []int{0, 1}
	y := []int{1, 2}
	theta := make([]float64, FeatureSetSize(p))
	for i := range theta {
		theta[i] = 0.1 * float64(i%5)
	}

	fs := BuildFeatureSet(x, p)
	_, grad, err := evaluateInstance(fs, y, theta, p.NumHiddenStates)
	if err != nil {
		t.Fatal(err)
	}

	// The unconditioned singleton block has one feature per (position,
	// state); its expectations per position sum to 1 and its empirical
	// counts per position sum to 1, so the block's gradient sums to 0.
	h, o := p.NumHiddenStates, p.NumObservedStates
	sum := 0.0
	for s := 0; s < h; s++ {
		sum += grad[h*o+s]
	}
	if math.Abs(sum) > 1e-10 {
		t.Errorf("unconditioned singleton gradients sum to %v, want 0", sum)
	}
}
