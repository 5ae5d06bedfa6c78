package treecrf

import (
	"math"
	"testing"
)

func TestTrainToyDataset(t *testing.T) {
	// Observation 0 always carries hidden state 0, observation 1 hidden
	// state 1. A fitted model should reproduce that on training data.
	p := ModelParams{NumHiddenStates: 2, NumObservedStates: 2, Lambda: 0.01}
	instances := []Instance{
		{X: []int{0, 1, 0}, Y: []int{0, 1, 0}},
		{X: []int{1, 1, 0}, Y: []int{1, 1, 0}},
		{X: []int{0, 0, 1}, Y: []int{0, 0, 1}},
	}

	config := DefaultTrainerConfig()
	config.MaxIterations = 50

	model, err := Train(instances, p, config)
	if err != nil {
		t.Fatal(err)
	}

	// NLL under the fitted parameters beats the uniform model.
	zero := make([]float64, FeatureSetSize(p))
	var fitted, uniform float64
	for _, inst := range instances {
		n, _, err := Evaluate(inst.X, inst.Y, model.Theta, p)
		if err != nil {
			t.Fatal(err)
		}
		fitted += n
		n, _, err = Evaluate(inst.X, inst.Y, zero, p)
		if err != nil {
			t.Fatal(err)
		}
		uniform += n
	}
	if fitted >= uniform {
		t.Errorf("fitted NLL %v not below uniform NLL %v", fitted, uniform)
	}

	for i, inst := range instances {
		pred, err := model.Predict(inst.X)
		if err != nil {
			t.Fatal(err)
		}
		for j := range pred {
			if pred[j] != inst.Y[j] {
				t.Errorf("instance %d position %d: predicted %d, want %d", i, j, pred[j], inst.Y[j])
			}
		}
	}
}

func TestTrainGradientVanishes(t *testing.T) {
	// At convergence the summed gradient should be near zero.
	p := ModelParams{NumHiddenStates: 2, NumObservedStates: 2, Lambda: 0.1}
	instances := []Instance{
		{X: []int{0, 1}, Y: []int{0, 1}},
		{X: []int{1, 0}, Y: []int{1, 0}},
	}

	config := DefaultTrainerConfig()
	config.MaxIterations = 200
	config.Epsilon = 1e-8

	model, err := Train(instances, p, config)
	if err != nil {
		t.Fatal(err)
	}

	grad := make([]float64, FeatureSetSize(p))
	for _, inst := range instances {
		fs := BuildFeatureSet(inst.X, p)
		_, g, err := evaluateInstance(fs, inst.Y, model.Theta, p.NumHiddenStates)
		if err != nil {
			t.Fatal(err)
		}
		for i := range grad {
			grad[i] += g[i]
		}
	}
	for i := range grad {
		grad[i] += p.Lambda * model.Theta[i]
		if math.Abs(grad[i]) > 1e-3 {
			t.Errorf("grad[%d] = %v at the optimum, want ~0", i, grad[i])
		}
	}
}

func TestTrainWithProgress(t *testing.T) {
	// The progress path must not disturb the optimization result.
	p := ModelParams{NumHiddenStates: 2, NumObservedStates: 2, Lambda: 0.1}
	instances := []Instance{{X: []int{0, 1}, Y: []int{0, 1}}}

	config := DefaultTrainerConfig()
	config.MaxIterations = 3

	plain, err := Train(instances, p, config)
	if err != nil {
		t.Fatal(err)
	}
	config.Progress = true
	withBar, err := Train(instances, p, config)
	if err != nil {
		t.Fatal(err)
	}
	for i := range plain.Theta {
		if plain.Theta[i] != withBar.Theta[i] {
			t.Errorf("theta[%d] = %v with progress, %v without", i, withBar.Theta[i], plain.Theta[i])
		}
	}
}

func TestTrainRejectsBadInstance(t *testing.T) {
	p := ModelParams{NumHiddenStates: 2, NumObservedStates: 2}
	instances := []Instance{{X: []int{0, 5}, Y: []int{0, 1}}}
	if _, err := Train(instances, p, DefaultTrainerConfig()); err == nil {
		t.Error("expected an error for an out-of-range observation")
	}
}
