package treecrf

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/cheggaaa/pb/v3"
	"gonum.org/v1/gonum/floats"
)

// Instance is one labeled training example: observed states x and gold
// hidden states y, same length.
type Instance struct {
	X []int `json:"x"`
	Y []int `json:"y"`
}

// TrainerConfig holds training hyperparameters.
type TrainerConfig struct {
	MaxIterations int
	Epsilon       float64 // stop when the max gradient entry falls below this
	Progress      bool    // render a per-iteration progress bar
}

// DefaultTrainerConfig returns the default training config.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MaxIterations: 100,
		Epsilon:       1e-5,
	}
}

// Train fits a model to the instances by L-BFGS, minimizing the summed
// per-instance NLL plus a single (λ/2)·‖θ‖² term.
func Train(instances []Instance, p ModelParams, config TrainerConfig) (*Model, error) {
	zero := make([]float64, FeatureSetSize(p))
	for i := range instances {
		if err := validate(instances[i].X, instances[i].Y, zero, p); err != nil {
			return nil, fmt.Errorf("instance %d: %w", i, err)
		}
	}

	// Feature sets do not depend on theta, so build them once.
	sets := make([]*FeatureSet, len(instances))
	for i := range instances {
		sets[i] = BuildFeatureSet(instances[i].X, p)
	}

	numParams := FeatureSetSize(p)
	w := make([]float64, numParams)

	// progress is false during line-search backtracking, which can
	// evaluate the objective many times per iteration.
	objective := func(theta []float64, progress bool) (float64, []float64, error) {
		var bar *pb.ProgressBar
		if progress && config.Progress {
			bar = pb.StartNew(len(instances))
		}
		nll := 0.0
		grad := make([]float64, numParams)
		for i := range instances {
			n, g, err := evaluateInstance(sets[i], instances[i].Y, theta, p.NumHiddenStates)
			if err != nil {
				return 0, nil, err
			}
			nll += n
			floats.Add(grad, g)
			if bar != nil {
				bar.Add(1)
			}
		}
		if bar != nil {
			bar.Finish()
		}
		nll += 0.5 * p.Lambda * floats.Dot(theta, theta)
		floats.AddScaled(grad, p.Lambda, theta)
		return nll, grad, nil
	}

	lb := newLBFGS(numParams, 10)
	nll, grad, err := objective(w, true)
	if err != nil {
		return nil, err
	}

	for iter := 0; iter < config.MaxIterations; iter++ {
		slog.Debug("training iteration", "iteration", iter+1, "nll", nll)

		dir := lb.computeDirection(grad)
		step := lineSearch(w, dir, nll, grad, func(wNew []float64) float64 {
			obj, _, err := objective(wNew, false)
			if err != nil {
				return math.Inf(1)
			}
			return obj
		})
		if step == 0 {
			slog.Warn("line search failed, stopping")
			break
		}

		wNew := make([]float64, numParams)
		floats.AddScaledTo(wNew, w, step, dir)

		newNLL, newGrad, err := objective(wNew, true)
		if err != nil {
			return nil, err
		}

		s := make([]float64, numParams)
		floats.SubTo(s, wNew, w)
		yv := make([]float64, numParams)
		floats.SubTo(yv, newGrad, grad)
		lb.update(s, yv)

		w, nll, grad = wNew, newNLL, newGrad

		maxGrad := 0.0
		for _, g := range grad {
			if math.Abs(g) > maxGrad {
				maxGrad = math.Abs(g)
			}
		}
		if maxGrad < config.Epsilon {
			slog.Debug("converged", "iteration", iter+1, "max_gradient", maxGrad)
			break
		}
	}

	return &Model{Params: p, Theta: w}, nil
}

// lbfgs implements the L-BFGS two-loop recursion.
type lbfgs struct {
	n    int // number of variables
	m    int // memory size
	s    [][]float64
	y    [][]float64
	rho  []float64
	k    int
	size int
}

func newLBFGS(n, m int) *lbfgs {
	return &lbfgs{
		n:   n,
		m:   m,
		s:   make([][]float64, m),
		y:   make([][]float64, m),
		rho: make([]float64, m),
	}
}

func (l *lbfgs) update(s, y []float64) {
	sy := floats.Dot(s, y)
	if sy <= 0 {
		return
	}
	idx := l.k % l.m
	l.s[idx] = make([]float64, l.n)
	l.y[idx] = make([]float64, l.n)
	copy(l.s[idx], s)
	copy(l.y[idx], y)
	l.rho[idx] = 1.0 / sy
	l.k++
	if l.size < l.m {
		l.size++
	}
}

func (l *lbfgs) computeDirection(grad []float64) []float64 {
	q := make([]float64, l.n)
	copy(q, grad)

	if l.size == 0 {
		// Simple gradient descent direction
		floats.Scale(-1, q)
		return q
	}

	alpha := make([]float64, l.size)

	// First loop
	for i := l.size - 1; i >= 0; i-- {
		idx := (l.k - 1 - (l.size - 1 - i)) % l.m
		if idx < 0 {
			idx += l.m
		}
		alpha[i] = l.rho[idx] * floats.Dot(l.s[idx], q)
		floats.AddScaled(q, -alpha[i], l.y[idx])
	}

	// Scale by H_0 = (s_k^T y_k) / (y_k^T y_k)
	latestIdx := (l.k - 1) % l.m
	if latestIdx < 0 {
		latestIdx += l.m
	}
	yy := floats.Dot(l.y[latestIdx], l.y[latestIdx])
	if yy > 0 {
		floats.Scale(floats.Dot(l.s[latestIdx], l.y[latestIdx])/yy, q)
	}

	// Second loop
	for i := 0; i < l.size; i++ {
		idx := (l.k - l.size + i) % l.m
		if idx < 0 {
			idx += l.m
		}
		beta := l.rho[idx] * floats.Dot(l.y[idx], q)
		floats.AddScaled(q, alpha[i]-beta, l.s[idx])
	}

	// Negate for descent direction
	floats.Scale(-1, q)
	return q
}

// lineSearch performs a backtracking Armijo line search.
func lineSearch(w, dir []float64, fVal float64, grad []float64, objFunc func([]float64) float64) float64 {
	dirDeriv := floats.Dot(dir, grad)
	if dirDeriv >= 0 {
		return 0
	}

	step := 1.0
	c := 1e-4 // Armijo constant
	wNew := make([]float64, len(w))

	for attempt := 0; attempt < 20; attempt++ {
		floats.AddScaledTo(wNew, w, step, dir)
		fNew := objFunc(wNew)
		if fNew <= fVal+c*step*dirDeriv {
			return step
		}
		step *= 0.5
	}
	return step // return last tried step even if not sufficient decrease
}
