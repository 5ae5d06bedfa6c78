package treecrf

import (
	"math"

	"github.com/happyhackingspace/treecrf/factor"
)

// Feature is a binary indicator over the hidden variables in Scope,
// active exactly when they take Assignment. Its weight is
// theta[ParamIdx]; several features may share a ParamIdx, tying their
// parameter.
type Feature struct {
	Scope      []int
	Assignment []int
	ParamIdx   int
}

// Matches reports whether y restricted to the feature's scope equals
// its assignment.
func (f *Feature) Matches(y []int) bool {
	for i, v := range f.Scope {
		if y[v] != f.Assignment[i] {
			return false
		}
	}
	return true
}

// FeatureSet is the complete indicator-feature list of one instance.
type FeatureSet struct {
	NumParams int
	Features  []Feature
}

// FeatureSetSize returns the parameter count of the chain model:
// conditioned singletons, unconditioned singletons, transition pairs.
func FeatureSetSize(p ModelParams) int {
	h, o := p.NumHiddenStates, p.NumObservedStates
	return h*o + h + h*h
}

// BuildFeatureSet generates the indicator features of a chain instance
// with observations x. Three parameter blocks, each block tied across
// positions:
//
//	θ[x[i]·H + s]        hidden state s at a position observing x[i]
//	θ[H·O + s]           hidden state s at any position
//	θ[H·O + H + s·H + t] hidden states (s, t) at any adjacent pair
func BuildFeatureSet(x []int, p ModelParams) *FeatureSet {
	h, o := p.NumHiddenStates, p.NumObservedStates
	n := len(x)

	fs := &FeatureSet{NumParams: h*o + h + h*h}
	fs.Features = make([]Feature, 0, 2*n*h+(n-1)*h*h)

	for i := 0; i < n; i++ {
		for s := 0; s < h; s++ {
			fs.Features = append(fs.Features, Feature{
				Scope:      []int{i},
				Assignment: []int{s},
				ParamIdx:   x[i]*h + s,
			})
		}
	}
	for i := 0; i < n; i++ {
		for s := 0; s < h; s++ {
			fs.Features = append(fs.Features, Feature{
				Scope:      []int{i},
				Assignment: []int{s},
				ParamIdx:   h*o + s,
			})
		}
	}
	for i := 0; i < n-1; i++ {
		for s := 0; s < h; s++ {
			for t := 0; t < h; t++ {
				fs.Features = append(fs.Features, Feature{
					Scope:      []int{i, i + 1},
					Assignment: []int{s, t},
					ParamIdx:   h*o + h + s*h + t,
				})
			}
		}
	}
	return fs
}

// AssembleFactors turns every feature into a log-linear factor over the
// feature's scope: an all-ones table whose entry at the feature's
// assignment is exp(theta[paramIdx]). Factors are returned in feature
// order and never merged; the clique tree multiplies them together.
func AssembleFactors(fs *FeatureSet, theta []float64, numHiddenStates int) []*factor.Factor {
	card := func(n int) []int {
		c := make([]int, n)
		for i := range c {
			c[i] = numHiddenStates
		}
		return c
	}

	factors := make([]*factor.Factor, len(fs.Features))
	for i := range fs.Features {
		ft := &fs.Features[i]
		f := factor.Ones(ft.Scope, card(len(ft.Scope)))
		f.Set(ft.Assignment, math.Exp(theta[ft.ParamIdx]))
		factors[i] = f
	}
	return factors
}
