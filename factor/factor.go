// Package factor provides dense factors over discrete variables.
//
// A factor maps every joint assignment of its scope to a non-negative
// value. Tables are linearized in mixed radix with the first scope
// variable varying fastest; the same convention is shared by factor
// products, marginalization and clique-tree calibration.
package factor

import (
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Factor is a table over the joint assignments of Scope.
type Factor struct {
	Scope  []int     // variable indices, strictly ascending
	Card   []int     // cardinality of each scope variable
	Values []float64 // len = product of Card
}

// New creates a zero-valued factor over the given scope.
func New(scope, card []int) *Factor {
	size := 1
	for _, c := range card {
		size *= c
	}
	return &Factor{
		Scope:  slices.Clone(scope),
		Card:   slices.Clone(card),
		Values: make([]float64, size),
	}
}

// Ones creates a factor with every entry set to 1.
func Ones(scope, card []int) *Factor {
	f := New(scope, card)
	for i := range f.Values {
		f.Values[i] = 1
	}
	return f
}

// Clone returns a deep copy of the factor.
func (f *Factor) Clone() *Factor {
	return &Factor{
		Scope:  slices.Clone(f.Scope),
		Card:   slices.Clone(f.Card),
		Values: slices.Clone(f.Values),
	}
}

// AssignmentToIndex linearizes an assignment, first variable fastest.
func AssignmentToIndex(assignment, card []int) int {
	idx, stride := 0, 1
	for i := range assignment {
		idx += assignment[i] * stride
		stride *= card[i]
	}
	return idx
}

// IndexToAssignment inverts AssignmentToIndex.
func IndexToAssignment(idx int, card []int) []int {
	assignment := make([]int, len(card))
	for i, c := range card {
		assignment[i] = idx % c
		idx /= c
	}
	return assignment
}

// At returns the value at the given assignment of the factor's scope.
func (f *Factor) At(assignment []int) float64 {
	return f.Values[AssignmentToIndex(assignment, f.Card)]
}

// Set writes the value at the given assignment of the factor's scope.
func (f *Factor) Set(assignment []int, v float64) {
	f.Values[AssignmentToIndex(assignment, f.Card)] = v
}

// Sum returns the total mass of the table.
func (f *Factor) Sum() float64 {
	return floats.Sum(f.Values)
}

// Normalize scales the table so it sums to 1 and returns the previous
// total. A zero-mass factor is left unchanged.
func (f *Factor) Normalize() float64 {
	s := floats.Sum(f.Values)
	if s > 0 {
		floats.Scale(1/s, f.Values)
	}
	return s
}

// Product multiplies two factors over the union of their scopes.
func Product(a, b *Factor) *Factor {
	scope, card := unionScope(a, b)
	out := New(scope, card)

	aStride := strides(a.Scope, scope, card)
	bStride := strides(b.Scope, scope, card)

	assignment := make([]int, len(scope))
	for i := range out.Values {
		out.Values[i] = a.Values[dot(assignment, aStride)] * b.Values[dot(assignment, bStride)]
		next(assignment, card)
	}
	return out
}

// Marginalize sums out the given variables and returns the factor over
// the remaining scope. Variables not in the scope are ignored.
func (f *Factor) Marginalize(drop []int) *Factor {
	var scope, card []int
	for i, v := range f.Scope {
		if !slices.Contains(drop, v) {
			scope = append(scope, v)
			card = append(card, f.Card[i])
		}
	}
	out := New(scope, card)

	stride := strides(scope, f.Scope, f.Card)
	assignment := make([]int, len(f.Scope))
	for i := range f.Values {
		out.Values[dot(assignment, stride)] += f.Values[i]
		next(assignment, f.Card)
	}
	return out
}

// MarginalizeOnto sums out everything except keep, which must be a
// subset of the factor's scope.
func (f *Factor) MarginalizeOnto(keep []int) *Factor {
	var drop []int
	for _, v := range f.Scope {
		if !slices.Contains(keep, v) {
			drop = append(drop, v)
		}
	}
	return f.Marginalize(drop)
}

// unionScope merges two scopes, keeping ascending order and per-variable
// cardinalities.
func unionScope(a, b *Factor) ([]int, []int) {
	var scope, card []int
	i, j := 0, 0
	for i < len(a.Scope) || j < len(b.Scope) {
		switch {
		case j >= len(b.Scope) || (i < len(a.Scope) && a.Scope[i] < b.Scope[j]):
			scope = append(scope, a.Scope[i])
			card = append(card, a.Card[i])
			i++
		case i >= len(a.Scope) || b.Scope[j] < a.Scope[i]:
			scope = append(scope, b.Scope[j])
			card = append(card, b.Card[j])
			j++
		default: // shared variable
			scope = append(scope, a.Scope[i])
			card = append(card, a.Card[i])
			i++
			j++
		}
	}
	return scope, card
}

// strides maps positions of the full scope to index strides of the
// sub-scope's table: an assignment of full projects to the sub table
// index via a dot product. Positions outside sub get stride 0.
func strides(sub, full []int, fullCard []int) []int {
	out := make([]int, len(full))
	stride := 1
	for _, v := range sub {
		p := slices.Index(full, v)
		out[p] = stride
		stride *= fullCard[p]
	}
	return out
}

func dot(assignment, stride []int) int {
	idx := 0
	for i := range assignment {
		idx += assignment[i] * stride[i]
	}
	return idx
}

// next advances a mixed-radix assignment in place, first digit fastest.
func next(assignment, card []int) {
	for i := range assignment {
		assignment[i]++
		if assignment[i] < card[i] {
			return
		}
		assignment[i] = 0
	}
}
