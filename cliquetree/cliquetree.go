// Package cliquetree builds junction trees from factors and calibrates
// them by sum-product message passing, yielding per-clique marginals
// and the log partition function.
package cliquetree

import (
	"fmt"
	"slices"

	"github.com/happyhackingspace/treecrf/factor"
)

// Clique is a node of the junction tree.
type Clique struct {
	Scope     []int
	Card      []int
	Potential *factor.Factor // product of the factors assigned to this clique
	Belief    *factor.Factor // calibrated marginal over Scope, set by Calibrate
}

// Tree is a junction tree over the variables of the input factors.
type Tree struct {
	Cliques []*Clique
	Adj     [][]int // Adj[i] lists the neighbors of clique i
}

// Build constructs a junction tree covering every factor's scope.
//
// The variables are eliminated greedily by minimum neighbor count on
// the moral graph; the maximal elimination cliques are connected by a
// maximum spanning tree on sepset sizes, which preserves the running
// intersection property. Each factor is multiplied into the first
// clique covering its scope.
func Build(factors []*factor.Factor) (*Tree, error) {
	if len(factors) == 0 {
		return nil, fmt.Errorf("cliquetree: no factors")
	}

	card := make(map[int]int)
	adj := make(map[int]map[int]bool)
	for _, f := range factors {
		for i, v := range f.Scope {
			card[v] = f.Card[i]
			if adj[v] == nil {
				adj[v] = make(map[int]bool)
			}
			for _, u := range f.Scope {
				if u != v {
					adj[v][u] = true
				}
			}
		}
	}

	scopes := eliminationCliques(adj)
	scopes = pruneSubsets(scopes)

	cliques := make([]*Clique, len(scopes))
	for i, s := range scopes {
		c := make([]int, len(s))
		for j, v := range s {
			c[j] = card[v]
		}
		cliques[i] = &Clique{
			Scope:     s,
			Card:      c,
			Potential: factor.Ones(s, c),
		}
	}

	t := &Tree{
		Cliques: cliques,
		Adj:     spanningTree(scopes),
	}

	for _, f := range factors {
		i := t.Covering(f.Scope)
		if i < 0 {
			return nil, fmt.Errorf("cliquetree: no clique covers scope %v", f.Scope)
		}
		cliques[i].Potential = factor.Product(cliques[i].Potential, f)
	}
	return t, nil
}

// Covering returns the index of a clique whose scope contains every
// variable in scope, or -1 if none exists.
func (t *Tree) Covering(scope []int) int {
	for i, c := range t.Cliques {
		covered := true
		for _, v := range scope {
			if !slices.Contains(c.Scope, v) {
				covered = false
				break
			}
		}
		if covered {
			return i
		}
	}
	return -1
}

// eliminationCliques runs greedy min-neighbors variable elimination on
// the moral graph and returns one clique scope per eliminated variable.
func eliminationCliques(adj map[int]map[int]bool) [][]int {
	remaining := make([]int, 0, len(adj))
	for v := range adj {
		remaining = append(remaining, v)
	}
	slices.Sort(remaining) // deterministic tie-breaking

	var scopes [][]int
	for len(remaining) > 0 {
		best, bestDeg := -1, -1
		for _, v := range remaining {
			deg := len(adj[v])
			if best < 0 || deg < bestDeg {
				best, bestDeg = v, deg
			}
		}

		scope := []int{best}
		for u := range adj[best] {
			scope = append(scope, u)
		}
		slices.Sort(scope)
		scopes = append(scopes, scope)

		// Connect the neighbors of the eliminated variable.
		for u := range adj[best] {
			for w := range adj[best] {
				if u != w {
					adj[u][w] = true
				}
			}
			delete(adj[u], best)
		}
		delete(adj, best)
		remaining = slices.DeleteFunc(remaining, func(v int) bool { return v == best })
	}
	return scopes
}

// pruneSubsets keeps only the maximal elimination cliques. A scope is
// dropped when a later clique contains it, or when an earlier clique
// strictly contains it; equal scopes keep their last occurrence.
func pruneSubsets(scopes [][]int) [][]int {
	var out [][]int
	for i, s := range scopes {
		maximal := true
		for j, other := range scopes {
			if j == i {
				continue
			}
			if isSubset(s, other) && (j > i || len(s) < len(other)) {
				maximal = false
				break
			}
		}
		if maximal {
			out = append(out, s)
		}
	}
	return out
}

func isSubset(a, b []int) bool {
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}

func intersect(a, b []int) []int {
	var out []int
	for _, v := range a {
		if slices.Contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}

// spanningTree connects the cliques by Prim's algorithm maximizing
// sepset sizes. Disconnected components end up joined through empty
// sepsets, whose messages are scalars.
func spanningTree(scopes [][]int) [][]int {
	n := len(scopes)
	adj := make([][]int, n)
	if n <= 1 {
		return adj
	}

	inTree := make([]bool, n)
	inTree[0] = true
	for k := 0; k < n-1; k++ {
		bestI, bestJ, bestW := -1, -1, -1
		for i := 0; i < n; i++ {
			if !inTree[i] {
				continue
			}
			for j := 0; j < n; j++ {
				if inTree[j] {
					continue
				}
				if w := len(intersect(scopes[i], scopes[j])); w > bestW {
					bestI, bestJ, bestW = i, j, w
				}
			}
		}
		inTree[bestJ] = true
		adj[bestI] = append(adj[bestI], bestJ)
		adj[bestJ] = append(adj[bestJ], bestI)
	}
	return adj
}
