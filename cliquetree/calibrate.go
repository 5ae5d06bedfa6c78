package cliquetree

import (
	"math"

	"github.com/happyhackingspace/treecrf/factor"
)

// Calibrate runs a two-pass sum-product sweep and returns the log
// partition function. Afterwards every clique's Belief is its
// normalized marginal, and cliques sharing variables agree on the
// shared marginals.
//
// Messages are normalized as they are produced and the normalizers are
// accumulated in log space, so logZ stays finite for table masses far
// beyond float64 range.
func (t *Tree) Calibrate() float64 {
	n := len(t.Cliques)
	order, parent := t.rootedOrder(0)

	type edge struct{ from, to int }
	msgs := make(map[edge]*factor.Factor, 2*(n-1))
	logZ := 0.0

	// Upward pass, leaves first.
	for k := n - 1; k >= 1; k-- {
		i := order[k]
		p := parent[i]
		f := t.Cliques[i].Potential
		for _, nb := range t.Adj[i] {
			if nb != p {
				f = factor.Product(f, msgs[edge{nb, i}])
			}
		}
		m := f.MarginalizeOnto(intersect(t.Cliques[i].Scope, t.Cliques[p].Scope))
		logZ += math.Log(m.Normalize())
		msgs[edge{i, p}] = m
	}

	// Root mass closes the partition function.
	root := order[0]
	rb := t.Cliques[root].Potential.Clone()
	for _, nb := range t.Adj[root] {
		rb = factor.Product(rb, msgs[edge{nb, root}])
	}
	logZ += math.Log(rb.Normalize())
	t.Cliques[root].Belief = rb

	// Downward pass, root first.
	for _, i := range order {
		for _, c := range t.Adj[i] {
			if c == parent[i] {
				continue
			}
			f := t.Cliques[i].Potential
			for _, nb := range t.Adj[i] {
				if nb != c {
					f = factor.Product(f, msgs[edge{nb, i}])
				}
			}
			m := f.MarginalizeOnto(intersect(t.Cliques[i].Scope, t.Cliques[c].Scope))
			m.Normalize()
			msgs[edge{i, c}] = m
		}
	}

	// Beliefs: local potential times every incoming message.
	for i, cl := range t.Cliques {
		if i == root {
			continue
		}
		b := cl.Potential
		for _, nb := range t.Adj[i] {
			b = factor.Product(b, msgs[edge{nb, i}])
		}
		b.Normalize()
		cl.Belief = b
	}
	return logZ
}

// rootedOrder returns a top-down visit order from the given root along
// with each clique's parent (the root's parent is -1).
func (t *Tree) rootedOrder(root int) (order []int, parent []int) {
	n := len(t.Cliques)
	parent = make([]int, n)
	for i := range parent {
		parent[i] = -1
	}
	order = make([]int, 0, n)
	queue := []int{root}
	seen := make([]bool, n)
	seen[root] = true
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, nb := range t.Adj[i] {
			if !seen[nb] {
				seen[nb] = true
				parent[nb] = i
				queue = append(queue, nb)
			}
		}
	}
	return order, parent
}
