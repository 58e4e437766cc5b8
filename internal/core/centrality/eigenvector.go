package centrality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/agenthands/glyph/internal/core/model"
)

// Eigenvector runs weighted power iteration over the symmetric view of g.
// Each step adds the weighted neighbour sum to the current vector and
// renormalizes to unit length. The iteration has converged once the L1
// change is below n*tol.
func Eigenvector(g *model.Graph, maxIter int, tol float64) (map[string]float64, error) {
	nodes := g.Nodes()
	n := len(nodes)
	out := make(map[string]float64, n)
	if n == 0 {
		return out, nil
	}

	type arc struct {
		to int
		w  float64
	}
	adj := make([][]arc, n)
	for _, e := range g.Edges() {
		s, _ := g.Index(e.SourceID)
		t, _ := g.Index(e.TargetID)
		adj[s] = append(adj[s], arc{to: t, w: e.Weight})
		adj[t] = append(adj[t], arc{to: s, w: e.Weight})
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
	}
	next := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		copy(next, x)
		for u := range adj {
			for _, a := range adj[u] {
				next[a.to] += x[u] * a.w
			}
		}
		norm := floats.Norm(next, 2)
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			return nil, fmt.Errorf("%w: eigenvector norm %v", model.ErrNotConverged, norm)
		}
		floats.Scale(1/norm, next)

		diff := 0.0
		for i := range x {
			diff += math.Abs(next[i] - x[i])
		}
		x, next = next, x
		if diff < float64(n)*tol {
			for i, node := range nodes {
				out[node.ID] = x[i]
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: eigenvector after %d iterations", model.ErrNotConverged, maxIter)
}

// DegreeCentrality is the undirected degree over n-1. A lone node scores 1.
func DegreeCentrality(g *model.Graph) map[string]float64 {
	nodes := g.Nodes()
	out := make(map[string]float64, len(nodes))
	if len(nodes) == 1 {
		out[nodes[0].ID] = 1
		return out
	}
	for i, nbrs := range g.Neighbors() {
		seen := make(map[int]bool, len(nbrs))
		for _, j := range nbrs {
			seen[j] = true
		}
		out[nodes[i].ID] = float64(len(seen)) / float64(len(nodes)-1)
	}
	return out
}
