package subgraph

import (
	"sort"
)

// pair is one undirected working edge. weight is the co-occurrence weight,
// cost the reciprocal used by the spanning tree. source/target keep the
// direction of the first original edge seen for the pair.
type pair struct {
	source, target int
	weight         float64
	cost           float64
}

// disjointSet is a union-find over node indices with path halving and
// union by rank.
type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	d := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

func (d *disjointSet) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

// union merges the sets holding x and y and reports whether they were apart.
func (d *disjointSet) union(x, y int) bool {
	rx, ry := d.find(x), d.find(y)
	if rx == ry {
		return false
	}
	switch {
	case d.rank[rx] < d.rank[ry]:
		d.parent[rx] = ry
	case d.rank[rx] > d.rank[ry]:
		d.parent[ry] = rx
	default:
		d.parent[ry] = rx
		d.rank[rx]++
	}
	return true
}

// kruskal returns a minimum spanning forest over n nodes. Equal costs keep
// the order of pairs, so the forest is the same on every run.
func kruskal(n int, pairs []pair) []pair {
	sorted := make([]pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].cost < sorted[j].cost
	})

	set := newDisjointSet(n)
	forest := make([]pair, 0, n)
	for _, p := range sorted {
		if set.union(p.source, p.target) {
			forest = append(forest, p)
			if len(forest) == n-1 {
				break
			}
		}
	}
	return forest
}
