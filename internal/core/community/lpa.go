package community

import (
	"sort"

	"github.com/agenthands/glyph/internal/core/model"
)

// LabelPropagationDetector groups nodes with weighted label propagation.
// The pipeline uses the result to split the minimal subgraph into learning
// modules.
type LabelPropagationDetector struct {
	MaxIterations int
	// MinSize drops smaller clusters from Detect; Modules keeps every node.
	MinSize int
}

func NewLabelPropagationDetector(maxIterations int) *LabelPropagationDetector {
	if maxIterations <= 0 {
		maxIterations = 20
	}
	return &LabelPropagationDetector{
		MaxIterations: maxIterations,
		MinSize:       2,
	}
}

func (d *LabelPropagationDetector) Detect(g *model.Graph) ([][]*model.Node, error) {
	if g.NodeCount() == 0 {
		return nil, nil
	}
	nodes := g.Nodes()
	var communities [][]*model.Node
	for _, cluster := range d.clusters(g) {
		if len(cluster) < d.MinSize {
			continue
		}
		community := make([]*model.Node, 0, len(cluster))
		for _, i := range cluster {
			community = append(community, nodes[i])
		}
		communities = append(communities, community)
	}
	return communities, nil
}

// Modules assigns every node a module number. Modules are numbered by the
// position of their earliest member, so numbering follows graph order.
func (d *LabelPropagationDetector) Modules(g *model.Graph) (map[string]int, int) {
	nodes := g.Nodes()
	modules := make(map[string]int, len(nodes))
	clusters := d.clusters(g)
	for m, cluster := range clusters {
		for _, i := range cluster {
			modules[nodes[i].ID] = m
		}
	}
	return modules, len(clusters)
}

func (d *LabelPropagationDetector) clusters(g *model.Graph) [][]int {
	n := g.NodeCount()
	if n == 0 {
		return nil
	}

	// Undirected adjacency weighted by co-occurrence.
	adj := make([]map[int]float64, n)
	for i := range adj {
		adj[i] = make(map[int]float64)
	}
	for _, e := range g.Edges() {
		s, _ := g.Index(e.SourceID)
		t, _ := g.Index(e.TargetID)
		w := e.Weight
		if w <= 0 {
			w = 1
		}
		adj[s][t] += w
		adj[t][s] += w
	}

	// Each node starts with its own label (its index).
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changeCount := 0

		for u := 0; u < n; u++ {
			if len(adj[u]) == 0 {
				continue
			}

			labelWeights := make(map[int]float64)
			maxWeight := 0.0
			for v, w := range adj[u] {
				label := labels[v]
				labelWeights[label] += w
				if labelWeights[label] > maxWeight {
					maxWeight = labelWeights[label]
				}
			}

			var candidates []int
			for label, w := range labelWeights {
				if w == maxWeight {
					candidates = append(candidates, label)
				}
			}

			// Keep the current label when it is among the best, otherwise take
			// the largest candidate so runs are reproducible.
			best := -1
			for _, c := range candidates {
				if c == labels[u] {
					best = c
					break
				}
			}
			if best < 0 {
				sort.Ints(candidates)
				best = candidates[len(candidates)-1]
			}

			if labels[u] != best {
				labels[u] = best
				changeCount++
			}
		}

		if changeCount == 0 {
			break
		}
	}

	order := make(map[int]int)
	var clusters [][]int
	for i, label := range labels {
		idx, ok := order[label]
		if !ok {
			idx = len(clusters)
			order[label] = idx
			clusters = append(clusters, nil)
		}
		clusters[idx] = append(clusters[idx], i)
	}
	return clusters
}
