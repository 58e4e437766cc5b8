package community

import (
	"github.com/agenthands/glyph/internal/core/model"
)

// CommunityDetector groups graph nodes. Singleton groups may be dropped.
type CommunityDetector interface {
	Detect(g *model.Graph) ([][]*model.Node, error)
}

// ComponentDetector reports weakly connected components as node lists.
type ComponentDetector struct {
	// MinSize drops smaller components; 0 and 1 keep everything.
	MinSize int
}

// NewComponentDetector skips singletons, like the label propagation detector.
func NewComponentDetector() *ComponentDetector {
	return &ComponentDetector{MinSize: 2}
}

func (d *ComponentDetector) Detect(g *model.Graph) ([][]*model.Node, error) {
	nodes := g.Nodes()
	var communities [][]*model.Node
	for _, comp := range Components(g) {
		if len(comp) < d.MinSize {
			continue
		}
		community := make([]*model.Node, 0, len(comp))
		for _, i := range comp {
			community = append(community, nodes[i])
		}
		communities = append(communities, community)
	}
	return communities, nil
}

// Components returns the weakly connected components of g as node indices.
// Components are ordered by their first node and members by discovery, so
// the result is deterministic for a given insertion order.
func Components(g *model.Graph) [][]int {
	adj := g.Neighbors()
	visited := make([]bool, g.NodeCount())
	var components [][]int

	for start := range adj {
		if visited[start] {
			continue
		}
		component := []int{}
		dfs(start, adj, visited, &component)
		components = append(components, component)
	}
	return components
}

// CountComponents reports how many weakly connected components g has.
func CountComponents(g *model.Graph) int {
	return len(Components(g))
}

// dfs walks with an explicit stack; graphs reach a million nodes.
func dfs(u int, adj [][]int, visited []bool, component *[]int) {
	stack := []int{u}
	visited[u] = true
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		*component = append(*component, v)
		for _, w := range adj[v] {
			if !visited[w] {
				visited[w] = true
				stack = append(stack, w)
			}
		}
	}
}
