package model

import (
	"fmt"
)

// Graph is a directed weighted graph with insertion-ordered nodes and edges.
// It never holds self-loops or two edges for the same ordered pair.
type Graph struct {
	nodes     []*Node
	nodeIndex map[string]int
	edges     []Edge
	edgeIndex map[edgeKey]int
}

func NewGraph() *Graph {
	return &Graph{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[edgeKey]int),
	}
}

func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return fmt.Errorf("%w: node without id", ErrInvalidInput)
	}
	if _, ok := g.nodeIndex[n.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	node := n
	g.nodeIndex[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, &node)
	return nil
}

func (g *Graph) AddEdge(e Edge) error {
	if e.SourceID == e.TargetID {
		return fmt.Errorf("%w: %s", ErrSelfLoop, e.SourceID)
	}
	if _, ok := g.nodeIndex[e.SourceID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, e.SourceID)
	}
	if _, ok := g.nodeIndex[e.TargetID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, e.TargetID)
	}
	if e.Weight < 0 {
		return fmt.Errorf("%w: negative weight %f on %s->%s", ErrInvalidInput, e.Weight, e.SourceID, e.TargetID)
	}
	if _, ok := g.edgeIndex[e.key()]; ok {
		return fmt.Errorf("%w: %s->%s", ErrDuplicateEdge, e.SourceID, e.TargetID)
	}
	g.edgeIndex[e.key()] = len(g.edges)
	g.edges = append(g.edges, e)
	return nil
}

// Node returns the stored node; mutations through the pointer are visible.
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Index returns the insertion position of a node, used for stable ordering.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.nodeIndex[id]
	return i, ok
}

func (g *Graph) Nodes() []*Node {
	return g.nodes
}

func (g *Graph) Edges() []Edge {
	return g.edges
}

func (g *Graph) Edge(source, target string) (Edge, bool) {
	i, ok := g.edgeIndex[edgeKey{source: source, target: target}]
	if !ok {
		return Edge{}, false
	}
	return g.edges[i], true
}

func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.edgeIndex[edgeKey{source: source, target: target}]
	return ok
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Density is the directed density E / (N·(N-1)).
func (g *Graph) Density() float64 {
	n := float64(len(g.nodes))
	if n < 2 {
		return 0
	}
	return float64(len(g.edges)) / (n * (n - 1))
}

// Neighbors returns the undirected adjacency as node indices, in edge order.
func (g *Graph) Neighbors() [][]int {
	adj := make([][]int, len(g.nodes))
	for _, e := range g.edges {
		s, t := g.nodeIndex[e.SourceID], g.nodeIndex[e.TargetID]
		adj[s] = append(adj[s], t)
		adj[t] = append(adj[t], s)
	}
	return adj
}

// RemoveNodes deletes the given nodes and every incident edge. It returns the
// number of nodes actually removed.
func (g *Graph) RemoveNodes(ids map[string]bool) int {
	if len(ids) == 0 {
		return 0
	}
	nodes := g.nodes[:0:0]
	removed := 0
	for _, n := range g.nodes {
		if ids[n.ID] {
			removed++
			continue
		}
		nodes = append(nodes, n)
	}
	if removed == 0 {
		return 0
	}
	edges := g.edges[:0:0]
	for _, e := range g.edges {
		if ids[e.SourceID] || ids[e.TargetID] {
			continue
		}
		edges = append(edges, e)
	}
	g.nodes = nodes
	g.edges = edges
	g.reindex()
	return removed
}

func (g *Graph) reindex() {
	g.nodeIndex = make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		g.nodeIndex[n.ID] = i
	}
	g.edgeIndex = make(map[edgeKey]int, len(g.edges))
	for i, e := range g.edges {
		g.edgeIndex[e.key()] = i
	}
}

// Induced returns a copy restricted to ids, keeping this graph's ordering.
func (g *Graph) Induced(ids map[string]bool) *Graph {
	out := NewGraph()
	for _, n := range g.nodes {
		if ids[n.ID] {
			_ = out.AddNode(*n)
		}
	}
	for _, e := range g.edges {
		if ids[e.SourceID] && ids[e.TargetID] {
			_ = out.AddEdge(e)
		}
	}
	return out
}

func (g *Graph) Clone() *Graph {
	out := NewGraph()
	for _, n := range g.nodes {
		c := *n
		c.SourceReferences = append([]string(nil), n.SourceReferences...)
		if n.TopicRelevance != nil {
			v := *n.TopicRelevance
			c.TopicRelevance = &v
		}
		_ = out.AddNode(c)
	}
	for _, e := range g.edges {
		_ = out.AddEdge(e)
	}
	return out
}
