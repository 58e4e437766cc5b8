package core

import "github.com/agenthands/glyph/internal/core/model"

func emptyView() model.GraphView {
	return model.GraphView{Nodes: []model.NodeView{}, Edges: []model.Edge{}}
}

func nodeView(n *model.Node, scores *model.CentralityScores, inMinimal bool) model.NodeView {
	return model.NodeView{
		ID:    n.ID,
		Label: n.Label,
		Kind:  n.Kind,
		Properties: model.NodeProperties{
			Frequency:      n.Frequency,
			Importance:     n.Importance,
			PageRank:       scores.Score(model.MeasurePageRank, n.ID),
			Eigenvector:    scores.Score(model.MeasureEigenvector, n.ID),
			Betweenness:    scores.Score(model.MeasureBetweenness, n.ID),
			Closeness:      scores.Score(model.MeasureCloseness, n.ID),
			TopicRelevance: n.TopicRelevance,
		},
		InMinimalSubgraph: inMinimal,
	}
}

// graphView renders the filtered graph. minimal may be nil.
func graphView(g *model.Graph, scores *model.CentralityScores, minimal *model.Graph) model.GraphView {
	view := model.GraphView{
		Nodes: make([]model.NodeView, 0, g.NodeCount()),
		Edges: append(make([]model.Edge, 0, g.EdgeCount()), g.Edges()...),
	}
	for _, n := range g.Nodes() {
		in := false
		if minimal != nil {
			_, in = minimal.Node(n.ID)
		}
		view.Nodes = append(view.Nodes, nodeView(n, scores, in))
	}
	return view
}

func minimalView(minimal *model.Graph, scores *model.CentralityScores) model.GraphView {
	view := model.GraphView{
		Nodes: make([]model.NodeView, 0, minimal.NodeCount()),
		Edges: append(make([]model.Edge, 0, minimal.EdgeCount()), minimal.Edges()...),
	}
	for _, n := range minimal.Nodes() {
		view.Nodes = append(view.Nodes, nodeView(n, scores, true))
	}
	return view
}
