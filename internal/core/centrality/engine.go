package centrality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/community"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/logger"
)

const (
	pageRankPrecision = 1e7
	// pageRankSlack bounds how far the rank mass may drift from 1.
	pageRankSlack = 1e-3
)

// Engine computes PageRank, eigenvector, betweenness and closeness
// centrality and combines them into one importance score per node.
//
// Co-occurrence is symmetric and the stored edge direction is nominal, so
// every measure runs over the symmetric view: each edge contributes both
// directions with its weight.
type Engine struct {
	Config config.CentralityConfig
	Log    *logger.Logger
}

func NewEngine(cfg config.CentralityConfig, log *logger.Logger) *Engine {
	return &Engine{Config: cfg, Log: logger.OrNop(log)}
}

// Compute never fails: on outright failure every measure becomes degree
// centrality and the report says so.
func (e *Engine) Compute(g *model.Graph) (*model.CentralityScores, model.CentralityReport) {
	var report model.CentralityReport
	scores := model.NewCentralityScores()
	switch g.NodeCount() {
	case 0:
		return scores, report
	case 1:
		id := g.Nodes()[0].ID
		for _, name := range model.Measures {
			scores.Measures[name][id] = 1
		}
		e.combine(g, scores)
		return scores, report
	}

	err := e.computeAll(g, scores, &report)
	if err != nil {
		e.Log.Warn("centrality computation failed, using degree centrality",
			"nodes", g.NodeCount(),
			"edges", g.EdgeCount(),
			"error", err,
		)
		report.Fallback = true
		report.Err = err.Error()
		scores = model.NewCentralityScores()
		degree := DegreeCentrality(g)
		for _, name := range model.Measures {
			for id, v := range degree {
				scores.Measures[name][id] = v
			}
		}
	}

	e.combine(g, scores)
	return scores, report
}

func (e *Engine) computeAll(g *model.Graph, scores *model.CentralityScores, report *model.CentralityReport) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", model.ErrNotConverged, r)
		}
	}()

	sym := symmetricView(g)
	ids := g.Nodes()
	put := func(measure string, values map[int64]float64, scale float64) error {
		for i, n := range ids {
			v := values[int64(i)] * scale
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s produced %v for %s", model.ErrNotConverged, measure, v, n.ID)
			}
			scores.Measures[measure][n.ID] = v
		}
		return nil
	}

	// gonum seeds PageRank randomly; iterate past the configured tolerance
	// and quantize so equal nodes get equal ranks on every run.
	ranks := network.PageRankSparse(sym, e.Config.Damping, e.Config.PageRankTolerance*1e-3)
	mass := 0.0
	for id, v := range ranks {
		mass += v
		ranks[id] = math.Round(v*pageRankPrecision) / pageRankPrecision
	}
	if math.IsNaN(mass) || math.Abs(mass-1) > pageRankSlack {
		return fmt.Errorf("%w: pagerank mass is %v", model.ErrNotConverged, mass)
	}
	if err := put(model.MeasurePageRank, ranks, 1); err != nil {
		return err
	}

	eigen, err := Eigenvector(g, e.Config.EigenvectorMaxIter, e.Config.EigenvectorTolerance)
	if err != nil {
		e.Log.Warn("eigenvector centrality did not converge, using degree centrality",
			"nodes", g.NodeCount(),
			"error", err,
		)
		report.EigenvectorFallback = true
		eigen = DegreeCentrality(g)
	}
	for id, v := range eigen {
		scores.Measures[model.MeasureEigenvector][id] = v
	}

	// Shortest paths treat the co-occurrence weight as distance.
	paths := path.DijkstraAllPaths(sym)

	n := float64(g.NodeCount())
	betweennessScale := 0.0
	if n > 2 {
		betweennessScale = 1 / ((n - 1) * (n - 2))
	}
	if err := put(model.MeasureBetweenness, network.BetweennessWeighted(sym, paths), betweennessScale); err != nil {
		return err
	}

	if community.CountComponents(g) == 1 {
		// gonum returns 1/Σd; standard closeness is (n-1)/Σd.
		return put(model.MeasureCloseness, network.Closeness(sym, paths), n-1)
	}
	return put(model.MeasureCloseness, network.Harmonic(sym, paths), 1)
}

func (e *Engine) combine(g *model.Graph, scores *model.CentralityScores) {
	c := e.Config
	for _, n := range g.Nodes() {
		scores.Combined[n.ID] = c.PageRankWeight*scores.Score(model.MeasurePageRank, n.ID) +
			c.EigenvectorWeight*scores.Score(model.MeasureEigenvector, n.ID) +
			c.BetweennessWeight*scores.Score(model.MeasureBetweenness, n.ID) +
			c.ClosenessWeight*scores.Score(model.MeasureCloseness, n.ID)
	}
}

// symmetricView mirrors g into a gonum weighted directed graph whose node
// IDs are g's insertion indices.
func symmetricView(g *model.Graph) *simple.WeightedDirectedGraph {
	sym := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for i := range g.Nodes() {
		sym.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges() {
		s, _ := g.Index(e.SourceID)
		t, _ := g.Index(e.TargetID)
		w := e.Weight
		if prev, ok := sym.Weight(int64(s), int64(t)); ok && prev > w {
			w = prev
		}
		sym.SetWeightedEdge(sym.NewWeightedEdge(simple.Node(int64(s)), simple.Node(int64(t)), w))
		sym.SetWeightedEdge(sym.NewWeightedEdge(simple.Node(int64(t)), simple.Node(int64(s)), w))
	}
	return sym
}
