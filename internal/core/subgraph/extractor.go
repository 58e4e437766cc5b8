package subgraph

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/community"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/logger"
)

const (
	StrategyStar  = "star"
	StrategyChain = "chain"
)

// Extractor reduces a graph to a connectivity-preserving spanning structure.
// Edge costs are 1/(w+ε), so the minimum spanning tree keeps the strongest
// co-occurrences. Disconnected components are bridged through one connector
// node each.
type Extractor struct {
	Config config.SubgraphConfig
	Log    *logger.Logger
}

func NewExtractor(cfg config.SubgraphConfig, log *logger.Logger) *Extractor {
	return &Extractor{Config: cfg, Log: logger.OrNop(log)}
}

// Extract never fails. When the spanning tree cannot be built it returns
// the induced subgraph of the top nodes by combined importance.
func (x *Extractor) Extract(g *model.Graph, scores *model.CentralityScores) (*model.Graph, model.SubgraphReport) {
	report := model.SubgraphReport{Strategy: x.strategy()}

	if g.NodeCount() == 0 {
		report.WeaklyConnected = true
		report.Acyclic = true
		report.Reason = "empty graph"
		return model.NewGraph(), report
	}
	if g.EdgeCount() == 0 {
		return x.fallback(g, scores, report, "graph has no edges")
	}

	result, err := x.spanningTree(g, &report)
	if err != nil {
		x.Log.Warn("minimal subgraph construction failed, using top nodes",
			"nodes", g.NodeCount(),
			"edges", g.EdgeCount(),
			"error", err,
		)
		return x.fallback(g, scores, model.SubgraphReport{Strategy: report.Strategy}, err.Error())
	}
	return result, report
}

func (x *Extractor) strategy() string {
	if x.Config.ConnectorStrategy == StrategyChain {
		return StrategyChain
	}
	return StrategyStar
}

func (x *Extractor) spanningTree(g *model.Graph, report *model.SubgraphReport) (result *model.Graph, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", model.ErrSpanningTree, r)
		}
	}()

	pairs, err := x.workingPairs(g)
	if err != nil {
		return nil, err
	}

	components := community.Components(g)
	forest := kruskal(g.NodeCount(), pairs)
	if want := g.NodeCount() - len(components); len(forest) != want {
		return nil, fmt.Errorf("%w: forest has %d edges, want %d", model.ErrSpanningTree, len(forest), want)
	}

	nodes := g.Nodes()
	result = model.NewGraph()
	for _, n := range nodes {
		if err := result.AddNode(*n); err != nil {
			return nil, err
		}
	}

	for _, p := range forest {
		s, t := nodes[p.source].ID, nodes[p.target].ID
		e, ok := g.Edge(s, t)
		if !ok {
			if e, ok = g.Edge(t, s); !ok {
				return nil, fmt.Errorf("%w: no original edge between %s and %s", model.ErrSpanningTree, s, t)
			}
		}
		e.ConnectionType = model.IntraComponent
		if err := result.AddEdge(e); err != nil {
			return nil, err
		}
	}

	links := x.connect(components, forest)
	for _, l := range links {
		a, b := nodes[l[0]].ID, nodes[l[1]].ID
		for _, e := range []model.Edge{
			{SourceID: a, TargetID: b, Weight: x.Config.ConnectorWeight, ConnectionType: model.InterComponent},
			{SourceID: b, TargetID: a, Weight: x.Config.ConnectorWeight, ConnectionType: model.InterComponent},
		} {
			if err := result.AddEdge(e); err != nil {
				return nil, err
			}
		}
	}

	report.Components = len(components)
	report.Connectors = len(links)
	report.TreeEdges = len(forest)
	report.WeaklyConnected = community.CountComponents(result) == 1
	report.Acyclic = Acyclic(result)
	return result, nil
}

// workingPairs folds the directed edges into one undirected pair per node
// couple. A couple stored in both directions keeps its stronger weight and
// the direction seen first.
func (x *Extractor) workingPairs(g *model.Graph) ([]pair, error) {
	eps := x.Config.Epsilon
	seen := make(map[[2]int]int)
	var pairs []pair
	for _, e := range g.Edges() {
		s, _ := g.Index(e.SourceID)
		t, _ := g.Index(e.TargetID)
		key := [2]int{min(s, t), max(s, t)}
		cost := 1 / (e.Weight + eps)
		if math.IsNaN(cost) || math.IsInf(cost, 0) {
			return nil, fmt.Errorf("%w: weight %v on %s->%s has no finite cost", model.ErrSpanningTree, e.Weight, e.SourceID, e.TargetID)
		}
		if i, ok := seen[key]; ok {
			if e.Weight > pairs[i].weight {
				pairs[i].weight = e.Weight
				pairs[i].cost = cost
			}
			continue
		}
		seen[key] = len(pairs)
		pairs = append(pairs, pair{source: s, target: t, weight: e.Weight, cost: cost})
	}
	return pairs, nil
}

type connector struct {
	node       int
	centrality float64
	singleton  bool
}

// connect picks one connector per component and returns the synthetic links
// between them. Only components with edges compete for the hub; singletons
// join last, as leaves of the star or the tail of the chain.
func (x *Extractor) connect(components [][]int, forest []pair) [][2]int {
	if len(components) < 2 {
		return nil
	}

	degree := make(map[int]int)
	for _, p := range forest {
		degree[p.source]++
		degree[p.target]++
	}

	connectors := make([]connector, 0, len(components))
	for _, comp := range components {
		if len(comp) == 1 {
			connectors = append(connectors, connector{node: comp[0], singleton: true})
			continue
		}
		best := connector{node: -1}
		for _, v := range comp {
			c := float64(degree[v]) / float64(len(comp)-1)
			if best.node < 0 || c > best.centrality || (c == best.centrality && v < best.node) {
				best = connector{node: v, centrality: c}
			}
		}
		connectors = append(connectors, best)
	}
	sort.SliceStable(connectors, func(i, j int) bool {
		if connectors[i].singleton != connectors[j].singleton {
			return !connectors[i].singleton
		}
		return connectors[i].centrality > connectors[j].centrality
	})

	links := make([][2]int, 0, len(connectors)-1)
	for i := 1; i < len(connectors); i++ {
		hub := connectors[0].node
		if x.strategy() == StrategyChain {
			hub = connectors[i-1].node
		}
		links = append(links, [2]int{hub, connectors[i].node})
	}
	return links
}

// fallback keeps the top min(max, max(min, fraction·n)) nodes by combined
// importance and their induced edges.
func (x *Extractor) fallback(g *model.Graph, scores *model.CentralityScores, report model.SubgraphReport, reason string) (*model.Graph, model.SubgraphReport) {
	n := g.NodeCount()
	limit := int(x.Config.FallbackFraction * float64(n))
	limit = max(limit, x.Config.FallbackMin)
	limit = min(limit, x.Config.FallbackMax, n)

	nodes := make([]*model.Node, n)
	copy(nodes, g.Nodes())
	sort.SliceStable(nodes, func(i, j int) bool {
		return scores.Importance(nodes[i].ID) > scores.Importance(nodes[j].ID)
	})

	keep := make(map[string]bool, limit)
	for _, node := range nodes[:limit] {
		keep[node.ID] = true
	}
	result := g.Induced(keep)

	report.FallbackUsed = true
	report.Reason = reason
	report.Components = community.CountComponents(g)
	report.WeaklyConnected = community.CountComponents(result) == 1
	report.Acyclic = Acyclic(result)
	return result, report
}

// Acyclic reports whether the directed graph has no cycle. Synthetic
// connectors run both ways, so any bridged result is cyclic.
func Acyclic(g *model.Graph) bool {
	dg := simple.NewDirectedGraph()
	for i := range g.Nodes() {
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges() {
		s, _ := g.Index(e.SourceID)
		t, _ := g.Index(e.TargetID)
		dg.SetEdge(dg.NewEdge(simple.Node(int64(s)), simple.Node(int64(t))))
	}
	_, err := topo.Sort(dg)
	return err == nil
}
