package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/core/summary"
	"github.com/agenthands/glyph/internal/logger"
)

const (
	maxRelated = 3
	// maxOrigins bounds how many concepts start a shortest-path search.
	maxOrigins = 50

	baseMethodology = "Graph centrality measures, minimal subgraph comparison and shortest-path proximity between concepts and entities."
)

// Analyzer compares the full graph with its minimal subgraph. It reports
// important nodes the subgraph dropped, thin connectivity, and concept-entity
// pairs that never co-occur yet sit a few hops apart.
type Analyzer struct {
	Config     config.AnalysisConfig
	Summarizer *summary.Summarizer
	Log        *logger.Logger
}

func NewAnalyzer(cfg config.AnalysisConfig, summarizer *summary.Summarizer, log *logger.Logger) *Analyzer {
	return &Analyzer{Config: cfg, Summarizer: summarizer, Log: logger.OrNop(log)}
}

// Analyze never fails; without a model the summary comes from a template.
func (a *Analyzer) Analyze(ctx context.Context, topic string, full, minimal *model.Graph, scores *model.CentralityScores) model.Analysis {
	gaps := a.KnowledgeGaps(topic, full, minimal, scores)
	insights := a.UncommonInsights(topic, full, scores)

	text, fromModel := a.summarize(ctx, topic, gaps, insights)
	methodology := baseMethodology + " Rule-based summary."
	if fromModel {
		methodology = baseMethodology + " Summary written by the configured language model."
	}
	return model.Analysis{
		KnowledgeGaps:    gaps,
		UncommonInsights: insights,
		Summary:          text,
		Recommendations:  recommendations(topic, gaps, insights),
		Methodology:      methodology,
		Confidence:       confidence(len(gaps) + len(insights)),
	}
}

// KnowledgeGaps lists high-PageRank nodes missing from minimal, strongest
// first, plus a connectivity gap when the full graph has more than
// ConnectivityRatio times the minimal subgraph's co-occurrence links.
func (a *Analyzer) KnowledgeGaps(topic string, full, minimal *model.Graph, scores *model.CentralityScores) []model.KnowledgeGap {
	gaps := []model.KnowledgeGap{}
	pagerank := func(n *model.Node) float64 { return scores.Score(model.MeasurePageRank, n.ID) }

	var missing []*model.Node
	for _, n := range full.Nodes() {
		if _, ok := minimal.Node(n.ID); ok {
			continue
		}
		if pagerank(n) > a.Config.GapPageRank {
			missing = append(missing, n)
		}
	}
	sort.SliceStable(missing, func(i, j int) bool { return pagerank(missing[i]) > pagerank(missing[j]) })
	if a.Config.MaxGaps > 0 && len(missing) > a.Config.MaxGaps {
		missing = missing[:a.Config.MaxGaps]
	}

	subject := subjectOf(topic)
	for _, n := range missing {
		pr := pagerank(n)
		gap := model.KnowledgeGap{
			Type:     model.GapConcept,
			Label:    n.Label,
			Severity: model.SeverityMedium,
			Description: fmt.Sprintf("%q ranks high in the full graph (PageRank %.3f) but is missing from the minimal subgraph.",
				n.Label, pr),
			SuggestedSources: []string{
				fmt.Sprintf("Academic research on %s in %s", n.Label, subject),
				fmt.Sprintf("Practical applications of %s", n.Label),
			},
			RelatedConcepts: related(full, minimal, scores, n.ID),
		}
		if n.Kind == model.KindEntity {
			gap.Type = model.GapEntity
		}
		if pr > a.Config.HighSeverityPageRank {
			gap.Severity = model.SeverityHigh
		}
		gaps = append(gaps, gap)
	}

	links := 0
	for _, e := range minimal.Edges() {
		if e.ConnectionType != model.InterComponent {
			links++
		}
	}
	if float64(full.EdgeCount()) > a.Config.ConnectivityRatio*float64(links) {
		gaps = append(gaps, model.KnowledgeGap{
			Type:     model.GapConnectivity,
			Severity: model.SeverityMedium,
			Description: fmt.Sprintf("The minimal subgraph keeps %d of the %d co-occurrence links in the full graph, so many relationships are left out.",
				links, full.EdgeCount()),
			SuggestedSources: []string{
				fmt.Sprintf("Comprehensive relationship mapping for %s", subject),
				fmt.Sprintf("Systems thinking guides for %s", subject),
			},
			RelatedConcepts: topLabels(minimal.Nodes(), scores, maxRelated),
		})
	}
	return gaps
}

type proximity struct {
	concept, entity int
	distance        int
	weight          float64
}

// UncommonInsights pairs concepts with entities that are between 2 and
// MaxHops hops apart. Nearer pairs come first, then more important ones.
func (a *Analyzer) UncommonInsights(topic string, full *model.Graph, scores *model.CentralityScores) []model.ProximityInsight {
	insights := []model.ProximityInsight{}
	nodes := full.Nodes()

	var concepts, entities []int
	for i, n := range nodes {
		if n.Kind == model.KindEntity {
			entities = append(entities, i)
		} else {
			concepts = append(concepts, i)
		}
	}
	if len(concepts) == 0 || len(entities) == 0 {
		return insights
	}
	byImportance := func(idx []int) {
		sort.SliceStable(idx, func(i, j int) bool {
			return scores.Importance(nodes[idx[i]].ID) > scores.Importance(nodes[idx[j]].ID)
		})
	}
	byImportance(concepts)
	byImportance(entities)
	if len(concepts) > maxOrigins {
		concepts = concepts[:maxOrigins]
	}

	ug := simple.NewUndirectedGraph()
	for i := range nodes {
		ug.AddNode(simple.Node(int64(i)))
	}
	for _, e := range full.Edges() {
		s, _ := full.Index(e.SourceID)
		t, _ := full.Index(e.TargetID)
		ug.SetEdge(ug.NewEdge(simple.Node(int64(s)), simple.Node(int64(t))))
	}

	var found []proximity
	for _, c := range concepts {
		shortest := path.DijkstraFrom(simple.Node(int64(c)), ug)
		for _, en := range entities {
			d := shortest.WeightTo(int64(en))
			if math.IsInf(d, 1) || d < 2 || d > float64(a.Config.MaxHops) {
				continue
			}
			found = append(found, proximity{
				concept:  c,
				entity:   en,
				distance: int(d),
				weight:   scores.Importance(nodes[c].ID) + scores.Importance(nodes[en].ID),
			})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].distance != found[j].distance {
			return found[i].distance < found[j].distance
		}
		return found[i].weight > found[j].weight
	})
	if a.Config.MaxInsights > 0 && len(found) > a.Config.MaxInsights {
		found = found[:a.Config.MaxInsights]
	}

	subject := subjectOf(topic)
	for _, p := range found {
		c, en := nodes[p.concept], nodes[p.entity]
		insights = append(insights, model.ProximityInsight{
			ConceptA:     c.Label,
			ConceptB:     en.Label,
			Relationship: "unexpected proximity",
			Distance:     p.distance,
			Strength:     math.Max(0.5, 1-float64(p.distance)/10),
			Explanation: fmt.Sprintf("%s and %s never appear together in a source, yet they are only %d steps apart in the graph for %s.",
				c.Label, en.Label, p.distance, subject),
		})
	}
	return insights
}

func (a *Analyzer) summarize(ctx context.Context, topic string, gaps []model.KnowledgeGap, insights []model.ProximityInsight) (string, bool) {
	template := fmt.Sprintf("Analysis of the knowledge graph for %s found %d knowledge gaps and %d uncommon conceptual relationships.",
		subjectOf(topic), len(gaps), len(insights))
	if a.Summarizer == nil || a.Summarizer.LLM == nil {
		return template, false
	}

	findings := make([]string, 0, len(gaps)+len(insights))
	for _, g := range gaps {
		findings = append(findings, fmt.Sprintf("%s (%s): %s", g.Type, g.Severity, g.Description))
	}
	for _, in := range insights {
		findings = append(findings, fmt.Sprintf("%s is %d steps from %s", in.ConceptA, in.Distance, in.ConceptB))
	}
	text, err := a.Summarizer.SummarizeAnalysis(ctx, topic, findings)
	if err != nil {
		a.Log.Warn("analysis summary failed, using template", "error", err)
		return template, false
	}
	return text, true
}

// related names the most important neighbours of id that the minimal
// subgraph kept, falling back to its most important nodes.
func related(full, minimal *model.Graph, scores *model.CentralityScores, id string) []string {
	idx, ok := full.Index(id)
	if !ok {
		return topLabels(minimal.Nodes(), scores, maxRelated)
	}
	nodes := full.Nodes()
	seen := make(map[int]bool)
	var kept []*model.Node
	for _, j := range full.Neighbors()[idx] {
		if seen[j] {
			continue
		}
		seen[j] = true
		if _, ok := minimal.Node(nodes[j].ID); ok {
			kept = append(kept, nodes[j])
		}
	}
	if len(kept) == 0 {
		return topLabels(minimal.Nodes(), scores, maxRelated)
	}
	return topLabels(kept, scores, maxRelated)
}

func topLabels(nodes []*model.Node, scores *model.CentralityScores, limit int) []string {
	sorted := append([]*model.Node(nil), nodes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scores.Importance(sorted[i].ID) > scores.Importance(sorted[j].ID)
	})
	out := []string{}
	for _, n := range sorted {
		if len(out) == limit {
			break
		}
		out = append(out, n.Label)
	}
	return out
}

func recommendations(topic string, gaps []model.KnowledgeGap, insights []model.ProximityInsight) []string {
	subject := subjectOf(topic)
	var recs []string
	if len(gaps) > 0 {
		recs = append(recs, fmt.Sprintf("Address the %d identified knowledge gaps to strengthen your understanding of %s", len(gaps), subject))
	}
	if len(insights) > 0 {
		recs = append(recs, "Explore the uncommon conceptual relationships for connections the sources do not state outright")
	}
	return append(recs, fmt.Sprintf("Expand the knowledge graph for %s with sources that target the identified gaps", subject))
}

// confidence grows with the number of findings and never exceeds 0.95.
func confidence(findings int) float64 {
	c := 0.6
	switch {
	case findings >= 5:
		c += 0.2
	case findings >= 3:
		c += 0.1
	}
	return math.Min(c, 0.95)
}

func subjectOf(topic string) string {
	if t := strings.TrimSpace(topic); t != "" {
		return t
	}
	return "this topic"
}
