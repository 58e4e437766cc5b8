package builder

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/logger"
)

// Builder turns extracted nodes and their source co-occurrence into a graph.
type Builder struct {
	Config config.GraphConfig
	Log    *logger.Logger
}

func NewBuilder(cfg config.GraphConfig, log *logger.Logger) *Builder {
	return &Builder{Config: cfg, Log: logger.OrNop(log)}
}

// Build never fails hard: empty or malformed input yields an empty (or
// partial) graph together with an input error describing what was skipped.
func (b *Builder) Build(extracted []model.ExtractedNode, sources []model.Source) (*model.Graph, error) {
	g := model.NewGraph()
	if len(extracted) == 0 || len(sources) == 0 {
		return g, fmt.Errorf("%w: %d nodes, %d sources", model.ErrEmptyInput, len(extracted), len(sources))
	}

	nodes, skipped := b.selectNodes(extracted)
	for _, n := range nodes {
		n.Importance = math.Min(float64(n.Frequency)/float64(len(sources)), 1.0)
		if err := g.AddNode(n); err != nil {
			skipped++
		}
	}

	counts := b.cooccurrence(g, sources)
	ordered := g.Nodes()
	added := 0
	for _, pair := range counts.pairs() {
		if pair.count < b.Config.MinCooccurrence {
			continue
		}
		err := g.AddEdge(model.Edge{
			SourceID:       ordered[pair.a].ID,
			TargetID:       ordered[pair.b].ID,
			Weight:         float64(pair.count),
			ConnectionType: model.IntraComponent,
		})
		if err != nil {
			return g, fmt.Errorf("failed to add co-occurrence edge: %w", err)
		}
		added++
	}

	b.Log.Debug("graph built",
		"nodes", g.NodeCount(),
		"edges", added,
		"sources", len(sources),
		"skipped_nodes", skipped,
	)

	if skipped > 0 {
		return g, fmt.Errorf("%w: skipped %d malformed nodes", model.ErrInvalidInput, skipped)
	}
	return g, nil
}

// selectNodes validates, merges duplicate labels and keeps the most frequent
// concepts and entities.
func (b *Builder) selectNodes(extracted []model.ExtractedNode) ([]model.Node, int) {
	skipped := 0
	byID := make(map[string]int)
	var concepts, entities []model.Node

	for _, x := range extracted {
		n, err := model.NewNode(x.Label, x.Kind, x.Frequency, x.SourceReferences)
		if err != nil {
			skipped++
			continue
		}
		list := &concepts
		if n.Kind == model.KindEntity {
			list = &entities
		}
		if i, ok := byID[n.ID]; ok {
			prev := &(*list)[i]
			prev.Frequency += n.Frequency
			prev.SourceReferences = model.MergeReferences(prev.SourceReferences, n.SourceReferences, model.MaxSourceReferences)
			continue
		}
		byID[n.ID] = len(*list)
		*list = append(*list, n)
	}

	byFrequency := func(list []model.Node) {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Frequency > list[j].Frequency
		})
	}
	byFrequency(concepts)
	byFrequency(entities)

	if b.Config.MaxConcepts > 0 && len(concepts) > b.Config.MaxConcepts {
		concepts = concepts[:b.Config.MaxConcepts]
	}
	if b.Config.MaxEntities > 0 && len(entities) > b.Config.MaxEntities {
		entities = entities[:b.Config.MaxEntities]
	}
	return append(concepts, entities...), skipped
}

type pairCounts map[[2]int]int

type pairCount struct {
	a, b  int
	count int
}

// pairs returns counted pairs ordered by (a, b) so edge insertion is deterministic.
func (p pairCounts) pairs() []pairCount {
	out := make([]pairCount, 0, len(p))
	for k, c := range p {
		out = append(out, pairCount{a: k[0], b: k[1], count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}

// cooccurrence indexes which nodes appear in each source, then counts every
// unordered pair of those nodes once per source.
func (b *Builder) cooccurrence(g *model.Graph, sources []model.Source) pairCounts {
	labels := make([]string, g.NodeCount())
	for i, n := range g.Nodes() {
		labels[i] = strings.ToLower(n.Label)
	}

	counts := make(pairCounts)
	appearing := make([]int, 0, len(labels))
	for _, s := range sources {
		text := s.SearchText()
		appearing = appearing[:0]
		for i, label := range labels {
			if strings.Contains(text, label) {
				appearing = append(appearing, i)
			}
		}
		for i := 0; i < len(appearing); i++ {
			for j := i + 1; j < len(appearing); j++ {
				counts[[2]int{appearing[i], appearing[j]}]++
			}
		}
	}
	return counts
}
