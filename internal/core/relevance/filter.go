package relevance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/llm"
	"github.com/agenthands/glyph/internal/logger"
)

// Filter drops nodes weakly related to the topic from large graphs. Scores
// come from embedding similarity when an embedder is available, otherwise
// from the lexical score.
type Filter struct {
	Config   config.RelevanceConfig
	Embedder llm.EmbedderClient
	Workers  int
	Log      *logger.Logger
}

func NewFilter(cfg config.RelevanceConfig, embedder llm.EmbedderClient, workers int, log *logger.Logger) *Filter {
	return &Filter{
		Config:   cfg,
		Embedder: embedder,
		Workers:  workers,
		Log:      logger.OrNop(log),
	}
}

// Applies reports whether a graph of n nodes is filtered for topic.
func (f *Filter) Applies(topic string, n int) bool {
	return strings.TrimSpace(topic) != "" && n > f.Config.MaxNodesBeforeFiltering
}

// Apply filters g in place. Failures are logged and leave g untouched.
func (f *Filter) Apply(ctx context.Context, g *model.Graph, topic string) model.FilterReport {
	report := model.FilterReport{Method: model.MethodNone}
	if !f.Applies(topic, g.NodeCount()) {
		return report
	}

	scores, method, err := f.score(ctx, g, topic)
	if err != nil {
		f.Log.Error("relevance filtering failed, keeping unfiltered graph",
			"topic", topic,
			"nodes", g.NodeCount(),
			"edges", g.EdgeCount(),
			"error", err,
		)
		report.Err = err.Error()
		return report
	}

	keep, floorApplied := f.survivors(scores)
	nodes := g.Nodes()
	remove := make(map[string]bool, len(nodes)-len(keep))
	for i, n := range nodes {
		if keep[i] {
			score := scores[i]
			n.TopicRelevance = &score
		} else {
			remove[n.ID] = true
		}
	}
	removed := g.RemoveNodes(remove)

	f.Log.Info("relevance filter applied",
		"topic", topic,
		"method", method,
		"scored", len(scores),
		"removed", removed,
		"floor_applied", floorApplied,
	)
	report.Applied = true
	report.Method = method
	report.Scored = len(scores)
	report.Removed = removed
	report.FloorApplied = floorApplied
	return report
}

func (f *Filter) score(ctx context.Context, g *model.Graph, topic string) (scores []float64, method model.RelevanceMethod, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", model.ErrFiltering, r)
		}
	}()

	if f.Config.EnableSemanticFiltering && f.Embedder != nil {
		scores, err := f.semanticScores(ctx, g, topic)
		if err == nil {
			return scores, model.MethodSemantic, nil
		}
		f.Log.Warn("semantic scoring unavailable, using lexical scores",
			"nodes", g.NodeCount(),
			"error", err,
		)
	}

	scores = lexicalScores(g, topic)
	for i, s := range scores {
		if math.IsNaN(s) {
			return nil, "", fmt.Errorf("%w: lexical score for %s is NaN", model.ErrFiltering, g.Nodes()[i].ID)
		}
	}
	return scores, model.MethodLexical, nil
}

func (f *Filter) semanticScores(ctx context.Context, g *model.Graph, topic string) ([]float64, error) {
	topicVec, err := embedTexts(ctx, f.Embedder, []string{topic}, 1, 1)
	if err != nil {
		return nil, fmt.Errorf("embed topic: %w", err)
	}

	texts := make([]string, g.NodeCount())
	for i, n := range g.Nodes() {
		texts[i] = n.Label + " " + string(n.Kind)
	}
	vectors, err := embedTexts(ctx, f.Embedder, texts, f.Config.SimilarityBatchSize, f.Workers)
	if err != nil {
		return nil, fmt.Errorf("embed nodes: %w", err)
	}

	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		if scores[i], err = cosine(topicVec[0], v); err != nil {
			return nil, fmt.Errorf("node %s: %w", g.Nodes()[i].ID, err)
		}
	}
	return scores, nil
}

// survivors returns the node positions to keep and whether the retention
// floor overrode the threshold.
func (f *Filter) survivors(scores []float64) (map[int]bool, bool) {
	n := len(scores)
	floor := max(f.Config.MinRetained, int(f.Config.MinRetainedFraction*float64(n)))
	floor = min(floor, n)

	keep := make(map[int]bool, n)
	for i, s := range scores {
		if s >= f.Config.RelevanceThreshold {
			keep[i] = true
		}
	}
	if len(keep) >= floor {
		return keep, false
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	keep = make(map[int]bool, floor)
	for _, i := range order[:floor] {
		keep[i] = true
	}
	return keep, true
}
