package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/driver"
)

var (
	ErrNoDriver    = errors.New("no graph driver configured")
	ErrRunNotFound = errors.New("run not found")
)

func (e *Engine) BuildIndices(ctx context.Context) error {
	if e.Driver == nil {
		return ErrNoDriver
	}
	return e.Driver.BuildIndices(ctx)
}

// Save writes a run, both graph views and its concept list. Nodes are saved
// before edges so edge MATCHes find them.
func (e *Engine) Save(ctx context.Context, result *model.Result) error {
	if e.Driver == nil {
		return ErrNoDriver
	}
	md := result.Metadata
	runID := md.RunID

	_, err := e.Driver.ExecuteQuery(ctx, driver.SaveRunQuery, map[string]any{
		"run_id":               runID,
		"topic":                md.Topic,
		"created_at":           md.LastAnalysis.Format(time.RFC3339),
		"total_nodes":          md.TotalNodes,
		"total_edges":          md.TotalEdges,
		"minimal_nodes":        md.MinimalNodes,
		"minimal_edges":        md.MinimalEdges,
		"connected_components": md.ConnectedComponents,
		"graph_density":        md.GraphDensity,
		"has_embeddings":       md.HasEmbeddings,
		"modules":              md.Modules,
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", runID, err)
	}

	byLabel := map[string][]map[string]any{}
	for _, n := range result.Graph.Nodes {
		label := "Concept"
		if n.Kind == model.KindEntity {
			label = "Entity"
		}
		byLabel[label] = append(byLabel[label], nodeParams(n))
	}
	for _, label := range []string{"Concept", "Entity"} {
		if len(byLabel[label]) == 0 {
			continue
		}
		_, err := e.Driver.ExecuteQuery(ctx, driver.SaveNodesQuery(label), map[string]any{
			"run_id": runID,
			"nodes":  byLabel[label],
		})
		if err != nil {
			return fmt.Errorf("failed to save %s nodes: %w", label, err)
		}
	}

	for _, set := range []struct {
		edges   []model.Edge
		minimal bool
	}{
		{result.Graph.Edges, false},
		{result.MinimalSubgraph.Edges, true},
	} {
		if len(set.edges) == 0 {
			continue
		}
		_, err := e.Driver.ExecuteQuery(ctx, driver.SaveEdgesQuery, map[string]any{
			"run_id": runID,
			"edges":  edgeParams(set.edges, set.minimal),
		})
		if err != nil {
			return fmt.Errorf("failed to save edges (minimal=%t): %w", set.minimal, err)
		}
	}

	if len(result.Concepts) > 0 {
		concepts := make([]map[string]any, len(result.Concepts))
		for i, c := range result.Concepts {
			urls := make([]string, 0, len(c.Resources))
			for _, r := range c.Resources {
				urls = append(urls, r.URL)
			}
			concepts[i] = map[string]any{
				"name":              c.Name,
				"kind":              string(c.Kind),
				"description":       c.Description,
				"time_estimate":     c.TimeEstimate,
				"importance_score":  c.ImportanceScore,
				"module":            c.Module,
				"source_references": c.SourceReferences,
				"resource_urls":     urls,
				"rank":              i,
			}
		}
		_, err := e.Driver.ExecuteQuery(ctx, driver.SaveConceptsQuery, map[string]any{
			"run_id":   runID,
			"concepts": concepts,
		})
		if err != nil {
			return fmt.Errorf("failed to save concepts: %w", err)
		}
	}

	e.Log.Info("run saved",
		"run_id", runID,
		"nodes", len(result.Graph.Nodes),
		"edges", len(result.Graph.Edges),
		"concepts", len(result.Concepts),
	)
	return nil
}

func nodeParams(n model.NodeView) map[string]any {
	var relevance any
	if n.Properties.TopicRelevance != nil {
		relevance = *n.Properties.TopicRelevance
	}
	return map[string]any{
		"id":                  n.ID,
		"label":               n.Label,
		"frequency":           n.Properties.Frequency,
		"importance":          n.Properties.Importance,
		"pagerank":            n.Properties.PageRank,
		"eigenvector":         n.Properties.Eigenvector,
		"betweenness":         n.Properties.Betweenness,
		"closeness":           n.Properties.Closeness,
		"topic_relevance":     relevance,
		"in_minimal_subgraph": n.InMinimalSubgraph,
	}
}

func edgeParams(edges []model.Edge, minimal bool) []map[string]any {
	out := make([]map[string]any, len(edges))
	for i, e := range edges {
		out[i] = map[string]any{
			"source_id":       e.SourceID,
			"target_id":       e.TargetID,
			"weight":          e.Weight,
			"connection_type": string(e.ConnectionType),
			"minimal":         minimal,
		}
	}
	return out
}

// GetRun reads back a saved run with its concepts in rank order.
func (e *Engine) GetRun(ctx context.Context, runID string) (*model.RunSummary, error) {
	if e.Driver == nil {
		return nil, ErrNoDriver
	}
	res, err := e.Driver.ExecuteQuery(ctx, driver.GetRunQuery, map[string]any{"run_id": runID})
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec := res.Records[0]

	summary := &model.RunSummary{
		ID:           stringValue(rec, "id"),
		Topic:        stringValue(rec, "topic"),
		CreatedAt:    stringValue(rec, "created_at"),
		TotalNodes:   intValue(rec, "total_nodes"),
		TotalEdges:   intValue(rec, "total_edges"),
		MinimalNodes: intValue(rec, "minimal_nodes"),
		MinimalEdges: intValue(rec, "minimal_edges"),
		Concepts:     []string{},
	}
	if summary.ID == "" {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if raw, ok := rec.Get("concepts"); ok {
		list, _ := raw.([]any)
		for _, v := range list {
			if name, ok := v.(string); ok {
				summary.Concepts = append(summary.Concepts, name)
			}
		}
	}
	return summary, nil
}

func (e *Engine) DeleteRun(ctx context.Context, runID string) error {
	if e.Driver == nil {
		return ErrNoDriver
	}
	if _, err := e.Driver.ExecuteQuery(ctx, driver.DeleteRunQuery, map[string]any{"run_id": runID}); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return nil
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func intValue(rec *neo4j.Record, key string) int64 {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
