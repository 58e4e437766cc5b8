package core

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/driver"
)

// learningInput yields two components: an optimization cluster of four
// concepts and the Algorithm/Algorithms pair.
func learningInput() model.Input {
	return model.Input{
		Topic: "neural networks",
		Sources: []model.Source{
			{Title: "Intro to Neural Networks", URL: "https://example.org/1", SourceType: "article",
				Content: "Neural networks are trained with Gradient descent and backpropagation."},
			{Title: "Optimization Notes", URL: "https://example.org/2", SourceType: "article",
				Content: "Gradient descent minimizes a loss function. Backpropagation computes gradients for neural networks."},
			{Title: "Loss Functions", URL: "https://example.org/3", SourceType: "video",
				Content: "A loss function measures error. Gradient descent follows the loss function downhill."},
			{Title: "Graph Algorithms", URL: "https://example.org/4",
				Content: "Sorting algorithms and graph algorithms are classic topics. An algorithm is a recipe."},
			{Title: "Algorithm Design", URL: "https://example.org/5",
				Content: "Greedy algorithms are a family of algorithm design techniques."},
		},
		Nodes: []model.ExtractedNode{
			{Label: "neural networks", Kind: model.KindConcept, Frequency: 2},
			{Label: "gradient descent", Kind: model.KindConcept, Frequency: 3, SourceReferences: []string{"Optimization Notes"}},
			{Label: "backpropagation", Kind: model.KindConcept, Frequency: 2},
			{Label: "loss function", Kind: model.KindConcept, Frequency: 2},
			{Label: "algorithms", Kind: model.KindConcept, Frequency: 2},
			{Label: "algorithm", Kind: model.KindConcept, Frequency: 2},
		},
	}
}

func conceptNames(concepts []model.ConceptRecord) []string {
	names := make([]string, len(concepts))
	for i, c := range concepts {
		names[i] = c.Name
	}
	return names
}

func findConcept(t *testing.T, concepts []model.ConceptRecord, name string) model.ConceptRecord {
	t.Helper()
	for _, c := range concepts {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("concept %q not found in %v", name, conceptNames(concepts))
	return model.ConceptRecord{}
}

func TestRun_EndToEnd(t *testing.T) {
	engine := NewEngine(config.Default(), nil, nil, nil, nil)
	result, err := engine.Run(context.Background(), learningInput())
	require.NoError(t, err)

	md := result.Metadata
	assert.NotEmpty(t, md.RunID)
	assert.Equal(t, 6, md.TotalNodes)
	assert.Equal(t, 5, md.TotalEdges)
	assert.Equal(t, 2, md.ConnectedComponents)
	assert.Equal(t, 6, md.MinimalNodes)
	// Three tree edges, one pair edge and a two-way connector.
	assert.Equal(t, 6, md.MinimalEdges)
	assert.Equal(t, 1, md.MinimalConnectedComponents)
	assert.False(t, md.HasEmbeddings)
	assert.Contains(t, md.Algorithms, "minimum_spanning_tree")
	assert.NotContains(t, md.Algorithms, "topic_relevance_lexical")
	assert.False(t, md.LastAnalysis.IsZero())

	assert.Empty(t, result.Stages.Build)
	assert.False(t, result.Stages.Filter.Applied)
	assert.True(t, result.Stages.Subgraph.WeaklyConnected)
	assert.Equal(t, 2, result.Stages.Subgraph.Components)

	// Names take the casing the sources use; plurals collapse.
	names := conceptNames(result.Concepts)
	assert.Len(t, names, 5)
	assert.Contains(t, names, "Neural Networks")
	assert.Contains(t, names, "Algorithms")
	assert.NotContains(t, names, "Algorithm")
	assert.Equal(t, 6, result.Stages.Dedupe.Input)
	assert.Equal(t, 5, result.Stages.Dedupe.Output)

	top := 0
	for _, c := range result.Concepts {
		assert.NotEmpty(t, c.Description, c.Name)
		assert.GreaterOrEqual(t, c.TimeEstimate, 1)
		assert.LessOrEqual(t, c.TimeEstimate, 8)
		top = max(top, c.TimeEstimate)
	}
	assert.Equal(t, 8, top)

	gd := findConcept(t, result.Concepts, "Gradient descent")
	require.Len(t, gd.Resources, 3)
	assert.Equal(t, "https://example.org/1", gd.Resources[0].URL)
	assert.Equal(t, "video", gd.Resources[2].Type)
	assert.Equal(t, []string{"Optimization Notes"}, gd.SourceReferences)
	assert.Equal(t, "Gradient descent is a key concept for understanding neural networks.", gd.Description)

	// Connectors do not merge the two clusters into one module.
	require.GreaterOrEqual(t, len(result.Modules), 2)
	assert.Equal(t, len(result.Modules), md.Modules)
	indices := map[int]bool{}
	for _, m := range result.Modules {
		indices[m.Index] = true
		assert.NotEmpty(t, m.Summary)
		assert.NotEmpty(t, m.Name)
	}
	for _, c := range result.Concepts {
		assert.True(t, indices[c.Module], c.Name)
	}
	assert.NotEqual(t, findConcept(t, result.Concepts, "Algorithms").Module, gd.Module)

	inMinimal := 0
	for _, n := range result.Graph.Nodes {
		if n.InMinimalSubgraph {
			inMinimal++
		}
	}
	assert.Equal(t, 6, inMinimal)

	// The spanning tree keeps every node and most links, so nothing is missing.
	require.NotNil(t, result.Analysis)
	assert.Empty(t, result.Analysis.KnowledgeGaps)
	assert.Empty(t, result.Analysis.UncommonInsights)
	assert.Contains(t, result.Analysis.Summary, "neural networks")
	assert.Contains(t, md.Algorithms, "knowledge_gap_analysis")
}

func TestRun_AnalysisCanBeDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Enabled = false
	engine := NewEngine(cfg, nil, nil, nil, nil)
	assert.Nil(t, engine.Analyzer)

	result, err := engine.Run(context.Background(), learningInput())
	require.NoError(t, err)
	assert.Nil(t, result.Analysis)
	assert.NotContains(t, result.Metadata.Algorithms, "knowledge_gap_analysis")
}

func TestRun_CommunityMethod(t *testing.T) {
	cfg := config.Default()
	cfg.Community.Method = "components"
	result, err := NewEngine(cfg, nil, nil, nil, nil).Run(context.Background(), learningInput())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Metadata.Communities)

	result, err = NewEngine(config.Default(), nil, nil, nil, nil).Run(context.Background(), learningInput())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Metadata.Communities, 2)
}

func TestRun_EmptyInputIsNotFatal(t *testing.T) {
	engine := NewEngine(nil, nil, nil, nil, nil)
	result, err := engine.Run(context.Background(), model.Input{Topic: "anything"})
	require.NoError(t, err)

	assert.Contains(t, result.Stages.Build, "empty input")
	assert.Equal(t, 0, result.Metadata.TotalNodes)
	assert.Empty(t, result.Concepts)
	assert.Empty(t, result.Modules)
	assert.NotNil(t, result.Graph.Nodes)
	assert.Equal(t, "empty graph", result.Stages.Subgraph.Reason)
}

func TestRun_LexicalFilterRecordsMethod(t *testing.T) {
	cfg := config.Default()
	cfg.Relevance.MaxNodesBeforeFiltering = 1
	result, err := NewEngine(cfg, nil, nil, nil, nil).Run(context.Background(), learningInput())
	require.NoError(t, err)

	assert.True(t, result.Stages.Filter.Applied)
	assert.Equal(t, model.MethodLexical, result.Stages.Filter.Method)
	// Six nodes sit below the retention floor.
	assert.True(t, result.Stages.Filter.FloorApplied)
	assert.Equal(t, 6, result.Metadata.TotalNodes)
	assert.Contains(t, result.Metadata.Algorithms, "topic_relevance_lexical")
	for _, n := range result.Graph.Nodes {
		assert.NotNil(t, n.Properties.TopicRelevance, n.Label)
	}
}

func TestRun_SemanticFilterMarksEmbeddings(t *testing.T) {
	cfg := config.Default()
	cfg.Relevance.MaxNodesBeforeFiltering = 1
	embedder := &MockEmbedder{Vector: []float32{0.5, 0.5}}

	result, err := NewEngine(cfg, nil, embedder, nil, nil).Run(context.Background(), learningInput())
	require.NoError(t, err)
	assert.Equal(t, model.MethodSemantic, result.Stages.Filter.Method)
	assert.True(t, result.Metadata.HasEmbeddings)
	assert.Equal(t, 0, result.Stages.Filter.Removed)
}

func TestRun_UsesLLMForTextAndRanking(t *testing.T) {
	input := learningInput()
	// A fourth source mentioning gradient descent forces a ranking call.
	input.Sources = append(input.Sources, model.Source{
		Title: "Descent Methods", URL: "https://example.org/6",
		Content: "Stochastic gradient descent samples mini batches.",
	})
	mock := &MockLLM{
		Response: `{"description": "Learner text", "summary": "Module summary", "name": "Module name"}`,
		Responses: map[string]string{
			"You rank learning resources": "3, 2",
		},
	}

	result, err := NewEngine(config.Default(), mock, nil, nil, nil).Run(context.Background(), input)
	require.NoError(t, err)

	gd := findConcept(t, result.Concepts, "Gradient descent")
	assert.Equal(t, "Learner text", gd.Description)
	require.Len(t, gd.Resources, 3)
	assert.Equal(t, "https://example.org/6", gd.Resources[0].URL)
	assert.Equal(t, "https://example.org/3", gd.Resources[1].URL)
	assert.Equal(t, "https://example.org/1", gd.Resources[2].URL)
	assert.Equal(t, 1, mock.count("You rank learning resources"))

	for _, m := range result.Modules {
		assert.Equal(t, "Module summary", m.Summary)
		assert.Equal(t, "Module name", m.Name)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewEngine(nil, nil, nil, nil, nil).Run(ctx, learningInput())
	require.Error(t, err)
	var se *model.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageFilter, se.Stage)
	assert.Equal(t, model.FatalError, se.Kind)
	assert.Equal(t, 6, se.Nodes)
	assert.ErrorIs(t, err, context.Canceled)
	// The unfiltered graph is still handed back.
	assert.Len(t, result.Graph.Nodes, 6)
}

func TestSave_WritesRunGraphAndConcepts(t *testing.T) {
	mock := &MockDriver{}
	engine := NewEngine(nil, nil, nil, mock, nil)
	result, err := engine.Run(context.Background(), learningInput())
	require.NoError(t, err)

	require.NoError(t, engine.Save(context.Background(), result))
	require.Len(t, mock.Executed, 5)
	assert.Equal(t, driver.SaveRunQuery, mock.Executed[0].Query)
	assert.Equal(t, driver.SaveNodesQuery("Concept"), mock.Executed[1].Query)
	assert.Equal(t, driver.SaveEdgesQuery, mock.Executed[2].Query)
	assert.Equal(t, driver.SaveEdgesQuery, mock.Executed[3].Query)
	assert.Equal(t, driver.SaveConceptsQuery, mock.Executed[4].Query)

	runID := result.Metadata.RunID
	for _, q := range mock.Executed {
		assert.Equal(t, runID, q.Params["run_id"])
	}
	assert.Len(t, mock.Executed[1].Params["nodes"], 6)

	full := mock.Executed[2].Params["edges"].([]map[string]any)
	assert.Len(t, full, 5)
	assert.Equal(t, false, full[0]["minimal"])
	minimal := mock.Executed[3].Params["edges"].([]map[string]any)
	assert.Len(t, minimal, 6)
	for _, e := range minimal {
		assert.Equal(t, true, e["minimal"])
	}

	concepts := mock.Executed[4].Params["concepts"].([]map[string]any)
	require.Len(t, concepts, 5)
	assert.Equal(t, 0, concepts[0]["rank"])
}

func TestSave_SplitsNodeLabels(t *testing.T) {
	mock := &MockDriver{}
	engine := NewEngine(nil, nil, nil, mock, nil)
	result := &model.Result{
		Metadata: model.Metadata{RunID: "run-1"},
		Graph: model.GraphView{Nodes: []model.NodeView{
			{ID: "concept_1", Label: "A", Kind: model.KindConcept},
			{ID: "entity_1", Label: "B", Kind: model.KindEntity},
		}},
	}
	require.NoError(t, engine.Save(context.Background(), result))
	require.Len(t, mock.Executed, 3)
	assert.Equal(t, driver.SaveNodesQuery("Concept"), mock.Executed[1].Query)
	assert.Equal(t, driver.SaveNodesQuery("Entity"), mock.Executed[2].Query)
}

func TestSave_PropagatesDriverErrors(t *testing.T) {
	mock := &MockDriver{Err: errors.New("connection refused")}
	engine := NewEngine(nil, nil, nil, mock, nil)
	err := engine.Save(context.Background(), &model.Result{Metadata: model.Metadata{RunID: "run-1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPersistence_RequiresDriver(t *testing.T) {
	engine := NewEngine(nil, nil, nil, nil, nil)
	ctx := context.Background()
	assert.ErrorIs(t, engine.Save(ctx, &model.Result{}), ErrNoDriver)
	_, err := engine.GetRun(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNoDriver)
	assert.ErrorIs(t, engine.DeleteRun(ctx, "run-1"), ErrNoDriver)
	assert.ErrorIs(t, engine.BuildIndices(ctx), ErrNoDriver)
}

func TestGetRun(t *testing.T) {
	mock := &MockDriver{MockResult: neo4j.EagerResult{
		Records: []*neo4j.Record{{
			Keys: []string{"id", "topic", "created_at", "total_nodes", "total_edges", "minimal_nodes", "minimal_edges", "concepts"},
			Values: []any{"run-1", "neural networks", "2026-01-02T03:04:05Z",
				int64(6), int64(5), int64(6), int64(6), []any{"Gradient descent", "Neural Networks"}},
		}},
	}}
	engine := NewEngine(nil, nil, nil, mock, nil)

	run, err := engine.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "neural networks", run.Topic)
	assert.Equal(t, int64(5), run.TotalEdges)
	assert.Equal(t, []string{"Gradient descent", "Neural Networks"}, run.Concepts)
	assert.Equal(t, "run-1", mock.Executed[0].Params["run_id"])
}

func TestGetRun_NotFound(t *testing.T) {
	engine := NewEngine(nil, nil, nil, &MockDriver{}, nil)
	_, err := engine.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
