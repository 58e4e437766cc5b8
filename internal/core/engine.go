package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/analysis"
	"github.com/agenthands/glyph/internal/core/builder"
	"github.com/agenthands/glyph/internal/core/centrality"
	"github.com/agenthands/glyph/internal/core/community"
	"github.com/agenthands/glyph/internal/core/dedupe"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/core/relevance"
	"github.com/agenthands/glyph/internal/core/subgraph"
	"github.com/agenthands/glyph/internal/core/summary"
	"github.com/agenthands/glyph/internal/driver"
	"github.com/agenthands/glyph/internal/llm"
	"github.com/agenthands/glyph/internal/logger"
)

const (
	StageBuild      = "build"
	StageCentrality = "centrality"
	StageFilter     = "filter"
	StageSubgraph   = "subgraph"
	StageConcepts   = "concepts"
	StageDedupe     = "dedupe"
	StageModules    = "modules"
	StageAnalysis   = "analysis"
)

// Engine runs the concept-graph pipeline and optionally persists its
// results. Stages recover into fallbacks on their own; only a panic or a
// cancelled context stops a run.
type Engine struct {
	Config       *config.Config
	Log          *logger.Logger
	Builder      *builder.Builder
	Centrality   *centrality.Engine
	Filter       *relevance.Filter
	Extractor    *subgraph.Extractor
	Communities  community.CommunityDetector
	Modules      *community.LabelPropagationDetector
	Summarizer   *summary.Summarizer
	Deduplicator *dedupe.Deduplicator
	// Analyzer is nil when analysis is disabled.
	Analyzer *analysis.Analyzer
	// Ranker orders candidate resources; nil keeps source order.
	Ranker llm.RerankerClient
	// Driver is only needed by Save, GetRun and DeleteRun.
	Driver driver.GraphDriver
}

func NewEngine(cfg *config.Config, llmClient llm.LLMClient, embedder llm.EmbedderClient, drv driver.GraphDriver, log *logger.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	log = logger.OrNop(log)
	workers := cfg.Concurrency.Workers

	modules := community.NewLabelPropagationDetector(cfg.Community.MaxIterations)
	var communities community.CommunityDetector = modules
	if cfg.Community.Method == "components" {
		communities = community.NewComponentDetector()
	}

	e := &Engine{
		Config:       cfg,
		Log:          log,
		Builder:      builder.NewBuilder(cfg.Graph, log),
		Centrality:   centrality.NewEngine(cfg.Centrality, log),
		Filter:       relevance.NewFilter(cfg.Relevance, embedder, workers, log),
		Extractor:    subgraph.NewExtractor(cfg.Subgraph, log),
		Communities:  communities,
		Modules:      modules,
		Summarizer:   summary.NewSummarizer(llmClient, cfg.Summary, workers, log),
		Deduplicator: dedupe.NewDeduplicator(cfg.Dedupe, log),
		Driver:       drv,
	}
	if cfg.Analysis.Enabled {
		e.Analyzer = analysis.NewAnalyzer(cfg.Analysis, e.Summarizer, log)
	}
	if llmClient != nil {
		e.Ranker = llm.NewSimpleLLMReranker(llmClient)
	}
	return e
}

// runState tracks what a run has produced so a failure can still hand back
// the best graph available.
type runState struct {
	stage   string
	graph   *model.Graph
	minimal *model.Graph
	scores  *model.CentralityScores
}

func (s *runState) fail(err error) *model.StageError {
	se := &model.StageError{Stage: s.stage, Kind: model.FatalError, Err: err}
	if s.graph != nil {
		se.Nodes = s.graph.NodeCount()
		se.Edges = s.graph.EdgeCount()
	}
	return se
}

// Run executes every stage for one input. The returned result is never nil;
// on error it holds whatever graph the run reached.
func (e *Engine) Run(ctx context.Context, in model.Input) (result *model.Result, err error) {
	runID := uuid.New().String()
	log := e.Log.With("run_id", runID)
	started := time.Now()

	result = &model.Result{
		Graph:           emptyView(),
		MinimalSubgraph: emptyView(),
		Concepts:        []model.ConceptRecord{},
		Modules:         []model.LearningModule{},
		Metadata:        model.Metadata{RunID: runID, Topic: in.Topic},
	}
	st := &runState{stage: StageBuild}

	defer func() {
		if r := recover(); r != nil {
			se := st.fail(fmt.Errorf("panic: %v", r))
			log.Error("pipeline stage panicked",
				"stage", se.Stage,
				"nodes", se.Nodes,
				"edges", se.Edges,
				"error", se.Err,
			)
			if st.graph != nil {
				result.Graph = graphView(st.graph, st.scores, st.minimal)
			}
			err = se
		}
	}()

	// 1. Build
	g, buildErr := e.Builder.Build(in.Nodes, in.Sources)
	st.graph = g
	if buildErr != nil {
		log.Warn("graph built with input errors", "kind", model.KindOf(buildErr), "error", buildErr)
		result.Stages.Build = buildErr.Error()
	}

	// 2. Centrality
	st.stage = StageCentrality
	scores, centralityReport := e.Centrality.Compute(g)
	st.scores = scores
	result.Stages.Centrality = centralityReport

	// 3. Filter, rescoring whatever survived
	st.stage = StageFilter
	if err := checkpoint(ctx, st); err != nil {
		result.Graph = graphView(g, scores, nil)
		return result, err
	}
	filterReport := e.Filter.Apply(ctx, g, in.Topic)
	if filterReport.Removed > 0 {
		scores, centralityReport = e.Centrality.Compute(g)
		st.scores = scores
		result.Stages.Centrality = centralityReport
	}
	result.Stages.Filter = filterReport

	clusters, detectErr := e.Communities.Detect(g)
	if detectErr != nil {
		log.Warn("community detection failed", "error", detectErr)
	}

	// 4. Minimal subgraph
	st.stage = StageSubgraph
	minimal, subgraphReport := e.Extractor.Extract(g, scores)
	st.minimal = minimal
	result.Stages.Subgraph = subgraphReport

	// 5. Concepts
	st.stage = StageConcepts
	if err := checkpoint(ctx, st); err != nil {
		result.Graph = graphView(g, scores, minimal)
		return result, err
	}
	records, snippets := e.assembleConcepts(ctx, in.Sources, minimal, scores)

	// 6. Dedupe, then describe what survived
	st.stage = StageDedupe
	concepts, dedupeReport := e.Deduplicator.Deduplicate(records)
	result.Stages.Dedupe = dedupeReport
	e.Summarizer.DescribeConcepts(ctx, in.Topic, concepts, snippetsFor(concepts, snippets))

	// 7. Learning modules
	st.stage = StageModules
	modules := e.learningModules(ctx, in.Topic, concepts)

	// 8. Gaps and proximity insights
	if e.Analyzer != nil {
		st.stage = StageAnalysis
		report := e.Analyzer.Analyze(ctx, in.Topic, g, minimal, scores)
		result.Analysis = &report
	}

	result.Graph = graphView(g, scores, minimal)
	result.MinimalSubgraph = minimalView(minimal, scores)
	result.Concepts = concepts
	result.Modules = modules
	result.Metadata = model.Metadata{
		RunID:                      runID,
		Topic:                      in.Topic,
		TotalNodes:                 g.NodeCount(),
		TotalEdges:                 g.EdgeCount(),
		MinimalNodes:               minimal.NodeCount(),
		MinimalEdges:               minimal.EdgeCount(),
		ConnectedComponents:        community.CountComponents(g),
		MinimalConnectedComponents: community.CountComponents(minimal),
		GraphDensity:               g.Density(),
		Communities:                len(clusters),
		HasEmbeddings:              filterReport.Method == model.MethodSemantic,
		Modules:                    len(modules),
		Algorithms:                 algorithms(result.Stages, result.Analysis != nil),
		LastAnalysis:               time.Now().UTC(),
	}

	log.Info("pipeline finished",
		"topic", in.Topic,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"minimal_nodes", minimal.NodeCount(),
		"concepts", len(concepts),
		"modules", len(modules),
		"analysis", result.Analysis != nil,
		"duration", time.Since(started),
	)
	return result, nil
}

func checkpoint(ctx context.Context, st *runState) error {
	if err := ctx.Err(); err != nil {
		return st.fail(err)
	}
	return nil
}

// algorithms names what actually ran, fallbacks included.
func algorithms(stages model.StageReports, analyzed bool) []string {
	algs := []string{"cooccurrence_graph"}
	switch {
	case stages.Centrality.Fallback:
		algs = append(algs, "degree_centrality")
	case stages.Centrality.EigenvectorFallback:
		algs = append(algs, "pagerank", "degree_centrality", "betweenness_centrality", "closeness_centrality")
	default:
		algs = append(algs, "pagerank", "eigenvector_centrality", "betweenness_centrality", "closeness_centrality")
	}
	if stages.Filter.Applied {
		algs = append(algs, "topic_relevance_"+string(stages.Filter.Method))
	}
	if stages.Subgraph.FallbackUsed {
		algs = append(algs, "top_importance_subgraph")
	} else {
		algs = append(algs, "minimum_spanning_tree", stages.Subgraph.Strategy+"_connectors")
	}
	algs = append(algs, "label_propagation", "concept_deduplication")
	if analyzed {
		algs = append(algs, "knowledge_gap_analysis", "shortest_path_proximity")
	}
	return algs
}
