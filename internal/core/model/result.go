package model

import "time"

// Input is everything one pipeline invocation consumes.
type Input struct {
	Topic   string          `json:"topic"`
	Sources []Source        `json:"sources"`
	Nodes   []ExtractedNode `json:"nodes"`
}

type NodeProperties struct {
	Frequency      int      `json:"frequency"`
	Importance     float64  `json:"importance"`
	PageRank       float64  `json:"pagerank"`
	Eigenvector    float64  `json:"eigenvector"`
	Betweenness    float64  `json:"betweenness"`
	Closeness      float64  `json:"closeness"`
	TopicRelevance *float64 `json:"topic_relevance,omitempty"`
}

type NodeView struct {
	ID                string         `json:"id"`
	Label             string         `json:"label"`
	Kind              NodeKind       `json:"kind"`
	Properties        NodeProperties `json:"properties"`
	InMinimalSubgraph bool           `json:"in_minimal_subgraph"`
}

type GraphView struct {
	Nodes []NodeView `json:"nodes"`
	Edges []Edge     `json:"edges"`
}

type Metadata struct {
	RunID                      string    `json:"run_id"`
	Topic                      string    `json:"topic,omitempty"`
	TotalNodes                 int       `json:"total_nodes"`
	TotalEdges                 int       `json:"total_edges"`
	MinimalNodes               int       `json:"minimal_nodes"`
	MinimalEdges               int       `json:"minimal_edges"`
	ConnectedComponents        int       `json:"connected_components"`
	MinimalConnectedComponents int       `json:"minimal_connected_components"`
	GraphDensity               float64   `json:"graph_density"`
	HasEmbeddings              bool      `json:"has_embeddings"`
	Communities                int       `json:"communities"`
	Modules                    int       `json:"modules"`
	Algorithms                 []string  `json:"algorithms"`
	LastAnalysis               time.Time `json:"last_analysis"`
}

type CentralityReport struct {
	Fallback            bool   `json:"fallback"`
	EigenvectorFallback bool   `json:"eigenvector_fallback"`
	Err                 string `json:"error,omitempty"`
}

type RelevanceMethod string

const (
	MethodNone     RelevanceMethod = "none"
	MethodSemantic RelevanceMethod = "semantic"
	MethodLexical  RelevanceMethod = "lexical"
)

type FilterReport struct {
	Applied      bool            `json:"applied"`
	Method       RelevanceMethod `json:"method"`
	Scored       int             `json:"scored"`
	Removed      int             `json:"removed"`
	FloorApplied bool            `json:"floor_applied"`
	Err          string          `json:"error,omitempty"`
}

type SubgraphReport struct {
	Strategy        string `json:"strategy"`
	Components      int    `json:"components"`
	Connectors      int    `json:"connectors"`
	TreeEdges       int    `json:"tree_edges"`
	WeaklyConnected bool   `json:"weakly_connected"`
	Acyclic         bool   `json:"acyclic"`
	FallbackUsed    bool   `json:"fallback_used"`
	Reason          string `json:"reason,omitempty"`
}

type DedupeReport struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Passes int `json:"passes"`
}

// StageReports tell callers which fallback each stage took without parsing logs.
type StageReports struct {
	Build      string           `json:"build_error,omitempty"`
	Centrality CentralityReport `json:"centrality"`
	Filter     FilterReport     `json:"filter"`
	Subgraph   SubgraphReport   `json:"subgraph"`
	Dedupe     DedupeReport     `json:"dedupe"`
}

type Result struct {
	Graph           GraphView        `json:"graph"`
	MinimalSubgraph GraphView        `json:"minimal_subgraph"`
	Concepts        []ConceptRecord  `json:"concepts"`
	Modules         []LearningModule `json:"modules"`
	Analysis        *Analysis        `json:"analysis,omitempty"`
	Metadata        Metadata         `json:"metadata"`
	Stages          StageReports     `json:"stages"`
}

// RunSummary is what a persisted run reads back as.
type RunSummary struct {
	ID           string   `json:"id"`
	Topic        string   `json:"topic"`
	CreatedAt    string   `json:"created_at"`
	TotalNodes   int64    `json:"total_nodes"`
	TotalEdges   int64    `json:"total_edges"`
	MinimalNodes int64    `json:"minimal_nodes"`
	MinimalEdges int64    `json:"minimal_edges"`
	Concepts     []string `json:"concepts"`
}
