package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type GraphConfig struct {
	MaxConcepts     int `toml:"max_concepts"`
	MaxEntities     int `toml:"max_entities"`
	MinCooccurrence int `toml:"min_cooccurrence"`
}

type CentralityConfig struct {
	Damping              float64 `toml:"damping"`
	PageRankTolerance    float64 `toml:"pagerank_tolerance"`
	EigenvectorMaxIter   int     `toml:"eigenvector_max_iter"`
	EigenvectorTolerance float64 `toml:"eigenvector_tolerance"`
	PageRankWeight       float64 `toml:"pagerank_weight"`
	EigenvectorWeight    float64 `toml:"eigenvector_weight"`
	BetweennessWeight    float64 `toml:"betweenness_weight"`
	ClosenessWeight      float64 `toml:"closeness_weight"`
}

type SubgraphConfig struct {
	Epsilon         float64 `toml:"epsilon"`
	ConnectorWeight float64 `toml:"connector_weight"`
	// "star" or "chain"
	ConnectorStrategy string  `toml:"connector_strategy"`
	FallbackMin       int     `toml:"fallback_min"`
	FallbackMax       int     `toml:"fallback_max"`
	FallbackFraction  float64 `toml:"fallback_fraction"`
}

// RelevanceConfig is the topic_relevance_config handed in by callers.
type RelevanceConfig struct {
	RelevanceThreshold      float64 `toml:"relevance_threshold"`
	EnableSemanticFiltering bool    `toml:"enable_semantic_filtering"`
	MaxNodesBeforeFiltering int     `toml:"max_nodes_before_filtering"`
	SimilarityBatchSize     int     `toml:"similarity_batch_size"`
	MinRetained             int     `toml:"min_retained"`
	MinRetainedFraction     float64 `toml:"min_retained_fraction"`
}

type DedupeConfig struct {
	JaccardThreshold   float64 `toml:"jaccard_threshold"`
	MaxAbbreviationLen int     `toml:"max_abbreviation_len"`
}

// ConceptsConfig shapes the concept list assembled from the minimal subgraph.
type ConceptsConfig struct {
	MaxRecords int `toml:"max_records"`
	MinHours   int `toml:"min_hours"`
	MaxHours   int `toml:"max_hours"`
	// SnippetRunes is the context taken around a label for descriptions.
	SnippetRunes int `toml:"snippet_runes"`
}

type CommunityConfig struct {
	// "label_propagation" or "components"
	Method        string `toml:"method"`
	MaxIterations int    `toml:"max_iterations"`
}

// AnalysisConfig tunes the gap and proximity report. PageRank thresholds
// are absolute, so they bite harder on small graphs.
type AnalysisConfig struct {
	Enabled              bool    `toml:"enabled"`
	GapPageRank          float64 `toml:"gap_pagerank"`
	HighSeverityPageRank float64 `toml:"high_severity_pagerank"`
	MaxGaps              int     `toml:"max_gaps"`
	ConnectivityRatio    float64 `toml:"connectivity_ratio"`
	MaxHops              int     `toml:"max_hops"`
	MaxInsights          int     `toml:"max_insights"`
}

// SummaryPrompts are fmt templates. Concepts takes topic, concept name and
// source snippets; Modules takes topic and the concept list; ModuleName
// takes the module summary; Analysis takes topic and the findings.
type SummaryPrompts struct {
	Concepts   string `toml:"concepts"`
	Modules    string `toml:"modules"`
	ModuleName string `toml:"module_name"`
	Analysis   string `toml:"analysis"`
}

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

type ConcurrencyConfig struct {
	Workers int `toml:"workers"`
}

type LoggingConfig struct {
	Mode string `toml:"mode"`
}

type Config struct {
	Graph       GraphConfig       `toml:"graph"`
	Centrality  CentralityConfig  `toml:"centrality"`
	Subgraph    SubgraphConfig    `toml:"subgraph"`
	Relevance   RelevanceConfig   `toml:"relevance"`
	Dedupe      DedupeConfig      `toml:"dedupe"`
	Concepts    ConceptsConfig    `toml:"concepts"`
	Community   CommunityConfig   `toml:"community"`
	Analysis    AnalysisConfig    `toml:"analysis"`
	Summary     SummaryPrompts    `toml:"summary"`
	LLM         LLMConfig         `toml:"llm"`
	Memgraph    MemgraphConfig    `toml:"memgraph"`
	Redis       RedisConfig       `toml:"redis"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Logging     LoggingConfig     `toml:"logging"`
}

const defaultConceptPrompt = `You write short learning-guide entries.
Topic: %s
Concept: %s

Source excerpts:
%s
Describe the concept in one or two sentences for a learner of the topic.
Return JSON: {"description": "..."}`

const defaultModulePrompt = `You group concepts into learning modules.
Topic: %s

Concepts:
%s
Summarize what this group of concepts teaches in one or two sentences.
Return JSON: {"summary": "..."}`

const defaultModuleNamePrompt = `Give a short title (at most five words) for a learning module with this summary:
%s
Return JSON: {"name": "..."}`

const defaultAnalysisPrompt = `You review a knowledge graph built for a learner.
Topic: %s

Findings:
%s
Summarize in two sentences what the learner is missing and where to look next.
Return JSON: {"summary": "..."}`

// Default returns the configuration every stage falls back to.
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			MaxConcepts:     500,
			MaxEntities:     300,
			MinCooccurrence: 2,
		},
		Centrality: CentralityConfig{
			Damping:              0.85,
			PageRankTolerance:    1e-6,
			EigenvectorMaxIter:   1000,
			EigenvectorTolerance: 1e-6,
			PageRankWeight:       0.4,
			EigenvectorWeight:    0.3,
			BetweennessWeight:    0.2,
			ClosenessWeight:      0.1,
		},
		Subgraph: SubgraphConfig{
			Epsilon:           1e-6,
			ConnectorWeight:   10,
			ConnectorStrategy: "star",
			FallbackMin:       10,
			FallbackMax:       50,
			FallbackFraction:  0.3,
		},
		Relevance: RelevanceConfig{
			RelevanceThreshold:      0.3,
			EnableSemanticFiltering: true,
			MaxNodesBeforeFiltering: 1000,
			SimilarityBatchSize:     32,
			MinRetained:             10,
			MinRetainedFraction:     0.1,
		},
		Dedupe: DedupeConfig{
			JaccardThreshold:   0.75,
			MaxAbbreviationLen: 5,
		},
		Concepts: ConceptsConfig{
			MaxRecords:   100,
			MinHours:     1,
			MaxHours:     8,
			SnippetRunes: 300,
		},
		Community: CommunityConfig{
			Method:        "label_propagation",
			MaxIterations: 20,
		},
		Analysis: AnalysisConfig{
			Enabled:              true,
			GapPageRank:          0.1,
			HighSeverityPageRank: 0.2,
			MaxGaps:              3,
			ConnectivityRatio:    2,
			MaxHops:              3,
			MaxInsights:          3,
		},
		Summary: SummaryPrompts{
			Concepts:   defaultConceptPrompt,
			Modules:    defaultModulePrompt,
			ModuleName: defaultModuleNamePrompt,
			Analysis:   defaultAnalysisPrompt,
		},
		Redis: RedisConfig{
			TTLSeconds: 3600,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Mode: "dev",
		},
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	r := c.Relevance
	if r.RelevanceThreshold < 0 || r.RelevanceThreshold > 1 {
		return fmt.Errorf("relevance.relevance_threshold must be within [0,1], got %f", r.RelevanceThreshold)
	}
	if r.SimilarityBatchSize <= 0 {
		return fmt.Errorf("relevance.similarity_batch_size must be positive, got %d", r.SimilarityBatchSize)
	}
	if c.Centrality.Damping <= 0 || c.Centrality.Damping >= 1 {
		return fmt.Errorf("centrality.damping must be within (0,1), got %f", c.Centrality.Damping)
	}
	if c.Graph.MinCooccurrence < 1 {
		return fmt.Errorf("graph.min_cooccurrence must be at least 1, got %d", c.Graph.MinCooccurrence)
	}
	if c.Subgraph.Epsilon <= 0 {
		return fmt.Errorf("subgraph.epsilon must be positive, got %g", c.Subgraph.Epsilon)
	}
	switch c.Subgraph.ConnectorStrategy {
	case "star", "chain":
	default:
		return fmt.Errorf("subgraph.connector_strategy must be star or chain, got %q", c.Subgraph.ConnectorStrategy)
	}
	switch c.Community.Method {
	case "label_propagation", "components":
	default:
		return fmt.Errorf("community.method must be label_propagation or components, got %q", c.Community.Method)
	}
	if c.Concepts.MinHours < 1 || c.Concepts.MaxHours < c.Concepts.MinHours {
		return fmt.Errorf("concepts hours must satisfy 1 <= min_hours <= max_hours, got %d..%d", c.Concepts.MinHours, c.Concepts.MaxHours)
	}
	if a := c.Analysis; a.Enabled && (a.MaxHops < 2 || a.ConnectivityRatio <= 0) {
		return fmt.Errorf("analysis needs max_hops >= 2 and a positive connectivity_ratio, got %d and %g", a.MaxHops, a.ConnectivityRatio)
	}
	if c.Concurrency.Workers <= 0 {
		return fmt.Errorf("concurrency.workers must be positive, got %d", c.Concurrency.Workers)
	}
	return nil
}

// ApplyEnv overrides connection settings from the environment.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.LLM.Provider, "LLM_PROVIDER")
	set(&c.LLM.Model, "LLM_MODEL")
	set(&c.LLM.EmbeddingModel, "LLM_EMBEDDING_MODEL")
	set(&c.LLM.APIKey, "LLM_API_KEY")
	set(&c.LLM.BaseURL, "LLM_BASE_URL")
	set(&c.Memgraph.URI, "MEMGRAPH_URI")
	set(&c.Memgraph.User, "MEMGRAPH_USER")
	set(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Redis.Password, "REDIS_PASSWORD")
	set(&c.Logging.Mode, "LOG_MODE")
}
