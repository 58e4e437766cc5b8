package summary

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/common"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/llm"
	"github.com/agenthands/glyph/internal/logger"
)

const (
	// ChunkSize bounds how many concepts go into one module prompt.
	ChunkSize       = 20
	maxSnippetRunes = 300
)

type conceptDescription struct {
	Description string `json:"description"`
}

type moduleSummary struct {
	Summary string `json:"summary"`
}

type moduleName struct {
	Name string `json:"name"`
}

// Summarizer writes concept descriptions and learning-module summaries.
// Without an LLM, or when a call fails, it falls back to templates built
// from the graph data, so it never fails the pipeline.
type Summarizer struct {
	LLM     llm.LLMClient
	Prompts config.SummaryPrompts
	Workers int
	Log     *logger.Logger
}

func NewSummarizer(llmClient llm.LLMClient, prompts config.SummaryPrompts, workers int, log *logger.Logger) *Summarizer {
	return &Summarizer{
		LLM:     llmClient,
		Prompts: prompts,
		Workers: workers,
		Log:     logger.OrNop(log),
	}
}

// DescribeConcept asks the model for a learner-facing description.
func (s *Summarizer) DescribeConcept(ctx context.Context, topic string, concept model.ConceptRecord, snippets []string) (string, error) {
	if s.LLM == nil {
		return "", fmt.Errorf("no llm configured")
	}
	var excerpts strings.Builder
	for _, sn := range snippets {
		fmt.Fprintf(&excerpts, "- %s\n", truncate(sn, maxSnippetRunes))
	}

	prompt := fmt.Sprintf(s.Prompts.Concepts, topic, concept.Name, excerpts.String())
	response, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate description: %w", err)
	}

	result, err := common.ParseJSON[conceptDescription](response)
	if err != nil {
		return "", fmt.Errorf("failed to parse description result: %w", err)
	}
	if strings.TrimSpace(result.Description) == "" {
		return "", fmt.Errorf("empty description for %q", concept.Name)
	}
	return strings.TrimSpace(result.Description), nil
}

// DescribeConcepts fills in Description for every record. Calls run on at
// most Workers goroutines; each result lands at its record's index.
func (s *Summarizer) DescribeConcepts(ctx context.Context, topic string, concepts []model.ConceptRecord, snippets [][]string) {
	eg, gCtx := errgroup.WithContext(ctx)
	if s.Workers > 0 {
		eg.SetLimit(s.Workers)
	}
	for i := range concepts {
		idx := i
		eg.Go(func() error {
			var sn []string
			if idx < len(snippets) {
				sn = snippets[idx]
			}
			desc, err := s.DescribeConcept(gCtx, topic, concepts[idx], sn)
			if err != nil {
				if s.LLM != nil {
					s.Log.Warn("concept description failed, using template",
						"concept", concepts[idx].Name,
						"error", err,
					)
				}
				desc = TemplateDescription(topic, concepts[idx])
			}
			concepts[idx].Description = desc
			return nil
		})
	}
	_ = eg.Wait()
}

// SummarizeModule summarizes a group of concepts. Groups larger than
// ChunkSize are summarized in chunks and the chunk summaries reduced again.
func (s *Summarizer) SummarizeModule(ctx context.Context, topic string, concepts []model.ConceptRecord) (string, error) {
	if s.LLM == nil {
		return TemplateModuleSummary(concepts), nil
	}

	// 1. Base case: small enough for one prompt
	if len(concepts) <= ChunkSize {
		var list strings.Builder
		for _, c := range concepts {
			if c.Description != "" {
				fmt.Fprintf(&list, "- %s: %s\n", c.Name, c.Description)
			} else {
				fmt.Fprintf(&list, "- %s\n", c.Name)
			}
		}
		if list.Len() == 0 {
			return "No significant information.", nil
		}

		prompt := fmt.Sprintf(s.Prompts.Modules, topic, list.String())
		response, err := s.LLM.Generate(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("failed to generate module summary: %w", err)
		}

		result, err := common.ParseJSON[moduleSummary](response)
		if err == nil && result.Summary != "" {
			return result.Summary, nil
		}
		return strings.TrimSpace(response), nil
	}

	// 2. Recursive case: split and reduce
	var partials []model.ConceptRecord
	for i := 0; i < len(concepts); i += ChunkSize {
		end := min(i+ChunkSize, len(concepts))
		summary, err := s.SummarizeModule(ctx, topic, concepts[i:end])
		if err != nil {
			s.Log.Warn("module chunk summary failed",
				"chunk_start", i,
				"error", err,
			)
			continue
		}
		partials = append(partials, model.ConceptRecord{
			Name:        fmt.Sprintf("Part %d", len(partials)+1),
			Description: summary,
		})
	}

	if len(partials) == 0 {
		return TemplateModuleSummary(concepts), nil
	}
	return s.SummarizeModule(ctx, topic, partials)
}

// NameModule asks for a short module title; it falls back to the module's
// most important concept.
func (s *Summarizer) NameModule(ctx context.Context, summary string, concepts []model.ConceptRecord) string {
	fallback := TemplateModuleName(concepts)
	if s.LLM == nil || s.Prompts.ModuleName == "" {
		return fallback
	}

	response, err := s.LLM.Generate(ctx, fmt.Sprintf(s.Prompts.ModuleName, summary))
	if err != nil {
		s.Log.Warn("module naming failed", "error", err)
		return fallback
	}
	result, err := common.ParseJSON[moduleName](response)
	if err != nil || strings.TrimSpace(result.Name) == "" {
		return fallback
	}
	return strings.TrimSpace(result.Name)
}

// SummarizeAnalysis condenses analysis findings into a short paragraph.
func (s *Summarizer) SummarizeAnalysis(ctx context.Context, topic string, findings []string) (string, error) {
	if s.LLM == nil || s.Prompts.Analysis == "" {
		return "", fmt.Errorf("no llm configured")
	}
	if len(findings) == 0 {
		return "", fmt.Errorf("no findings to summarize")
	}
	var list strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&list, "- %s\n", f)
	}

	response, err := s.LLM.Generate(ctx, fmt.Sprintf(s.Prompts.Analysis, topic, list.String()))
	if err != nil {
		return "", fmt.Errorf("failed to generate analysis summary: %w", err)
	}
	result, err := common.ParseJSON[moduleSummary](response)
	if err != nil {
		return "", fmt.Errorf("failed to parse analysis summary: %w", err)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return "", fmt.Errorf("empty analysis summary")
	}
	return strings.TrimSpace(result.Summary), nil
}

// TemplateDescription is the description used without a model.
func TemplateDescription(topic string, c model.ConceptRecord) string {
	kind := "concept"
	if c.Kind == model.KindEntity {
		kind = "entity"
	}
	if topic == "" {
		return fmt.Sprintf("%s is a key %s in the collected sources.", c.Name, kind)
	}
	return fmt.Sprintf("%s is a key %s for understanding %s.", c.Name, kind, topic)
}

func TemplateModuleSummary(concepts []model.ConceptRecord) string {
	names := make([]string, 0, 3)
	for _, c := range concepts {
		if len(names) == 3 {
			break
		}
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		return "No significant information."
	}
	more := ""
	if len(concepts) > len(names) {
		more = fmt.Sprintf(" and %d more", len(concepts)-len(names))
	}
	return fmt.Sprintf("Covers %s%s.", strings.Join(names, ", "), more)
}

func TemplateModuleName(concepts []model.ConceptRecord) string {
	if len(concepts) == 0 {
		return "Module"
	}
	return concepts[0].Name
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
