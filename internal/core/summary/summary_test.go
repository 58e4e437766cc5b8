package summary

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prompts() config.SummaryPrompts {
	return config.Default().Summary
}

func TestDescribeConcept(t *testing.T) {
	mockLLM := &MockLLMClient{
		Response: "Sure! ```json\n{\"description\": \"Layers of weighted units trained by gradient descent.\"}\n```",
	}
	s := NewSummarizer(mockLLM, prompts(), 2, nil)

	desc, err := s.DescribeConcept(context.Background(), "machine learning",
		model.ConceptRecord{Name: "Neural Networks"},
		[]string{"Neural networks learn weights."},
	)
	require.NoError(t, err)
	assert.Equal(t, "Layers of weighted units trained by gradient descent.", desc)
	require.Len(t, mockLLM.Prompts, 1)
	assert.Contains(t, mockLLM.Prompts[0], "Concept: Neural Networks")
	assert.Contains(t, mockLLM.Prompts[0], "- Neural networks learn weights.")
}

func TestDescribeConcepts_FallsBackPerRecord(t *testing.T) {
	mockLLM := &MockLLMClient{
		Responses: map[string]string{
			"Concept: Graph": `{"description": "Nodes and edges."}`,
			"Concept: Tree":  `not json`,
		},
	}
	concepts := []model.ConceptRecord{
		{Name: "Graph", Kind: model.KindConcept},
		{Name: "Tree", Kind: model.KindConcept},
	}
	NewSummarizer(mockLLM, prompts(), 2, nil).DescribeConcepts(context.Background(), "data structures", concepts, nil)

	assert.Equal(t, "Nodes and edges.", concepts[0].Description)
	assert.Equal(t, "Tree is a key concept for understanding data structures.", concepts[1].Description)
}

func TestDescribeConcepts_WithoutLLM(t *testing.T) {
	concepts := []model.ConceptRecord{{Name: "Alan Turing", Kind: model.KindEntity}}
	NewSummarizer(nil, prompts(), 2, nil).DescribeConcepts(context.Background(), "", concepts, nil)
	assert.Equal(t, "Alan Turing is a key entity in the collected sources.", concepts[0].Description)
}

func TestSummarizeModule_ChunksLargeModules(t *testing.T) {
	mockLLM := &MockLLMClient{Response: `{"summary": "part"}`}
	var concepts []model.ConceptRecord
	for i := 0; i < 45; i++ {
		concepts = append(concepts, model.ConceptRecord{Name: fmt.Sprintf("C%d", i)})
	}

	summary, err := NewSummarizer(mockLLM, prompts(), 2, nil).SummarizeModule(context.Background(), "t", concepts)
	require.NoError(t, err)
	assert.Equal(t, "part", summary)
	// Three chunks plus the reduction over their summaries.
	assert.Len(t, mockLLM.Prompts, 4)
	assert.Contains(t, mockLLM.Prompts[3], "- Part 3: part")
}

func TestSummarizeModule_ErrorAndTemplate(t *testing.T) {
	concepts := []model.ConceptRecord{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}}

	_, err := NewSummarizer(&MockLLMClient{Err: errors.New("down")}, prompts(), 1, nil).
		SummarizeModule(context.Background(), "t", concepts)
	assert.Error(t, err)

	summary, err := NewSummarizer(nil, prompts(), 1, nil).SummarizeModule(context.Background(), "t", concepts)
	require.NoError(t, err)
	assert.Equal(t, "Covers A, B, C and 1 more.", summary)
}

func TestNameModule(t *testing.T) {
	concepts := []model.ConceptRecord{{Name: "Gradient Descent"}}

	name := NewSummarizer(&MockLLMClient{Response: `{"name": "Optimization Basics"}`}, prompts(), 1, nil).
		NameModule(context.Background(), "summary", concepts)
	assert.Equal(t, "Optimization Basics", name)

	name = NewSummarizer(&MockLLMClient{Err: errors.New("down")}, prompts(), 1, nil).
		NameModule(context.Background(), "summary", concepts)
	assert.Equal(t, "Gradient Descent", name)
}

func TestSummarizeAnalysis(t *testing.T) {
	mockLLM := &MockLLMClient{Response: `{"summary": "Study optimization next."}`}
	s := NewSummarizer(mockLLM, prompts(), 1, nil)

	text, err := s.SummarizeAnalysis(context.Background(), "machine learning", []string{"Concept Gap: Optimization"})
	require.NoError(t, err)
	assert.Equal(t, "Study optimization next.", text)
	require.Len(t, mockLLM.Prompts, 1)
	assert.Contains(t, mockLLM.Prompts[0], "- Concept Gap: Optimization")

	_, err = s.SummarizeAnalysis(context.Background(), "machine learning", nil)
	assert.Error(t, err)

	_, err = NewSummarizer(nil, prompts(), 1, nil).SummarizeAnalysis(context.Background(), "x", []string{"a"})
	assert.Error(t, err)

	bad := NewSummarizer(&MockLLMClient{Response: "no json here"}, prompts(), 1, nil)
	_, err = bad.SummarizeAnalysis(context.Background(), "x", []string{"a"})
	assert.Error(t, err)
}
