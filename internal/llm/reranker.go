package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const rerankSnippetRunes = 200

var indexPattern = regexp.MustCompile(`\d+`)

// SimpleLLMReranker asks a generator to order documents by relevance to a
// query. Concept assembly uses it to pick the best sources as resources.
type SimpleLLMReranker struct {
	LLM LLMClient
}

func NewSimpleLLMReranker(client LLMClient) *SimpleLLMReranker {
	return &SimpleLLMReranker{LLM: client}
}

// Rank returns a permutation of document indices. Indices the model omits
// keep their original relative order after the ranked ones; on error the
// original order is returned with the error.
func (r *SimpleLLMReranker) Rank(ctx context.Context, query string, docs []string) ([]int, error) {
	if len(docs) < 2 {
		return identity(len(docs)), nil
	}

	var docList strings.Builder
	for i, d := range docs {
		content := []rune(d)
		if len(content) > rerankSnippetRunes {
			content = append(content[:rerankSnippetRunes], []rune("...")...)
		}
		fmt.Fprintf(&docList, "[%d] %s\n", i, string(content))
	}

	prompt := fmt.Sprintf(`You rank learning resources for a concept.
Concept: %s

Resources:
%s
Rank the resources above by how well they teach the concept.
Output ONLY the indices in order of relevance, separated by commas.
Example: 0, 2, 1
Do not output any other text.`, query, docList.String())

	resp, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		return identity(len(docs)), fmt.Errorf("rerank failed: %w", err)
	}
	return completeRanking(parseIndices(resp), len(docs)), nil
}

func parseIndices(s string) []int {
	var indices []int
	for _, m := range indexPattern.FindAllString(s, -1) {
		if i, err := strconv.Atoi(m); err == nil {
			indices = append(indices, i)
		}
	}
	return indices
}

// completeRanking drops out-of-range and repeated indices and appends the
// missing ones, so the result is always a permutation of [0, n).
func completeRanking(ranked []int, n int) []int {
	seen := make([]bool, n)
	out := make([]int, 0, n)
	for _, i := range ranked {
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			out = append(out, i)
		}
	}
	return out
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
