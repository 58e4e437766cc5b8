package relevance

import (
	"strings"
	"unicode"

	"github.com/agenthands/glyph/internal/core/model"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "must": true, "can": true,
	"this": true, "that": true, "these": true, "those": true,
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// topicWords drops stopwords unless nothing else is left.
func topicWords(topic string) map[string]bool {
	all := words(topic)
	set := make(map[string]bool, len(all))
	for _, w := range all {
		if !stopwords[w] {
			set[w] = true
		}
	}
	if len(set) == 0 {
		for _, w := range all {
			set[w] = true
		}
	}
	return set
}

func overlapRatio(topic map[string]bool, text ...string) float64 {
	if len(topic) == 0 {
		return 0
	}
	hit := make(map[string]bool)
	for _, t := range text {
		for _, w := range words(t) {
			if topic[w] {
				hit[w] = true
			}
		}
	}
	return float64(len(hit)) / float64(len(topic))
}

// lexicalScores rates every node by word overlap with the topic, frequency
// and kind. A label that shares no words can still earn half credit through
// its context: the titles it was found in and its neighbours' labels.
func lexicalScores(g *model.Graph, topic string) []float64 {
	tw := topicWords(topic)
	nodes := g.Nodes()
	adj := g.Neighbors()
	scores := make([]float64, len(nodes))

	for i, n := range nodes {
		surroundings := append([]string(nil), n.SourceReferences...)
		for _, j := range adj[i] {
			surroundings = append(surroundings, nodes[j].Label)
		}
		overlap := max(overlapRatio(tw, n.Label), 0.5*overlapRatio(tw, surroundings...))

		score := 0.6*overlap + 0.3*min(float64(n.Frequency)/10, 1)
		if n.Kind == model.KindConcept {
			score += 0.1
		}
		scores[i] = score
	}
	return scores
}
