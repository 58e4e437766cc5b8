package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/glyph/internal/core/model"
)

func TestFindFold_OffsetsIntoOriginalText(t *testing.T) {
	// Lowercasing İ yields two runes; offsets must still index the original.
	text := "İstanbul hosts a Graph Theory meetup"
	start, end, ok := findFold(text, "graph theory")
	assert.True(t, ok)
	assert.Equal(t, "Graph Theory", string([]rune(text)[start:end]))

	_, _, ok = findFold(text, "topology")
	assert.False(t, ok)
	_, _, ok = findFold(text, "")
	assert.False(t, ok)
}

func TestDisplayName_KeepsSourceCasing(t *testing.T) {
	mentions := []model.Source{
		{Title: "İİ Notes", Content: "Notes on Gradient Descent and friends."},
	}
	assert.Equal(t, "Gradient Descent", displayName("gradient descent", mentions))
	assert.Equal(t, "momentum", displayName("momentum", mentions))
}

func TestSnippetsAround_CutsAroundMention(t *testing.T) {
	mentions := []model.Source{
		{Content: "İİİİ then Backpropagation runs"},
		{Content: "no match here"},
		{Content: "backpropagation now"},
		{Content: "and BACKPROPAGATION once more"},
	}
	snippets := snippetsAround("backpropagation", mentions, 10)
	assert.Equal(t, []string{"then Backpropagation runs", "backpropagation now"}, snippets)
}
