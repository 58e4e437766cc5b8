package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// MaxSourceReferences caps the ordered reference set carried by nodes and concepts.
const MaxSourceReferences = 5

type NodeKind string

const (
	KindConcept NodeKind = "concept"
	KindEntity  NodeKind = "entity"
)

func (k NodeKind) Valid() bool {
	return k == KindConcept || k == KindEntity
}

// Node is a concept or entity vertex of the co-occurrence graph.
type Node struct {
	ID               string   `json:"id"`
	Label            string   `json:"label"`
	Kind             NodeKind `json:"kind"`
	Frequency        int      `json:"frequency"`
	Importance       float64  `json:"importance"`
	SourceReferences []string `json:"source_references,omitempty"`
	// Set only by the topic relevance filter.
	TopicRelevance *float64 `json:"topic_relevance,omitempty"`
}

// ExtractedNode is the tuple handed over by the extraction collaborator.
type ExtractedNode struct {
	Label            string   `json:"label"`
	Kind             NodeKind `json:"kind"`
	Frequency        int      `json:"frequency"`
	SourceReferences []string `json:"source_references,omitempty"`
}

// Source is a text-bearing document collected upstream.
type Source struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	URL        string `json:"url"`
	SourceType string `json:"source_type,omitempty"`
}

// SearchText returns the lowercase title+content used for label matching.
func (s Source) SearchText() string {
	return strings.ToLower(s.Content + " " + s.Title)
}

// NodeID derives the stable identifier of a label: kind prefix plus the
// first 8 hex characters of the label's MD5.
func NodeID(kind NodeKind, label string) string {
	sum := md5.Sum([]byte(label))
	return fmt.Sprintf("%s_%s", kind, hex.EncodeToString(sum[:])[:8])
}

// NewNode validates the extracted fields and builds a Node.
func NewNode(label string, kind NodeKind, frequency int, refs []string) (Node, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Node{}, fmt.Errorf("%w: empty node label", ErrInvalidInput)
	}
	if !kind.Valid() {
		return Node{}, fmt.Errorf("%w: unknown node kind %q for %q", ErrInvalidInput, kind, label)
	}
	if frequency < 0 {
		return Node{}, fmt.Errorf("%w: negative frequency %d for %q", ErrInvalidInput, frequency, label)
	}
	return Node{
		ID:               NodeID(kind, label),
		Label:            label,
		Kind:             kind,
		Frequency:        frequency,
		SourceReferences: MergeReferences(nil, refs, MaxSourceReferences),
	}, nil
}

// MergeReferences appends refs to base as an ordered set capped at limit.
func MergeReferences(base, refs []string, limit int) []string {
	seen := make(map[string]bool, len(base)+len(refs))
	out := make([]string, 0, len(base)+len(refs))
	for _, list := range [][]string{base, refs} {
		for _, r := range list {
			r = strings.TrimSpace(r)
			if r == "" || seen[r] {
				continue
			}
			if len(out) >= limit {
				return out
			}
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
