package model

const MaxResources = 3

type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type,omitempty"`
}

// ConceptRecord is the unit handed to curriculum generation.
type ConceptRecord struct {
	Name             string     `json:"name"`
	Kind             NodeKind   `json:"kind"`
	Description      string     `json:"description"`
	Resources        []Resource `json:"resources"`
	TimeEstimate     int        `json:"time_estimate"`
	SourceReferences []string   `json:"source_references"`
	ImportanceScore  float64    `json:"importance_score"`
	Module           int        `json:"module"`
}

// MergeResources unions resources by URL (title when URL is empty), capped at limit.
func MergeResources(base, extra []Resource, limit int) []Resource {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]Resource, 0, len(base)+len(extra))
	for _, list := range [][]Resource{base, extra} {
		for _, r := range list {
			key := r.URL
			if key == "" {
				key = r.Title
			}
			if seen[key] {
				continue
			}
			if len(out) >= limit {
				return out
			}
			seen[key] = true
			out = append(out, r)
		}
	}
	return out
}

// LearningModule groups concepts that cluster together in the minimal
// subgraph.
type LearningModule struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	Summary  string   `json:"summary"`
	Concepts []string `json:"concepts"`
}
