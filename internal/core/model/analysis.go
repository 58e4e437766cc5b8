package model

const (
	GapConcept      = "Concept Gap"
	GapEntity       = "Entity Gap"
	GapConnectivity = "Connectivity Gap"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// KnowledgeGap is something the full graph knows that the minimal
// subgraph leaves out.
type KnowledgeGap struct {
	Type             string   `json:"type"`
	Label            string   `json:"label,omitempty"`
	Description      string   `json:"description"`
	Severity         string   `json:"severity"`
	SuggestedSources []string `json:"suggested_sources"`
	RelatedConcepts  []string `json:"related_concepts"`
}

// ProximityInsight pairs a concept with an entity that it never co-occurs
// with directly but sits a few hops away from.
type ProximityInsight struct {
	ConceptA     string  `json:"concept_a"`
	ConceptB     string  `json:"concept_b"`
	Relationship string  `json:"relationship"`
	Distance     int     `json:"distance"`
	Strength     float64 `json:"strength"`
	Explanation  string  `json:"explanation"`
}

type Analysis struct {
	KnowledgeGaps    []KnowledgeGap     `json:"knowledge_gaps"`
	UncommonInsights []ProximityInsight `json:"uncommon_insights"`
	Summary          string             `json:"summary"`
	Recommendations  []string           `json:"recommendations"`
	Methodology      string             `json:"methodology"`
	Confidence       float64            `json:"confidence"`
}
