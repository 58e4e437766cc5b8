package model

const (
	MeasurePageRank    = "pagerank"
	MeasureEigenvector = "eigenvector"
	MeasureBetweenness = "betweenness"
	MeasureCloseness   = "closeness"
)

// Measures lists the centrality measures in reporting order.
var Measures = []string{MeasurePageRank, MeasureEigenvector, MeasureBetweenness, MeasureCloseness}

// CentralityScores holds one score map per measure plus the combined
// importance. It is replaced as a whole whenever the graph changes.
type CentralityScores struct {
	Measures map[string]map[string]float64
	Combined map[string]float64
}

func NewCentralityScores() *CentralityScores {
	m := make(map[string]map[string]float64, len(Measures))
	for _, name := range Measures {
		m[name] = make(map[string]float64)
	}
	return &CentralityScores{Measures: m, Combined: make(map[string]float64)}
}

// Score returns a node's raw score for a measure, 0 if absent.
func (c *CentralityScores) Score(measure, nodeID string) float64 {
	if c == nil {
		return 0
	}
	return c.Measures[measure][nodeID]
}

func (c *CentralityScores) Importance(nodeID string) float64 {
	if c == nil {
		return 0
	}
	return c.Combined[nodeID]
}
