package model

type ConnectionType string

const (
	IntraComponent ConnectionType = "intra_component"
	InterComponent ConnectionType = "inter_component"
)

// Edge is a weighted co-occurrence relation. Direction is nominal until the
// minimal subgraph is reconstructed.
type Edge struct {
	SourceID       string         `json:"source_id"`
	TargetID       string         `json:"target_id"`
	Weight         float64        `json:"weight"`
	ConnectionType ConnectionType `json:"connection_type,omitempty"`
}

type edgeKey struct {
	source string
	target string
}

func (e Edge) key() edgeKey {
	return edgeKey{source: e.SourceID, target: e.TargetID}
}
