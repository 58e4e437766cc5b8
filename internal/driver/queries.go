package driver

import "fmt"

// IndexQueries cover every MATCH/MERGE key used below.
var IndexQueries = []string{
	"CREATE INDEX ON :Run(id);",
	"CREATE INDEX ON :GraphNode(run_id);",
	"CREATE INDEX ON :GraphNode(id);",
	"CREATE INDEX ON :ConceptRecord(run_id);",
}

const (
	SaveRunQuery = `
		MERGE (r:Run {id: $run_id})
		SET r.topic = $topic,
			r.created_at = $created_at,
			r.total_nodes = $total_nodes,
			r.total_edges = $total_edges,
			r.minimal_nodes = $minimal_nodes,
			r.minimal_edges = $minimal_edges,
			r.connected_components = $connected_components,
			r.graph_density = $graph_density,
			r.has_embeddings = $has_embeddings,
			r.modules = $modules
		RETURN r.id AS id
	`

	// saveNodesTemplate takes the node label (Concept or Entity).
	saveNodesTemplate = `
		MATCH (r:Run {id: $run_id})
		UNWIND $nodes AS node
		MERGE (n:GraphNode {run_id: $run_id, id: node.id})
		SET n:%s,
			n.label = node.label,
			n.frequency = node.frequency,
			n.importance = node.importance,
			n.pagerank = node.pagerank,
			n.eigenvector = node.eigenvector,
			n.betweenness = node.betweenness,
			n.closeness = node.closeness,
			n.topic_relevance = node.topic_relevance,
			n.in_minimal_subgraph = node.in_minimal_subgraph
		MERGE (r)-[:CONTAINS]->(n)
		RETURN count(n) AS saved
	`

	// Full-graph edges carry minimal = false; minimal-subgraph edges are
	// saved as separate relationships so synthetic connectors survive.
	SaveEdgesQuery = `
		UNWIND $edges AS edge
		MATCH (s:GraphNode {run_id: $run_id, id: edge.source_id})
		MATCH (t:GraphNode {run_id: $run_id, id: edge.target_id})
		MERGE (s)-[e:CO_OCCURS {run_id: $run_id, minimal: edge.minimal}]->(t)
		SET e.weight = edge.weight,
			e.connection_type = edge.connection_type
		RETURN count(e) AS saved
	`

	SaveConceptsQuery = `
		MATCH (r:Run {id: $run_id})
		UNWIND $concepts AS concept
		MERGE (c:ConceptRecord {run_id: $run_id, name: concept.name})
		SET c.kind = concept.kind,
			c.description = concept.description,
			c.time_estimate = concept.time_estimate,
			c.importance_score = concept.importance_score,
			c.module = concept.module,
			c.source_references = concept.source_references,
			c.resource_urls = concept.resource_urls,
			c.rank = concept.rank
		MERGE (r)-[:PRODUCED]->(c)
		RETURN count(c) AS saved
	`

	GetRunQuery = `
		MATCH (r:Run {id: $run_id})
		OPTIONAL MATCH (r)-[:PRODUCED]->(c:ConceptRecord)
		WITH r, c ORDER BY c.rank
		RETURN r.id AS id,
			r.topic AS topic,
			r.created_at AS created_at,
			r.total_nodes AS total_nodes,
			r.total_edges AS total_edges,
			r.minimal_nodes AS minimal_nodes,
			r.minimal_edges AS minimal_edges,
			collect(c.name) AS concepts
	`

	DeleteRunQuery = `
		MATCH (r:Run {id: $run_id})
		OPTIONAL MATCH (n {run_id: $run_id})
		DETACH DELETE n, r
	`
)

// SaveNodesQuery returns the node upsert for one label.
func SaveNodesQuery(label string) string {
	return fmt.Sprintf(saveNodesTemplate, label)
}
