// Package storage provides the in-memory property graph used by NornicFed data sources.
//
// Every data source hands graphs to the catalog as a *MemoryEngine: the memory source
// keeps them resident, the badger and file sources decode their records into one, and
// the neo4j source materializes the remote database into one. The package also owns
// the Neo4j JSON export format used by the file source and the CLI import command.
//
// Design Principles:
//   - Neo4j JSON export/import compatibility
//   - Deep copies in and out, so callers never alias engine state
//   - Thread-safe implementations
//   - Property graph model (labeled property graph)
//
// Example Usage:
//
//	engine := storage.NewMemoryEngine()
//	defer engine.Close()
//
//	engine.CreateNode(&storage.Node{
//		ID:     "user-123",
//		Labels: []string{"User", "Person"},
//		Properties: map[string]any{
//			"name":  "Alice",
//			"email": "alice@example.com",
//		},
//	})
//	engine.CreateNode(&storage.Node{ID: "user-456", Labels: []string{"User"}})
//
//	engine.CreateEdge(&storage.Edge{
//		ID:        "follows-1",
//		StartNode: "user-123",
//		EndNode:   "user-456",
//		Type:      "FOLLOWS",
//	})
//
//	// Export to Neo4j format
//	nodes, _ := engine.AllNodes()
//	edges, _ := engine.AllEdges()
//	export := storage.ToNeo4jExport(nodes, edges)
//	data, _ := json.MarshalIndent(export, "", "  ")
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidData   = errors.New("invalid data")
	ErrInvalidEdge   = errors.New("invalid edge: start or end node not found")
	ErrStorageClosed = errors.New("storage closed")
)

// NodeID is a strongly-typed unique identifier for graph nodes.
//
// Example:
//
//	id := storage.NodeID("user-123")
//	node, err := engine.GetNode(id)
type NodeID string

// EdgeID is a strongly-typed unique identifier for graph edges (relationships).
type EdgeID string

// Node represents a graph node (vertex) in the labeled property graph.
//
// Fields:
//   - ID: Unique identifier (must be unique across all nodes of one graph)
//   - Labels: Type tags like ["Person", "User"] (Neo4j :Person:User)
//   - Properties: Key-value data. Values are Go-native (int64, float64, string,
//     bool, []any, map[string]any); see value.FromAny for the accepted set.
//
// Thread Safety:
//
//	Node structs are NOT thread-safe. The storage engine handles concurrency.
type Node struct {
	ID         NodeID         `json:"id" msgpack:"id"`
	Labels     []string       `json:"labels" msgpack:"labels"`
	Properties map[string]any `json:"properties" msgpack:"properties"`
}

// Edge represents a directed graph relationship (arc) between two nodes.
//
// The arrow matters! "Alice KNOWS Bob" is different from "Bob KNOWS Alice"
// (they could both be true, but they're separate relationships).
//
// Thread Safety:
//
//	Edge structs are NOT thread-safe. The storage engine handles concurrency.
type Edge struct {
	ID         EdgeID         `json:"id" msgpack:"id"`
	StartNode  NodeID         `json:"startNode" msgpack:"start"`
	EndNode    NodeID         `json:"endNode" msgpack:"end"`
	Type       string         `json:"type" msgpack:"type"`
	Properties map[string]any `json:"properties" msgpack:"properties"`
}

// Engine defines the graph operations data sources and schema derivation rely on.
//
// All Engine implementations MUST be thread-safe. Reads return deep copies.
//
// Example Usage:
//
//	var engine storage.Engine = storage.NewMemoryEngine()
//	defer engine.Close()
//
//	err := engine.StreamNodes(ctx, func(n *storage.Node) error {
//		fmt.Println(n.ID)
//		return nil
//	})
type Engine interface {
	// Entity operations
	CreateNode(node *Node) error
	GetNode(id NodeID) (*Node, error)
	CreateEdge(edge *Edge) error

	// Whole-graph reads
	AllNodes() ([]*Node, error)
	AllEdges() ([]*Edge, error)

	// Streaming iteration in ID order. Returning an error from fn stops the
	// iteration and is returned unchanged; ctx cancellation returns ctx.Err().
	StreamNodes(ctx context.Context, fn NodeVisitor) error
	StreamEdges(ctx context.Context, fn EdgeVisitor) error

	// Bulk operations (for import)
	BulkCreateNodes(nodes []*Node) error
	BulkCreateEdges(edges []*Edge) error

	// Lifecycle
	Close() error

	// Stats
	NodeCount() (int64, error)
	EdgeCount() (int64, error)
}

// NodeVisitor is a function called for each node during streaming.
type NodeVisitor func(node *Node) error

// EdgeVisitor is a function called for each edge during streaming.
type EdgeVisitor func(edge *Edge) error

// Neo4jExport represents the Neo4j JSON export format.
// This is compatible with `neo4j-admin database dump` JSON output. The yaml tags
// let the same structure be written by hand as YAML.
type Neo4jExport struct {
	Nodes         []Neo4jNode         `json:"nodes" yaml:"nodes"`
	Relationships []Neo4jRelationship `json:"relationships" yaml:"relationships"`
}

// Neo4jNode is the Neo4j JSON export format for nodes.
type Neo4jNode struct {
	ID         string         `json:"id" yaml:"id"`
	Labels     []string       `json:"labels" yaml:"labels"`
	Properties map[string]any `json:"properties" yaml:"properties,omitempty"`
}

// Neo4jNodeRef is a reference to a node in Neo4j relationship format.
type Neo4jNodeRef struct {
	ID     string   `json:"id" yaml:"id"`
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Neo4jRelationship is the Neo4j JSON export format for relationships.
// Supports both flat format (startNode/endNode strings) and APOC format (start/end objects).
type Neo4jRelationship struct {
	ID         string         `json:"id" yaml:"id"`
	Type       string         `json:"type" yaml:"type"`
	Properties map[string]any `json:"properties" yaml:"properties,omitempty"`

	// Flat format (neo4j-admin dump)
	StartNode string `json:"startNode,omitempty" yaml:"startNode,omitempty"`
	EndNode   string `json:"endNode,omitempty" yaml:"endNode,omitempty"`

	// APOC format (apoc.export.json)
	Start Neo4jNodeRef `json:"start,omitempty" yaml:"start,omitempty"`
	End   Neo4jNodeRef `json:"end,omitempty" yaml:"end,omitempty"`
}

// GetStartID returns the start node ID supporting both Neo4j export formats.
//
// Example:
//
//	// Flat format
//	rel := &Neo4jRelationship{StartNode: "user-123"}
//	fmt.Println(rel.GetStartID()) // "user-123"
//
//	// APOC format
//	rel = &Neo4jRelationship{Start: Neo4jNodeRef{ID: "user-456"}}
//	fmt.Println(rel.GetStartID()) // "user-456"
func (r *Neo4jRelationship) GetStartID() string {
	if r.Start.ID != "" {
		return r.Start.ID
	}
	return r.StartNode
}

// GetEndID returns the end node ID regardless of format.
func (r *Neo4jRelationship) GetEndID() string {
	if r.End.ID != "" {
		return r.End.ID
	}
	return r.EndNode
}

// ToNeo4jExport converts nodes and edges to Neo4j JSON export format (flat form).
//
// The output is compatible with:
//   - `neo4j-admin database import`
//   - `CALL apoc.import.json()`
func ToNeo4jExport(nodes []*Node, edges []*Edge) *Neo4jExport {
	export := &Neo4jExport{
		Nodes:         make([]Neo4jNode, len(nodes)),
		Relationships: make([]Neo4jRelationship, len(edges)),
	}

	for i, n := range nodes {
		export.Nodes[i] = Neo4jNode{
			ID:         string(n.ID),
			Labels:     n.Labels,
			Properties: copyProperties(n.Properties),
		}
	}

	for i, e := range edges {
		export.Relationships[i] = Neo4jRelationship{
			ID:         string(e.ID),
			StartNode:  string(e.StartNode),
			EndNode:    string(e.EndNode),
			Type:       e.Type,
			Properties: copyProperties(e.Properties),
		}
	}

	return export
}

// FromNeo4jExport converts Neo4j JSON export format to nodes and edges.
//
// Supports both export formats:
//   - neo4j-admin database dump (flat format)
//   - apoc.export.json (nested format)
//
// Returns nodes and edges ready for storage engine insertion.
func FromNeo4jExport(export *Neo4jExport) ([]*Node, []*Edge) {
	nodes := make([]*Node, len(export.Nodes))
	edges := make([]*Edge, len(export.Relationships))

	for i, n := range export.Nodes {
		nodes[i] = &Node{
			ID:         NodeID(n.ID),
			Labels:     append([]string(nil), n.Labels...),
			Properties: copyProperties(n.Properties),
		}
	}

	for i, r := range export.Relationships {
		edges[i] = &Edge{
			ID:         EdgeID(r.ID),
			StartNode:  NodeID(r.GetStartID()),
			EndNode:    NodeID(r.GetEndID()),
			Type:       r.Type,
			Properties: copyProperties(r.Properties),
		}
	}

	return nodes, edges
}

// LoadNeo4jExport builds a new MemoryEngine holding the contents of export.
func LoadNeo4jExport(export *Neo4jExport) (*MemoryEngine, error) {
	nodes, edges := FromNeo4jExport(export)
	engine := NewMemoryEngine()
	if err := engine.BulkCreateNodes(nodes); err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	if err := engine.BulkCreateEdges(edges); err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	return engine, nil
}

// ExportEngine renders engine in Neo4j export format, ordered by ID.
func ExportEngine(engine Engine) (*Neo4jExport, error) {
	nodes, err := engine.AllNodes()
	if err != nil {
		return nil, err
	}
	edges, err := engine.AllEdges()
	if err != nil {
		return nil, err
	}
	return ToNeo4jExport(nodes, edges), nil
}

func copyProperties(props map[string]any) map[string]any {
	copied := make(map[string]any, len(props))
	for k, v := range props {
		copied[k] = v
	}
	return copied
}
