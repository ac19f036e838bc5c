package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryEngine is a thread-safe in-memory property graph.
//
// It is the graph representation every NornicFed data source produces and
// accepts. Graphs handed to the catalog are never shared with a data source's
// internal state: sources Clone on the way in and on the way out.
//
// Graphs are built once (bulk import or decoding) and then read whole, so the
// engine keeps no secondary indexes. Reads return deep copies, and AllNodes,
// AllEdges and streaming visit entities in ID order.
//
// Thread Safety:
//
//	All public methods are thread-safe. Multiple goroutines can safely
//	call any method concurrently.
//
// Example:
//
//	engine := storage.NewMemoryEngine()
//	defer engine.Close()
//
//	engine.BulkCreateNodes([]*storage.Node{
//		{ID: "n1", Labels: []string{"Person"}, Properties: map[string]any{"name": "Alice"}},
//		{ID: "n2", Labels: []string{"Person"}, Properties: map[string]any{"name": "Bob"}},
//	})
//	engine.BulkCreateEdges([]*storage.Edge{
//		{ID: "e1", StartNode: "n1", EndNode: "n2", Type: "KNOWS"},
//	})
//
//	n, _ := engine.EdgeCount()
//	fmt.Printf("%d relationships\n", n)
type MemoryEngine struct {
	mu     sync.RWMutex
	nodes  map[NodeID]*Node
	edges  map[EdgeID]*Edge
	closed bool
}

var _ Engine = (*MemoryEngine)(nil)

// NewMemoryEngine creates an empty graph.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		nodes: make(map[NodeID]*Node),
		edges: make(map[EdgeID]*Edge),
	}
}

// CreateNode creates a new node in the graph.
//
// The node is deep-copied to prevent external mutations after storage.
//
// Returns:
//   - nil on success
//   - ErrInvalidData if node is nil
//   - ErrInvalidID if ID is empty
//   - ErrAlreadyExists if node with this ID exists
//   - ErrStorageClosed if engine is closed
func (m *MemoryEngine) CreateNode(node *Node) error {
	if node == nil {
		return ErrInvalidData
	}
	if node.ID == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	if _, exists := m.nodes[node.ID]; exists {
		return ErrAlreadyExists
	}

	m.insertNodeUnlocked(node)
	return nil
}

// GetNode retrieves a node by its unique ID.
//
// Example:
//
//	node, err := engine.GetNode("user-123")
//	if errors.Is(err, storage.ErrNotFound) {
//		fmt.Println("Node not found")
//	}
func (m *MemoryEngine) GetNode(id NodeID) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	node, exists := m.nodes[id]
	if !exists {
		return nil, ErrNotFound
	}

	return copyNode(node), nil
}

// CreateEdge creates a new edge. Both endpoints must already exist.
func (m *MemoryEngine) CreateEdge(edge *Edge) error {
	if edge == nil {
		return ErrInvalidData
	}
	if edge.ID == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	if _, exists := m.edges[edge.ID]; exists {
		return ErrAlreadyExists
	}
	if !m.hasEndpointsUnlocked(edge) {
		return ErrInvalidEdge
	}

	m.insertEdgeUnlocked(edge)
	return nil
}

// AllNodes returns copies of every node, in ID order.
func (m *MemoryEngine) AllNodes() ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	nodes := make([]*Node, 0, len(m.nodes))
	for _, node := range m.nodes {
		nodes = append(nodes, copyNode(node))
	}
	sortNodes(nodes)
	return nodes, nil
}

// AllEdges returns copies of every edge, in ID order.
func (m *MemoryEngine) AllEdges() ([]*Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	edges := make([]*Edge, 0, len(m.edges))
	for _, edge := range m.edges {
		edges = append(edges, copyEdge(edge))
	}
	sortEdges(edges)
	return edges, nil
}

// StreamNodes visits every node in ID order.
//
// The visitor runs without the engine lock held, so it may call back into the
// engine. Nodes created during the iteration are not visited.
func (m *MemoryEngine) StreamNodes(ctx context.Context, fn NodeVisitor) error {
	nodes, err := m.AllNodes()
	if err != nil {
		return err
	}

	for i, node := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(node); err != nil {
			return err
		}
		// Nil out the reference to allow GC
		nodes[i] = nil
	}
	return nil
}

// StreamEdges visits every edge in ID order.
func (m *MemoryEngine) StreamEdges(ctx context.Context, fn EdgeVisitor) error {
	edges, err := m.AllEdges()
	if err != nil {
		return err
	}

	for i, edge := range edges {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(edge); err != nil {
			return err
		}
		edges[i] = nil
	}
	return nil
}

// BulkCreateNodes creates multiple nodes in a single operation.
//
// All nodes are validated before any are inserted. If validation fails,
// no nodes are created.
//
// Returns:
//   - nil on success (all nodes created)
//   - ErrInvalidData if any node is nil
//   - ErrInvalidID if any ID is empty
//   - ErrAlreadyExists if any ID already exists or repeats within nodes
//   - ErrStorageClosed if engine is closed
func (m *MemoryEngine) BulkCreateNodes(nodes []*Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	seen := make(map[NodeID]struct{}, len(nodes))
	for _, node := range nodes {
		if node == nil {
			return ErrInvalidData
		}
		if node.ID == "" {
			return ErrInvalidID
		}
		if _, exists := m.nodes[node.ID]; exists {
			return ErrAlreadyExists
		}
		if _, dup := seen[node.ID]; dup {
			return ErrAlreadyExists
		}
		seen[node.ID] = struct{}{}
	}

	for _, node := range nodes {
		m.insertNodeUnlocked(node)
	}
	return nil
}

// BulkCreateEdges creates multiple edges in a single operation, all or nothing.
func (m *MemoryEngine) BulkCreateEdges(edges []*Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	seen := make(map[EdgeID]struct{}, len(edges))
	for _, edge := range edges {
		if edge == nil {
			return ErrInvalidData
		}
		if edge.ID == "" {
			return ErrInvalidID
		}
		if _, exists := m.edges[edge.ID]; exists {
			return ErrAlreadyExists
		}
		if _, dup := seen[edge.ID]; dup {
			return ErrAlreadyExists
		}
		if !m.hasEndpointsUnlocked(edge) {
			return ErrInvalidEdge
		}
		seen[edge.ID] = struct{}{}
	}

	for _, edge := range edges {
		m.insertEdgeUnlocked(edge)
	}
	return nil
}

// Clone returns an independent deep copy of the graph.
//
// Data sources clone graphs at their boundary so a graph returned from Graph
// can be mutated freely without affecting the stored copy.
func (m *MemoryEngine) Clone() (*MemoryEngine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	clone := NewMemoryEngine()
	for _, node := range m.nodes {
		clone.insertNodeUnlocked(node)
	}
	for _, edge := range m.edges {
		clone.insertEdgeUnlocked(edge)
	}
	return clone, nil
}

// Close closes the engine and releases all memory.
//
// After Close(), all subsequent operations will return ErrStorageClosed.
// This method is idempotent - calling Close() multiple times is safe.
func (m *MemoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.nodes = nil
	m.edges = nil

	return nil
}

// NodeCount returns the number of nodes.
func (m *MemoryEngine) NodeCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStorageClosed
	}

	return int64(len(m.nodes)), nil
}

// EdgeCount returns the number of edges.
func (m *MemoryEngine) EdgeCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStorageClosed
	}

	return int64(len(m.edges)), nil
}

// =============================================================================
// Unlocked helpers (caller holds m.mu)
// =============================================================================

func (m *MemoryEngine) insertNodeUnlocked(node *Node) {
	m.nodes[node.ID] = copyNode(node)
}

func (m *MemoryEngine) hasEndpointsUnlocked(edge *Edge) bool {
	_, start := m.nodes[edge.StartNode]
	_, end := m.nodes[edge.EndNode]
	return start && end
}

func (m *MemoryEngine) insertEdgeUnlocked(edge *Edge) {
	m.edges[edge.ID] = copyEdge(edge)
}

// copyNode creates a deep copy of a node. Nested list and map property values
// are copied too.
func copyNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{
		ID:         n.ID,
		Labels:     append([]string(nil), n.Labels...),
		Properties: deepCopyProperties(n.Properties),
	}
}

// copyEdge creates a deep copy of an edge.
func copyEdge(e *Edge) *Edge {
	if e == nil {
		return nil
	}
	return &Edge{
		ID:         e.ID,
		StartNode:  e.StartNode,
		EndNode:    e.EndNode,
		Type:       e.Type,
		Properties: deepCopyProperties(e.Properties),
	}
}

func deepCopyProperties(props map[string]any) map[string]any {
	copied := make(map[string]any, len(props))
	for k, v := range props {
		copied[k] = deepCopyValue(v)
	}
	return copied
}

func deepCopyValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopyValue(e)
		}
		return out
	case map[string]any:
		return deepCopyProperties(x)
	default:
		return v
	}
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
}
