package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSocialGraph(t *testing.T) *MemoryEngine {
	t.Helper()
	engine := NewMemoryEngine()
	require.NoError(t, engine.BulkCreateNodes([]*Node{
		{ID: "n2", Labels: []string{"Person"}, Properties: map[string]any{"name": "Bob"}},
		{ID: "n1", Labels: []string{"Person", "Admin"}, Properties: map[string]any{"name": "Alice", "tags": []any{"a"}}},
		{ID: "n3", Labels: []string{"City"}, Properties: map[string]any{"name": "Berlin"}},
	}))
	require.NoError(t, engine.BulkCreateEdges([]*Edge{
		{ID: "e1", StartNode: "n1", EndNode: "n2", Type: "KNOWS", Properties: map[string]any{"since": int64(2020)}},
		{ID: "e2", StartNode: "n1", EndNode: "n3", Type: "LIVES_IN"},
	}))
	return engine
}

// =============================================================================
// Entity Tests
// =============================================================================

func TestMemoryEngine_Nodes(t *testing.T) {
	engine := NewMemoryEngine()
	defer engine.Close()

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, engine.CreateNode(&Node{ID: "a", Labels: []string{"User"}, Properties: map[string]any{"age": int64(30)}}))
		got, err := engine.GetNode("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"User"}, got.Labels)
		assert.Equal(t, int64(30), got.Properties["age"])
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := engine.CreateNode(&Node{ID: "a"})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("invalid input", func(t *testing.T) {
		assert.ErrorIs(t, engine.CreateNode(nil), ErrInvalidData)
		assert.ErrorIs(t, engine.CreateNode(&Node{}), ErrInvalidID)
		_, err := engine.GetNode("")
		assert.ErrorIs(t, err, ErrInvalidID)
	})

	t.Run("missing node", func(t *testing.T) {
		_, err := engine.GetNode("nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryEngine_Edges(t *testing.T) {
	engine := newSocialGraph(t)
	defer engine.Close()

	edges, err := engine.AllEdges()
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, EdgeID("e1"), edges[0].ID)
	assert.Equal(t, "KNOWS", edges[0].Type)

	err = engine.CreateEdge(&Edge{ID: "e3", StartNode: "n1", EndNode: "missing", Type: "X"})
	assert.ErrorIs(t, err, ErrInvalidEdge)
	err = engine.CreateEdge(&Edge{ID: "e1", StartNode: "n1", EndNode: "n2", Type: "X"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	t.Run("bulk edges need both endpoints", func(t *testing.T) {
		err := engine.BulkCreateEdges([]*Edge{
			{ID: "e4", StartNode: "n2", EndNode: "n3", Type: "VISITED"},
			{ID: "e5", StartNode: "n2", EndNode: "gone", Type: "VISITED"},
		})
		assert.ErrorIs(t, err, ErrInvalidEdge)
		count, _ := engine.EdgeCount()
		assert.Equal(t, int64(2), count)
	})
}

func TestMemoryEngine_BulkIsAtomic(t *testing.T) {
	engine := NewMemoryEngine()
	defer engine.Close()

	err := engine.BulkCreateNodes([]*Node{{ID: "x"}, {ID: "x"}})
	assert.ErrorIs(t, err, ErrAlreadyExists)
	count, _ := engine.NodeCount()
	assert.Equal(t, int64(0), count)

	err = engine.BulkCreateNodes([]*Node{{ID: "ok"}, nil})
	assert.ErrorIs(t, err, ErrInvalidData)
	count, _ = engine.NodeCount()
	assert.Equal(t, int64(0), count)
}

// =============================================================================
// Isolation Tests
// =============================================================================

func TestMemoryEngine_CopiesAreIndependent(t *testing.T) {
	engine := newSocialGraph(t)
	defer engine.Close()

	got, err := engine.GetNode("n1")
	require.NoError(t, err)
	got.Properties["name"] = "Mallory"
	got.Properties["tags"].([]any)[0] = "z"
	got.Labels[0] = "Robot"

	again, err := engine.GetNode("n1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Properties["name"])
	assert.Equal(t, []any{"a"}, again.Properties["tags"])
	assert.Equal(t, "Person", again.Labels[0])
}

func TestMemoryEngine_Clone(t *testing.T) {
	engine := newSocialGraph(t)
	defer engine.Close()

	clone, err := engine.Clone()
	require.NoError(t, err)
	require.NoError(t, clone.CreateNode(&Node{ID: "n4", Labels: []string{"City"}}))

	count, _ := engine.NodeCount()
	assert.Equal(t, int64(3), count)
	count, _ = clone.NodeCount()
	assert.Equal(t, int64(4), count)

	require.NoError(t, engine.Close())
	_, err = engine.Clone()
	assert.ErrorIs(t, err, ErrStorageClosed)
}

// =============================================================================
// Streaming Tests
// =============================================================================

func TestMemoryEngine_StreamNodesInIDOrder(t *testing.T) {
	engine := newSocialGraph(t)
	defer engine.Close()

	var ids []NodeID
	err := engine.StreamNodes(context.Background(), func(n *Node) error {
		ids = append(ids, n.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []NodeID{"n1", "n2", "n3"}, ids)

	stop := errors.New("stop")
	visited := 0
	err = engine.StreamEdges(context.Background(), func(*Edge) error {
		visited++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, visited)
}

func TestMemoryEngine_StreamHonorsCancellation(t *testing.T) {
	engine := newSocialGraph(t)
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := engine.StreamNodes(ctx, func(*Node) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryEngine_Closed(t *testing.T) {
	engine := NewMemoryEngine()
	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())

	assert.ErrorIs(t, engine.CreateNode(&Node{ID: "a"}), ErrStorageClosed)
	_, err := engine.AllNodes()
	assert.ErrorIs(t, err, ErrStorageClosed)
	_, err = engine.NodeCount()
	assert.ErrorIs(t, err, ErrStorageClosed)
}

// =============================================================================
// Neo4j Export Tests
// =============================================================================

func TestNeo4jExport_RoundTrip(t *testing.T) {
	engine := newSocialGraph(t)
	defer engine.Close()

	export, err := ExportEngine(engine)
	require.NoError(t, err)
	require.Len(t, export.Nodes, 3)
	assert.Equal(t, "n1", export.Nodes[0].ID)
	assert.Equal(t, "n1", export.Relationships[0].StartNode)

	loaded, err := LoadNeo4jExport(export)
	require.NoError(t, err)
	edges, err := loaded.AllEdges()
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, NodeID("n2"), edges[0].EndNode)
	assert.Equal(t, int64(2020), edges[0].Properties["since"])
}

func TestNeo4jExport_APOCFormat(t *testing.T) {
	raw := `{
		"nodes": [{"id": "1", "labels": ["A"], "properties": {}}, {"id": "2", "labels": ["B"], "properties": {}}],
		"relationships": [{"id": "r", "type": "T", "properties": {}, "start": {"id": "1"}, "end": {"id": "2"}}]
	}`
	var export Neo4jExport
	require.NoError(t, json.Unmarshal([]byte(raw), &export))

	_, edges := FromNeo4jExport(&export)
	require.Len(t, edges, 1)
	assert.Equal(t, NodeID("1"), edges[0].StartNode)
	assert.Equal(t, NodeID("2"), edges[0].EndNode)

	_, err := LoadNeo4jExport(&Neo4jExport{Relationships: export.Relationships})
	assert.ErrorIs(t, err, ErrInvalidEdge)
}
