package schema

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicfed/pkg/storage"
	"github.com/orneryd/nornicfed/pkg/types"
)

func socialGraph(t *testing.T) *storage.MemoryEngine {
	t.Helper()
	g := storage.NewMemoryEngine()
	require.NoError(t, g.BulkCreateNodes([]*storage.Node{
		{ID: "p1", Labels: []string{"Person"}, Properties: map[string]any{"name": "Alice", "age": int64(30)}},
		{ID: "p2", Labels: []string{"Person"}, Properties: map[string]any{"name": "Bob", "age": 41.5}},
		{ID: "p3", Labels: []string{"Person"}, Properties: map[string]any{"name": "Carol"}},
		{ID: "a1", Labels: []string{"Person", "Admin"}, Properties: map[string]any{"name": "Dave", "level": int64(3)}},
		{ID: "c1", Labels: []string{"City"}, Properties: map[string]any{"name": "Berlin", "population": int64(3600000), "tags": []any{"capital"}}},
		{ID: "x1"},
	}))
	require.NoError(t, g.BulkCreateEdges([]*storage.Edge{
		{ID: "e1", StartNode: "p1", EndNode: "p2", Type: "KNOWS", Properties: map[string]any{"since": int64(2020)}},
		{ID: "e2", StartNode: "p2", EndNode: "p3", Type: "KNOWS", Properties: map[string]any{"since": int64(2021), "weight": 0.5}},
		{ID: "e3", StartNode: "p1", EndNode: "c1", Type: "LIVES_IN"},
	}))
	return g
}

// =============================================================================
// Derivation Tests
// =============================================================================

func TestFromGraph(t *testing.T) {
	g := socialGraph(t)
	defer g.Close()

	s, err := FromGraph(context.Background(), g)
	require.NoError(t, err)

	person := s.Nodes["Person"]
	require.NotNil(t, person)
	assert.True(t, person["name"].Equal(types.String))
	assert.True(t, person["age"].Equal(types.Number.Nullable()), "age: %s", person["age"])

	knows := s.Relationships["KNOWS"]
	assert.True(t, knows["since"].Equal(types.Integer))
	assert.True(t, knows["weight"].Equal(types.Float.Nullable()))

	assert.Contains(t, s.Nodes, "")
	assert.Empty(t, s.Nodes[""])
	assert.Equal(t, []string{"Admin", "City", "Person"}, s.Labels())
	assert.Equal(t, []string{"KNOWS", "LIVES_IN"}, s.RelationshipTypes())
}

func TestFromGraph_Golden(t *testing.T) {
	g := socialGraph(t)
	defer g.Close()

	s, err := FromGraph(context.Background(), g)
	require.NoError(t, err)

	gold := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	gold.Assert(t, "social", []byte(s.String()))
}

func TestFromGraph_NullPropertyIsNullable(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.ObserveNode([]string{"A"}, map[string]any{"x": nil}))
	require.NoError(t, b.ObserveNode([]string{"A"}, map[string]any{"x": "s"}))
	s := b.Build()
	assert.Equal(t, "STRING?", s.Nodes["A"]["x"].String())
}

func TestFromGraph_UnsupportedProperty(t *testing.T) {
	b := NewBuilder()
	err := b.ObserveNode([]string{"A"}, map[string]any{"bad": struct{}{}})
	assert.Error(t, err)
}

func TestFromGraph_Cancelled(t *testing.T) {
	g := socialGraph(t)
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FromGraph(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Query Tests
// =============================================================================

func TestNodeKeys(t *testing.T) {
	g := socialGraph(t)
	defer g.Close()
	s, err := FromGraph(context.Background(), g)
	require.NoError(t, err)

	t.Run("single label merges combinations", func(t *testing.T) {
		keys := s.NodeKeys("Person")
		assert.Equal(t, []string{"age", "level", "name"}, keys.Keys())
		assert.Equal(t, "STRING", keys["name"].String())
		assert.Equal(t, "NUMBER?", keys["age"].String())
		assert.Equal(t, "INTEGER?", keys["level"].String())
	})

	t.Run("exact combination in any order", func(t *testing.T) {
		keys := s.NodeKeys("Person", "Admin")
		assert.Equal(t, []string{"level", "name"}, keys.Keys())
		assert.Equal(t, "INTEGER", keys["level"].String())
	})

	t.Run("unknown label", func(t *testing.T) {
		assert.Nil(t, s.NodeKeys("Nope"))
	})

	t.Run("relationship keys", func(t *testing.T) {
		assert.Equal(t, []string{"since", "weight"}, s.RelationshipKeys("KNOWS").Keys())
		assert.Empty(t, s.RelationshipKeys("LIVES_IN"))
		assert.Nil(t, s.RelationshipKeys("NOPE"))
	})
}

func TestLabelKey(t *testing.T) {
	assert.Equal(t, "A:B", LabelKey("B", "A", "B"))
	assert.Equal(t, "", LabelKey())
	assert.Equal(t, []string{"A", "B"}, SplitLabelKey("A:B"))
	assert.Nil(t, SplitLabelKey(""))
}

// =============================================================================
// Union / Fingerprint Tests
// =============================================================================

func TestUnion(t *testing.T) {
	a := New()
	a.SetNodeProperty([]string{"Person"}, "name", types.String)
	a.SetNodeProperty([]string{"Person"}, "age", types.Integer)
	a.SetRelationshipProperty("KNOWS", "since", types.Integer)

	b := New()
	b.SetNodeProperty([]string{"Person"}, "name", types.String)
	b.SetNodeProperty([]string{"Person"}, "age", types.Float)
	b.SetNodeProperty([]string{"Person"}, "email", types.String)
	b.AddLabelCombination("City")

	u := a.Union(b)
	person := u.Nodes["Person"]
	assert.Equal(t, "NUMBER", person["age"].String())
	assert.Equal(t, "STRING", person["name"].String())
	assert.Equal(t, "STRING?", person["email"].String())
	assert.Contains(t, u.Nodes, "City")
	assert.Equal(t, "INTEGER", u.Relationships["KNOWS"]["since"].String())

	// inputs untouched
	assert.Equal(t, "INTEGER", a.Nodes["Person"]["age"].String())
	assert.NotContains(t, a.Nodes, "City")

	assert.True(t, a.Union(nil).Equal(a))
	assert.True(t, a.Union(a).Equal(a))
}

func TestFingerprint(t *testing.T) {
	a := New()
	a.SetNodeProperty([]string{"A"}, "x", types.Integer)
	b := New()
	b.SetNodeProperty([]string{"A"}, "x", types.Integer)

	assert.Len(t, a.Fingerprint(), 64)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.SetNodeProperty([]string{"A"}, "x", types.Integer.Nullable())
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, "(empty schema)\n", New().String())
}

// =============================================================================
// YAML Tests
// =============================================================================

func TestYAMLRoundTrip(t *testing.T) {
	g := socialGraph(t)
	defer g.Close()
	s, err := FromGraph(context.Background(), g)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "social.schema.yaml")
	require.NoError(t, s.WriteFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, s.Equal(loaded), "got:\n%s", loaded)
}

func TestParseYAML(t *testing.T) {
	s, err := ParseYAML([]byte(`
nodes:
  Person:Admin:
    name: STRING
    tags: list<string>?
relationships:
  KNOWS: {}
`))
	require.NoError(t, err)
	assert.Equal(t, "LIST<STRING>?", s.NodeKeys("Admin")["tags"].String())
	assert.Contains(t, s.Nodes, "Admin:Person")
	assert.Equal(t, []string{"KNOWS"}, s.RelationshipTypes())

	_, err = ParseYAML([]byte("nodes:\n  A:\n    x: POINT\n"))
	assert.Error(t, err)
}
