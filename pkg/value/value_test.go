package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicfed/pkg/storage"
	"github.com/orneryd/nornicfed/pkg/types"
)

var (
	n1  = Node{ID: "n1", Labels: []string{"Person"}}
	n1b = Node{ID: "n1", Labels: []string{"Robot"}, Properties: map[string]Value{"x": Integer(1)}}
	n2  = Node{ID: "n2", Labels: []string{"Person"}}
	r1  = Relationship{ID: "r1", Type: "KNOWS", StartID: "n1", EndID: "n2"}
	r2  = Relationship{ID: "r2", Type: "KNOWS", StartID: "n2", EndID: "n1"}
)

// samples covers every variant, the numeric edge cases and nested composites.
var samples = []Value{
	Null,
	Integer(0), Integer(1), Integer(-1), Integer(math.MaxInt64), Integer(math.MinInt64),
	Integer(1 << 53), Integer(1<<53 + 1),
	Float(0), Float(math.Copysign(0, -1)), Float(1), Float(1.5), Float(-2.5),
	Float(1 << 53), Float(math.Inf(1)), Float(math.Inf(-1)), Float(math.NaN()), Float(9.3e18),
	Boolean(false), Boolean(true),
	String(""), String("a"), String("ab"), String("b"), String("é"), String("Z"),
	n1, n1b, n2,
	r1, r2,
	Path{Nodes: []Node{n1}},
	Path{Nodes: []Node{n1, n2}, Relationships: []Relationship{r1}},
	Path{Nodes: []Node{n2, n1}, Relationships: []Relationship{r2}},
	List{}, List{Integer(1)}, List{Float(1)}, List{Integer(1), Integer(2)}, List{String("a")},
	List{Integer(1), String("a")}, List{List{Integer(1)}, Integer(2)}, List{Map{"a": Integer(1)}},
	List{Null}, List{Integer(1), Null},
	Map{}, Map{"a": Integer(1)}, Map{"a": Float(1)}, Map{"a": Integer(2)}, Map{"b": Integer(1)},
	Map{"a": Integer(1), "b": Integer(2)}, Map{"a": String("x")}, Map{"a": List{Integer(1)}},
	Map{"a": Null},
}

// =============================================================================
// Relation Laws
// =============================================================================

func TestRelations_Reflexive(t *testing.T) {
	for _, v := range samples {
		if ContainsNull(v) {
			assert.Equal(t, None, Compare(v, v), "%s", v)
			assert.Equal(t, Unknown, Equal(v, v), "%s", v)
		} else {
			assert.Equal(t, Some(0), Compare(v, v), "%s", v)
			assert.Equal(t, True, Equal(v, v), "%s", v)
		}
		assert.Equal(t, 0, Order(v, v), "%s", v)
	}
}

func TestRelations_NullAbsorbs(t *testing.T) {
	for _, v := range samples {
		if !ContainsNull(v) {
			continue
		}
		for _, x := range samples {
			assert.Equal(t, None, Compare(v, x), "%s vs %s", v, x)
			assert.Equal(t, None, Compare(x, v), "%s vs %s", x, v)
			assert.Equal(t, Unknown, Equal(v, x), "%s vs %s", v, x)
			assert.Equal(t, Unknown, Equal(x, v), "%s vs %s", x, v)
		}
	}
}

func TestRelations_Antisymmetric(t *testing.T) {
	for _, a := range samples {
		for _, b := range samples {
			assert.Equal(t, Compare(a, b).Reverse(), Compare(b, a), "Compare %s, %s", a, b)
			assert.Equal(t, -Order(a, b), Order(b, a), "Order %s, %s", a, b)
			assert.Equal(t, Equal(a, b), Equal(b, a), "Equal %s, %s", a, b)
		}
	}
}

func TestRelations_Agree(t *testing.T) {
	for _, a := range samples {
		for _, b := range samples {
			order := Order(a, b)
			if c, ok := Compare(a, b).Get(); ok {
				assert.Equal(t, c, order, "Compare and Order disagree on %s, %s", a, b)
			}
			if !ContainsNull(a) && !ContainsNull(b) {
				assert.Equal(t, order == 0, Equal(a, b) == True, "Equal and Order disagree on %s, %s", a, b)
			}
		}
	}
}

func TestOrder_Transitive(t *testing.T) {
	for _, a := range samples {
		for _, b := range samples {
			ab := Order(a, b)
			for _, c := range samples {
				bc := Order(b, c)
				ac := Order(a, c)
				if ab <= 0 && bc <= 0 {
					assert.LessOrEqual(t, ac, 0, "%s <= %s <= %s", a, b, c)
				}
				if ab == 0 && bc == 0 {
					assert.Equal(t, 0, ac, "%s == %s == %s", a, b, c)
				}
			}
		}
	}
}

// =============================================================================
// Scenario Tests
// =============================================================================

func TestIntegerAndFloatAreEquivalent(t *testing.T) {
	a, b := Integer(4), Float(4.0)
	assert.Equal(t, Some(0), Compare(a, b))
	assert.Equal(t, 0, Order(a, b))
	assert.Equal(t, True, Equal(a, b))
}

func TestNodeAndRelationshipAreIncomparable(t *testing.T) {
	assert.Equal(t, None, Compare(n1, r1))
	assert.Equal(t, False, Equal(n1, r1))
	for i := 0; i < 3; i++ {
		assert.Equal(t, -1, Order(n1, r1))
		assert.Equal(t, 1, Order(r1, n1))
	}
}

func TestOrder_GroupPrecedence(t *testing.T) {
	ranked := []Value{
		Map{"z": Integer(1)},
		List{Integer(1)},
		String("a"),
		Boolean(true),
		Integer(1),
		n1,
		r1,
		Path{Nodes: []Node{n1}},
		Null,
	}
	for i := 0; i < len(ranked)-1; i++ {
		for j := i + 1; j < len(ranked); j++ {
			assert.Equal(t, -1, Order(ranked[i], ranked[j]), "%s < %s", ranked[i], ranked[j])
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want Comparison
	}{
		{"integers", Integer(1), Integer(2), Some(-1)},
		{"integer above float", Integer(3), Float(2.5), Some(1)},
		{"exact beyond float precision", Integer(1<<53 + 1), Float(1 << 53), Some(1)},
		{"max int below 2^63", Integer(math.MaxInt64), Float(9.223372036854775807e18), Some(-1)},
		{"negative zero", Float(math.Copysign(0, -1)), Integer(0), Some(0)},
		{"NaN above infinity", Float(math.NaN()), Float(math.Inf(1)), Some(1)},
		{"strings by code point", String("Z"), String("a"), Some(-1)},
		{"prefix first", String("a"), String("ab"), Some(-1)},
		{"booleans", Boolean(false), Boolean(true), Some(-1)},
		{"nodes by identity", n1, n2, Some(-1)},
		{"same identity", n1, n1b, Some(0)},
		{"lists lexicographic", List{Integer(1), Integer(2)}, List{Integer(1), Integer(3)}, Some(-1)},
		{"shorter list first", List{Integer(1)}, List{Integer(1), Integer(2)}, Some(-1)},
		{"incomparable elements", List{String("a")}, List{Integer(1)}, None},
		{"maps with same keys", Map{"a": Integer(1)}, Map{"a": Integer(2)}, Some(-1)},
		{"maps with different keys", Map{"a": Integer(1)}, Map{"b": Integer(1)}, None},
		{"paths", Path{Nodes: []Node{n1}}, Path{Nodes: []Node{n1, n2}, Relationships: []Relationship{r1}}, Some(-1)},
		{"different groups", String("1"), Integer(1), None},
		{"null", Null, Null, None},
		{"nested null", List{Integer(1), Null}, List{Integer(2)}, None},
		{"nil is null", nil, Integer(1), None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want Truth
	}{
		{"numbers", Integer(1), Float(1), True},
		{"different numbers", Integer(1), Float(1.5), False},
		{"nodes by identity", n1, n1b, True},
		{"different nodes", n1, n2, False},
		{"lists", List{Integer(1), Float(2)}, List{Float(1), Integer(2)}, True},
		{"list lengths", List{Integer(1)}, List{Integer(1), Integer(1)}, False},
		{"maps", Map{"a": Integer(1)}, Map{"a": Float(1)}, True},
		{"map keys", Map{"a": Integer(1)}, Map{"b": Integer(1)}, False},
		{"different groups", String("true"), Boolean(true), False},
		{"null", Null, Integer(1), Unknown},
		{"null inside list", List{Null}, List{Null}, Unknown},
		{"null inside map", Map{"a": Null}, Map{"b": Integer(1)}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

// =============================================================================
// Truth / Comparison Tests
// =============================================================================

func TestTruthLogic(t *testing.T) {
	all := []Truth{True, False, Unknown}
	for _, a := range all {
		assert.Equal(t, a, a.Not().Not())
		for _, b := range all {
			assert.Equal(t, a.And(b).Not(), a.Not().Or(b.Not()), "De Morgan %s %s", a, b)
		}
	}
	assert.Equal(t, False, Unknown.And(False))
	assert.Equal(t, True, Unknown.Or(True))
	assert.Equal(t, Unknown, Unknown.And(True))
	assert.False(t, Unknown.IsTrue())
	assert.Equal(t, Null, Unknown.Value())
	assert.Equal(t, Boolean(true), True.Value())

	var zero Truth
	assert.Equal(t, Unknown, zero)
}

func TestComparisonOperators(t *testing.T) {
	lt := Compare(Integer(1), Integer(2))
	assert.Equal(t, True, lt.Less())
	assert.Equal(t, True, lt.LessOrEqual())
	assert.Equal(t, False, lt.Greater())
	assert.Equal(t, False, lt.GreaterOrEqual())
	assert.Equal(t, Unknown, None.Less())
	assert.Equal(t, "Some(-1)", lt.String())
	assert.Equal(t, "None", None.String())
}

// =============================================================================
// Sort / Distinct Tests
// =============================================================================

func TestSort(t *testing.T) {
	values := []Value{Null, Integer(2), String("b"), Float(1.5), Map{}, Boolean(false), List{}, Float(math.NaN()), Integer(1)}
	Sort(values)

	want := []Value{Map{}, List{}, String("b"), Boolean(false), Integer(1), Float(1.5), Integer(2), Float(math.NaN()), Null}
	require.Len(t, values, len(want))
	for i := range want {
		assert.Equal(t, 0, Order(want[i], values[i]), "position %d: got %s want %s", i, values[i], want[i])
	}
}

func TestSort_Stable(t *testing.T) {
	values := []Value{Float(4), Integer(4), Integer(3)}
	Sort(values)
	assert.Equal(t, []Value{Integer(3), Float(4), Integer(4)}, values)
}

func TestDistinct(t *testing.T) {
	values := []Value{Integer(1), Float(1), Null, String("a"), Null, Integer(1), n1, n1b}
	got := Distinct(values)
	assert.Equal(t, []Value{Integer(1), Null, String("a"), n1}, got)

	assert.Empty(t, Distinct(nil))
	single := []Value{Integer(7)}
	assert.Equal(t, single, Distinct(single))
}

// =============================================================================
// Type and Rendering Tests
// =============================================================================

func TestCypherType(t *testing.T) {
	assert.True(t, Integer(1).CypherType().Equal(types.Integer))
	assert.True(t, Null.CypherType().Equal(types.Null))
	assert.True(t, r1.CypherType().Equal(types.Relationship))
	assert.Equal(t, "LIST<NULL>", List{}.CypherType().String())
	assert.Equal(t, "LIST<NUMBER?>", List{Integer(1), Float(2), Null}.CypherType().String())
	assert.Equal(t, "LIST<ANY>", List{Integer(1), String("a")}.CypherType().String())
	assert.True(t, TypeOf(nil).Equal(types.Null))
}

func TestString(t *testing.T) {
	assert.Equal(t, "null", Null.String())
	assert.Equal(t, "1.0", Float(1).String())
	assert.Equal(t, "1.5", Float(1.5).String())
	assert.Equal(t, "NaN", Float(math.NaN()).String())
	assert.Equal(t, `'it\'s'`, String("it's").String())
	assert.Equal(t, "[1, 'a', null]", List{Integer(1), String("a"), Null}.String())
	assert.Equal(t, "{a: 1, b: [true]}", Map{"b": List{Boolean(true)}, "a": Integer(1)}.String())
	assert.Equal(t, "(n1:Robot {x: 1})", n1b.String())
	assert.Equal(t, "<(n1:Person)-[r1:KNOWS]->(n2:Person)>", Path{Nodes: []Node{n1, n2}, Relationships: []Relationship{r1}}.String())
}

// =============================================================================
// Bridge Tests
// =============================================================================

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null},
		{"int", 42, Integer(42)},
		{"uint8", uint8(7), Integer(7)},
		{"float32", float32(0.5), Float(0.5)},
		{"json integer", json.Number("12"), Integer(12)},
		{"json float", json.Number("1.25"), Float(1.25)},
		{"bytes", []byte("hi"), String("hi")},
		{"strings", []string{"a", "b"}, List{String("a"), String("b")}},
		{"nested", map[string]any{"xs": []any{1, nil}}, Map{"xs": List{Integer(1), Null}}},
		{"value passthrough", Boolean(true), Boolean(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAny_Unsupported(t *testing.T) {
	for _, in := range []any{
		struct{}{},
		make(chan int),
		uint64(math.MaxUint64),
		map[int]any{1: "x"},
		[]any{1, struct{}{}},
	} {
		_, err := FromAny(in)
		assert.ErrorIs(t, err, ErrUnsupportedValue, "%T", in)
	}
	assert.Panics(t, func() { MustFromAny(func() {}) })
}

func TestToAny(t *testing.T) {
	v := Map{"n": Integer(1), "xs": List{Float(2), Null, String("s")}}
	assert.Equal(t, map[string]any{"n": int64(1), "xs": []any{2.0, nil, "s"}}, ToAny(v))

	back, err := FromAny(ToAny(v))
	require.NoError(t, err)
	assert.Equal(t, 0, Order(v, back))

	node := ToAny(n1).(map[string]any)
	assert.Equal(t, "n1", node["_id"])
}

func TestFromNodeAndEdge(t *testing.T) {
	node, err := FromNode(&storage.Node{ID: "a", Labels: []string{"L"}, Properties: map[string]any{"age": int64(3)}})
	require.NoError(t, err)
	assert.Equal(t, ID("a"), node.ID)
	assert.Equal(t, Integer(3), node.Properties["age"])

	rel, err := FromEdge(&storage.Edge{ID: "e", StartNode: "a", EndNode: "b", Type: "T", Properties: map[string]any{"w": 0.5}})
	require.NoError(t, err)
	assert.Equal(t, "T", rel.Type)
	assert.Equal(t, ID("b"), rel.EndID)
	assert.Equal(t, Float(0.5), rel.Properties["w"])

	_, err = FromNode(&storage.Node{ID: "bad", Properties: map[string]any{"c": make(chan int)}})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}
