package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicfed/pkg/value"
)

// =============================================================================
// Dependencies Tests
// =============================================================================

func TestDependencies(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want []Var
	}{
		{"equals", NewEquals(Var("a"), Var("b")), []Var{"a", "b"}},
		{"property", NewProperty(Var("n"), "age"), []Var{"n"}},
		{"ands with label", NewAnds(NewEquals(Var("a"), Var("b")), NewHasLabel(Var("c"), "Person")), []Var{"a", "b", "c"}},
		{"literal", NewLiteral(value.Integer(5)), []Var{}},
		{"param", Param("limit"), []Var{}},
		{"repeated variable", NewEquals(Var("a"), NewProperty(Var("a"), "x")), []Var{"a"}},
		{"not", NewNot(NewIsNull(NewProperty(Var("n"), "x"))), []Var{"n"}},
		{"compare", NewCompare(LessThan, NewProperty(Var("n"), "age"), Param("min")), []Var{"n"}},
		{"start and end node", NewEquals(NewStartNode(Var("r")), NewEndNode(Var("s"))), []Var{"r", "s"}},
		{"id", NewEquals(NewID(Var("n")), NewLiteral(value.Integer(1))), []Var{"n"}},
		{"has type", NewHasType(Var("r"), "KNOWS"), []Var{"r"}},
		{"ors", NewOrs(Var("x"), NewLiteral(value.Boolean(true)), Var("y")), []Var{"x", "y"}},
		{"empty ands", NewAnds(), []Var{}},
		{"list literal", NewListLit(Var("a"), NewLiteral(value.Null)), []Var{"a"}},
		{"map literal", NewMapLit(MapEntry{Key: "k", Value: Var("v")}, MapEntry{Key: "w", Value: Param("p")}), []Var{"v"}},
		{"function call", NewFunctionCall("coalesce", NewProperty(Var("a"), "x"), Var("b")), []Var{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dependencies(tt.expr)
			assert.Equal(t, tt.want, got.Sorted())
		})
	}
}

func TestDependencies_MetadataContributesNothing(t *testing.T) {
	// Names that look like variables must not leak into the result.
	e := NewAnds(
		NewHasLabel(Var("n"), "m"),
		NewHasType(Var("r"), "n2"),
		NewProperty(Var("n"), "r2"),
		NewFunctionCall("x", Var("n")),
	)
	assert.Equal(t, []Var{"n", "r"}, Dependencies(e).Sorted())
}

func TestDependencies_DeepNesting(t *testing.T) {
	const depth = 1_000_000

	var e Expr = Var("leaf")
	for i := 0; i < depth; i++ {
		if i%2 == 0 {
			e = NewNot(e)
		} else {
			e = NewAnds(e, NewLiteral(value.Boolean(true)))
		}
	}

	deps := Dependencies(e)
	assert.Equal(t, []Var{"leaf"}, deps.Sorted())
}

// sampleExprs has one expression of every kind.
var sampleExprs = map[Kind]Expr{
	KindVar:          Var("a"),
	KindParam:        Param("p"),
	KindLiteral:      NewLiteral(value.String("s")),
	KindEquals:       NewEquals(Var("a"), Var("b")),
	KindNot:          NewNot(Var("a")),
	KindIsNull:       NewIsNull(Var("a")),
	KindCompare:      NewCompare(GreaterThanOrEqual, Var("a"), Var("b")),
	KindStartNode:    NewStartNode(Var("r")),
	KindEndNode:      NewEndNode(Var("r")),
	KindID:           NewID(Var("n")),
	KindHasLabel:     NewHasLabel(Var("n"), "L"),
	KindHasType:      NewHasType(Var("r"), "T"),
	KindProperty:     NewProperty(Var("n"), "k"),
	KindAnds:         NewAnds(Var("a")),
	KindOrs:          NewOrs(Var("a")),
	KindListLit:      NewListLit(Var("a")),
	KindMapLit:       NewMapLit(MapEntry{Key: "k", Value: Var("a")}),
	KindFunctionCall: NewFunctionCall("f", Var("a")),
}

func TestDependencies_HandlesEveryKind(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			e, ok := sampleExprs[k]
			require.True(t, ok, "no sample expression for kind %s", k)
			assert.Equal(t, k, e.Kind())
			assert.NotPanics(t, func() { Dependencies(e) })
		})
	}
	assert.Len(t, sampleExprs, len(Kinds()))
}

func TestDependencies_NilPanics(t *testing.T) {
	assert.Panics(t, func() { Dependencies(NewNot(nil)) })
}

// =============================================================================
// VarSet / Rendering Tests
// =============================================================================

func TestVarSet(t *testing.T) {
	s := NewVarSet("a", "b")
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))
	assert.True(t, NewVarSet("a").SubsetOf(s))
	assert.False(t, NewVarSet("a", "c").SubsetOf(s))
	assert.True(t, NewVarSet().SubsetOf(s))
}

func TestString(t *testing.T) {
	e := NewAnds(
		NewCompare(LessThan, NewProperty(Var("n"), "age"), Param("max")),
		NewHasLabel(Var("n"), "Person"),
		NewNot(NewIsNull(NewFunctionCall("id", Var("m")))),
	)
	assert.Equal(t, "(n.age < $max) AND (n:Person) AND (NOT (id(m) IS NULL))", e.String())
	assert.Equal(t, "true", NewAnds().String())
	assert.Equal(t, "false", NewOrs().String())
	assert.Equal(t, "{k: [1, 'x']}", NewMapLit(MapEntry{Key: "k", Value: NewListLit(NewLiteral(value.Integer(1)), NewLiteral(value.String("x")))}).String())
}

func TestCompareOpApply(t *testing.T) {
	one, two := value.Integer(1), value.Float(2)
	assert.Equal(t, value.True, LessThan.Apply(one, two))
	assert.Equal(t, value.False, GreaterThan.Apply(one, two))
	assert.Equal(t, value.True, LessThanOrEqual.Apply(one, value.Float(1)))
	assert.Equal(t, value.Unknown, GreaterThanOrEqual.Apply(one, value.Null))
	assert.Equal(t, value.Unknown, LessThan.Apply(one, value.String("1")))
}
