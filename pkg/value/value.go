// Package value provides the runtime value model for NornicFed.
//
// A Value is one of a closed set of variants mirroring the type lattice in
// pkg/types: Null, Integer, Float, Boolean, String, Node, Relationship, Path,
// List and Map. Three relations are defined over values:
//
//   - Equal: three-valued equality (True, False, Unknown), used by WHERE filters.
//   - Compare: partial ordering (Some(c) or None), used by <, <=, >, >=.
//   - Order: total ordering, used by ORDER BY, DISTINCT and GROUP BY.
//
// The three relations never disagree: when Compare is defined its sign matches
// Order, and Equal is True exactly when Order reports 0 for null-free operands.
//
// Example Usage:
//
//	a := value.Integer(4)
//	b := value.Float(4.0)
//
//	value.Equal(a, b)   // True
//	value.Compare(a, b) // Some(0)
//	value.Order(a, b)   // 0
//
//	value.Equal(a, value.Null) // Unknown
//
// ELI12:
//
// Imagine sorting a messy drawer. Some things you can compare directly (3 is
// less than 5), some you can't ("is a sock less than a spoon?"). Compare says
// "I don't know" for socks vs spoons. Order still has to put everything in a
// line, so it uses a fixed rule: all the maps first, then lists, then strings,
// and so on, with null always at the very end.
//
// Thread Safety:
//
//	Values are immutable once constructed and all functions in this package are
//	pure. They are safe for concurrent use.
package value

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/orneryd/nornicfed/pkg/types"
)

// Kind identifies the concrete variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindString
	KindNode
	KindRelationship
	KindPath
	KindList
	KindMap
)

var kindNames = [...]string{
	KindNull:         "Null",
	KindInteger:      "Integer",
	KindFloat:        "Float",
	KindBoolean:      "Boolean",
	KindString:       "String",
	KindNode:         "Node",
	KindRelationship: "Relationship",
	KindPath:         "Path",
	KindList:         "List",
	KindMap:          "Map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a Cypher runtime value. The set of implementations is closed.
type Value interface {
	Kind() Kind
	// CypherType returns the most specific lattice type describing the value.
	CypherType() types.CypherType
	// String renders the value as a Cypher literal.
	String() string

	isValue()
}

// ID is the identity of a node or relationship. IDs are opaque and scoped to
// the data source that produced them.
type ID string

type nullValue struct{}

// Null is the single null value.
var Null Value = nullValue{}

func (nullValue) Kind() Kind { return KindNull }
func (nullValue) CypherType() types.CypherType { return types.Null }
func (nullValue) String() string { return "null" }
func (nullValue) isValue() {}

// Integer is a 64-bit signed integer.
type Integer int64

func (Integer) Kind() Kind { return KindInteger }
func (Integer) CypherType() types.CypherType { return types.Integer }
func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }
func (Integer) isValue() {}

// Float is a 64-bit IEEE 754 floating point number.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) CypherType() types.CypherType { return types.Float }
func (f Float) String() string {
	x := float64(f)
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(x, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
func (Float) isValue() {}

// Boolean is true or false.
type Boolean bool

func (Boolean) Kind() Kind { return KindBoolean }
func (Boolean) CypherType() types.CypherType { return types.Boolean }
func (b Boolean) String() string { return strconv.FormatBool(bool(b)) }
func (Boolean) isValue() {}

// String is a UTF-8 string.
type String string

func (String) Kind() Kind { return KindString }
func (String) CypherType() types.CypherType { return types.String }
func (s String) String() string { return quote(string(s)) }
func (String) isValue() {}

// Node is a graph node. Two nodes are equal iff their IDs are equal; labels and
// properties are carried along for the evaluator but never compared.
type Node struct {
	ID         ID
	Labels     []string
	Properties map[string]Value
}

func (Node) Kind() Kind { return KindNode }
func (Node) CypherType() types.CypherType { return types.Node }
func (n Node) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(string(n.ID))
	for _, l := range n.Labels {
		sb.WriteByte(':')
		sb.WriteString(l)
	}
	if len(n.Properties) > 0 {
		sb.WriteByte(' ')
		writeProperties(&sb, n.Properties)
	}
	sb.WriteByte(')')
	return sb.String()
}
func (Node) isValue() {}

// Relationship is a directed, typed graph relationship. Identity semantics
// match Node.
type Relationship struct {
	ID         ID
	Type       string
	StartID    ID
	EndID      ID
	Properties map[string]Value
}

func (Relationship) Kind() Kind { return KindRelationship }
func (Relationship) CypherType() types.CypherType { return types.Relationship }

func (r Relationship) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(string(r.ID))
	sb.WriteByte(':')
	sb.WriteString(r.Type)
	if len(r.Properties) > 0 {
		sb.WriteByte(' ')
		writeProperties(&sb, r.Properties)
	}
	sb.WriteString("]")
	return sb.String()
}
func (Relationship) isValue() {}

// Path is an alternating sequence node, relationship, node, ..., node.
// len(Nodes) == len(Relationships)+1 for a well-formed path.
type Path struct {
	Nodes         []Node
	Relationships []Relationship
}

func (Path) Kind() Kind { return KindPath }
func (Path) CypherType() types.CypherType { return types.Path }
func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString("<")
	for i, n := range p.Nodes {
		if i > 0 && i-1 < len(p.Relationships) {
			sb.WriteString("-")
			sb.WriteString(p.Relationships[i-1].String())
			sb.WriteString("->")
		}
		sb.WriteString(n.String())
	}
	sb.WriteString(">")
	return sb.String()
}
func (Path) isValue() {}

// identities returns the interleaved node and relationship IDs of the path.
func (p Path) identities() []ID {
	ids := make([]ID, 0, len(p.Nodes)+len(p.Relationships))
	for i, n := range p.Nodes {
		if i > 0 && i-1 < len(p.Relationships) {
			ids = append(ids, p.Relationships[i-1].ID)
		}
		ids = append(ids, n.ID)
	}
	return ids
}

// List is an ordered sequence of values.
type List []Value

func (List) Kind() Kind { return KindList }

// CypherType joins the element types. The empty list is LIST<NULL>.
func (l List) CypherType() types.CypherType {
	if len(l) == 0 {
		return types.ListOf(types.Null)
	}
	elem := typeOf(l[0])
	for _, v := range l[1:] {
		elem = types.Join(elem, typeOf(v))
	}
	return types.ListOf(elem)
}

func (l List) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range l {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(stringOf(v))
	}
	sb.WriteByte(']')
	return sb.String()
}
func (List) isValue() {}

// Map is a string-keyed map of values.
type Map map[string]Value

func (Map) Kind() Kind { return KindMap }
func (Map) CypherType() types.CypherType { return types.Map }
func (m Map) String() string {
	var sb strings.Builder
	writeProperties(&sb, m)
	return sb.String()
}
func (Map) isValue() {}

// sortedKeys returns the keys of m in ascending code point order.
func (m Map) sortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TypeOf returns the CypherType of v. A nil Value is treated as Null.
func TypeOf(v Value) types.CypherType {
	return typeOf(v)
}

func typeOf(v Value) types.CypherType {
	if v == nil {
		return types.Null
	}
	return v.CypherType()
}

func stringOf(v Value) string {
	if v == nil {
		return Null.String()
	}
	return v.String()
}

func writeProperties(sb *strings.Builder, props map[string]Value) {
	sb.WriteByte('{')
	for i, k := range Map(props).sortedKeys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(stringOf(props[k]))
	}
	sb.WriteByte('}')
}

func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
