// Package expr defines the closed set of expression shapes the planner reasons
// about, and the free-variable analysis used to prune projections and push
// predicates down.
//
// The set of shapes is sealed: every Expr implementation lives in this package
// and reports a Kind. Adding a shape means adding a Kind, and the analysis in
// Dependencies panics on any Kind it does not handle, so a new shape can never
// be silently treated as dependency-free.
//
// Example Usage:
//
//	// WHERE a.age = b.age AND c:Person
//	e := expr.NewAnds(
//		expr.NewEquals(expr.NewProperty(expr.Var("a"), "age"), expr.NewProperty(expr.Var("b"), "age")),
//		expr.NewHasLabel(expr.Var("c"), "Person"),
//	)
//	deps := expr.Dependencies(e) // {a, b, c}
package expr

import (
	"fmt"
	"strings"

	"github.com/orneryd/nornicfed/pkg/value"
)

// Kind enumerates the expression shapes.
type Kind uint8

const (
	KindVar Kind = iota
	KindParam
	KindLiteral
	KindEquals
	KindNot
	KindIsNull
	KindCompare
	KindStartNode
	KindEndNode
	KindID
	KindHasLabel
	KindHasType
	KindProperty
	KindAnds
	KindOrs
	KindListLit
	KindMapLit
	KindFunctionCall

	numKinds
)

var kindNames = [...]string{
	KindVar:          "Var",
	KindParam:        "Param",
	KindLiteral:      "Literal",
	KindEquals:       "Equals",
	KindNot:          "Not",
	KindIsNull:       "IsNull",
	KindCompare:      "Compare",
	KindStartNode:    "StartNode",
	KindEndNode:      "EndNode",
	KindID:           "ID",
	KindHasLabel:     "HasLabel",
	KindHasType:      "HasType",
	KindProperty:     "Property",
	KindAnds:         "Ands",
	KindOrs:          "Ors",
	KindListLit:      "ListLit",
	KindMapLit:       "MapLit",
	KindFunctionCall: "FunctionCall",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Kinds returns every expression kind.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// Expr is an expression node. The interface is sealed.
type Expr interface {
	Kind() Kind
	String() string

	sealed()
}

// Var is a reference to a variable bound earlier in the query.
type Var string

func (Var) Kind() Kind       { return KindVar }
func (v Var) String() string { return string(v) }
func (Var) sealed()          {}

// Param is a query parameter such as $limit.
type Param string

func (Param) Kind() Kind       { return KindParam }
func (p Param) String() string { return "$" + string(p) }
func (Param) sealed()          {}

// Literal is a constant value.
type Literal struct {
	Value value.Value
}

func NewLiteral(v value.Value) *Literal { return &Literal{Value: v} }

func (*Literal) Kind() Kind { return KindLiteral }
func (l *Literal) String() string {
	if l.Value == nil {
		return value.Null.String()
	}
	return l.Value.String()
}
func (*Literal) sealed() {}

// Equals is lhs = rhs.
type Equals struct {
	Lhs, Rhs Expr
}

func NewEquals(lhs, rhs Expr) *Equals { return &Equals{Lhs: lhs, Rhs: rhs} }

func (*Equals) Kind() Kind       { return KindEquals }
func (e *Equals) String() string { return fmt.Sprintf("%s = %s", e.Lhs, e.Rhs) }
func (*Equals) sealed()          {}

// Not is NOT inner.
type Not struct {
	Inner Expr
}

func NewNot(inner Expr) *Not { return &Not{Inner: inner} }

func (*Not) Kind() Kind       { return KindNot }
func (n *Not) String() string { return fmt.Sprintf("NOT (%s)", n.Inner) }
func (*Not) sealed()          {}

// IsNull is inner IS NULL.
type IsNull struct {
	Inner Expr
}

func NewIsNull(inner Expr) *IsNull { return &IsNull{Inner: inner} }

func (*IsNull) Kind() Kind       { return KindIsNull }
func (n *IsNull) String() string { return fmt.Sprintf("%s IS NULL", n.Inner) }
func (*IsNull) sealed()          {}

// CompareOp is an ordering comparison operator.
type CompareOp uint8

const (
	LessThan CompareOp = iota
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
)

func (op CompareOp) String() string {
	switch op {
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	default:
		return fmt.Sprintf("CompareOp(%d)", uint8(op))
	}
}

// Apply evaluates the operator over the comparability of two values.
func (op CompareOp) Apply(a, b value.Value) value.Truth {
	c := value.Compare(a, b)
	switch op {
	case LessThan:
		return c.Less()
	case LessThanOrEqual:
		return c.LessOrEqual()
	case GreaterThan:
		return c.Greater()
	case GreaterThanOrEqual:
		return c.GreaterOrEqual()
	default:
		panic(fmt.Sprintf("expr: unhandled compare operator %d", op))
	}
}

// Compare is lhs <op> rhs.
type Compare struct {
	Op       CompareOp
	Lhs, Rhs Expr
}

func NewCompare(op CompareOp, lhs, rhs Expr) *Compare { return &Compare{Op: op, Lhs: lhs, Rhs: rhs} }

func (*Compare) Kind() Kind       { return KindCompare }
func (c *Compare) String() string { return fmt.Sprintf("%s %s %s", c.Lhs, c.Op, c.Rhs) }
func (*Compare) sealed()          {}

// StartNode is startNode(rel).
type StartNode struct {
	Rel Expr
}

func NewStartNode(rel Expr) *StartNode { return &StartNode{Rel: rel} }

func (*StartNode) Kind() Kind       { return KindStartNode }
func (s *StartNode) String() string { return fmt.Sprintf("startNode(%s)", s.Rel) }
func (*StartNode) sealed()          {}

// EndNode is endNode(rel).
type EndNode struct {
	Rel Expr
}

func NewEndNode(rel Expr) *EndNode { return &EndNode{Rel: rel} }

func (*EndNode) Kind() Kind       { return KindEndNode }
func (e *EndNode) String() string { return fmt.Sprintf("endNode(%s)", e.Rel) }
func (*EndNode) sealed()          {}

// ID is id(entity).
type ID struct {
	Entity Expr
}

func NewID(entity Expr) *ID { return &ID{Entity: entity} }

func (*ID) Kind() Kind       { return KindID }
func (i *ID) String() string { return fmt.Sprintf("id(%s)", i.Entity) }
func (*ID) sealed()          {}

// HasLabel is node:Label.
type HasLabel struct {
	Node  Expr
	Label string
}

func NewHasLabel(node Expr, label string) *HasLabel { return &HasLabel{Node: node, Label: label} }

func (*HasLabel) Kind() Kind       { return KindHasLabel }
func (h *HasLabel) String() string { return fmt.Sprintf("%s:%s", h.Node, h.Label) }
func (*HasLabel) sealed()          {}

// HasType is type(rel) = RelType.
type HasType struct {
	Rel     Expr
	RelType string
}

func NewHasType(rel Expr, relType string) *HasType { return &HasType{Rel: rel, RelType: relType} }

func (*HasType) Kind() Kind       { return KindHasType }
func (h *HasType) String() string { return fmt.Sprintf("type(%s) = '%s'", h.Rel, h.RelType) }
func (*HasType) sealed()          {}

// Property is entity.key.
type Property struct {
	Entity Expr
	Key    string
}

func NewProperty(entity Expr, key string) *Property { return &Property{Entity: entity, Key: key} }

func (*Property) Kind() Kind       { return KindProperty }
func (p *Property) String() string { return fmt.Sprintf("%s.%s", p.Entity, p.Key) }
func (*Property) sealed()          {}

// Ands is the conjunction of its children. An empty Ands is true.
type Ands struct {
	Exprs []Expr
}

func NewAnds(exprs ...Expr) *Ands { return &Ands{Exprs: exprs} }

func (*Ands) Kind() Kind       { return KindAnds }
func (a *Ands) String() string { return joinExprs(a.Exprs, " AND ") }
func (*Ands) sealed()          {}

// Ors is the disjunction of its children. An empty Ors is false.
type Ors struct {
	Exprs []Expr
}

func NewOrs(exprs ...Expr) *Ors { return &Ors{Exprs: exprs} }

func (*Ors) Kind() Kind       { return KindOrs }
func (o *Ors) String() string { return joinExprs(o.Exprs, " OR ") }
func (*Ors) sealed()          {}

// ListLit is a list literal [e1, e2, ...].
type ListLit struct {
	Items []Expr
}

func NewListLit(items ...Expr) *ListLit { return &ListLit{Items: items} }

func (*ListLit) Kind() Kind { return KindListLit }
func (l *ListLit) String() string {
	parts := make([]string, len(l.Items))
	for i, e := range l.Items {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (*ListLit) sealed() {}

// MapEntry is one key of a MapLit.
type MapEntry struct {
	Key   string
	Value Expr
}

// MapLit is a map literal {k1: e1, ...}. Entries keep their source order.
type MapLit struct {
	Entries []MapEntry
}

func NewMapLit(entries ...MapEntry) *MapLit { return &MapLit{Entries: entries} }

func (*MapLit) Kind() Kind { return KindMapLit }
func (m *MapLit) String() string {
	parts := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		parts[i] = e.Key + ": " + e.Value.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
func (*MapLit) sealed() {}

// FunctionCall is name(args...).
type FunctionCall struct {
	Name string
	Args []Expr
}

func NewFunctionCall(name string, args ...Expr) *FunctionCall {
	return &FunctionCall{Name: name, Args: args}
}

func (*FunctionCall) Kind() Kind { return KindFunctionCall }
func (f *FunctionCall) String() string {
	parts := make([]string, len(f.Args))
	for i, e := range f.Args {
		parts[i] = e.String()
	}
	return f.Name + "(" + strings.Join(parts, ", ") + ")"
}
func (*FunctionCall) sealed() {}

func joinExprs(exprs []Expr, sep string) string {
	if len(exprs) == 0 {
		if sep == " AND " {
			return "true"
		}
		return "false"
	}
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = "(" + e.String() + ")"
	}
	return strings.Join(parts, sep)
}
