// Package types provides the Cypher type lattice for NornicFed.
//
// Every value a query can produce has a CypherType. Types form a join-semilattice
// with ANY as the absorbing top element, so the planner can always compute a single
// type that covers two branches of an expression (CASE arms, UNION columns, the
// values a property key takes across many nodes).
//
// Type Variants:
//   - ANY: top of the lattice
//   - NULL: the type of the null value, unifiable with every type under nullability
//   - NUMBER: supertype of INTEGER and FLOAT
//   - BOOLEAN, STRING
//   - NODE, RELATIONSHIP, PATH: graph entities
//   - MAP: string-keyed maps
//   - LIST<T>: homogeneous lists with element type T
//
// Any type may be marked nullable, written with a trailing question mark:
//
//	INTEGER?       // an integer or null
//	LIST<STRING?>  // a non-null list whose elements may be null
//
// Example Usage:
//
//	t := types.Join(types.Integer, types.Float)   // NUMBER
//	t = types.Join(t, types.Null)                 // NUMBER?
//	types.Integer.SubTypeOf(t)                    // true
//
//	parsed, err := types.Parse("LIST<INTEGER>?")
//
// ELI12:
//
// Think of types like boxes that fit inside bigger boxes. An INTEGER box fits
// inside a NUMBER box, and every box fits inside the giant ANY box. When you ask
// "what's the smallest box that holds both of these?" you get their Join.
//
// Thread Safety:
//
//	CypherType values are immutable and safe to share between goroutines.
package types

import (
	"fmt"
	"strings"
)

// Kind enumerates the closed set of Cypher type constructors.
type Kind uint8

const (
	KindAny Kind = iota
	KindNull
	KindNumber
	KindInteger
	KindFloat
	KindBoolean
	KindString
	KindNode
	KindRelationship
	KindPath
	KindMap
	KindList
)

var kindNames = [...]string{
	KindAny:          "ANY",
	KindNull:         "NULL",
	KindNumber:       "NUMBER",
	KindInteger:      "INTEGER",
	KindFloat:        "FLOAT",
	KindBoolean:      "BOOLEAN",
	KindString:       "STRING",
	KindNode:         "NODE",
	KindRelationship: "RELATIONSHIP",
	KindPath:         "PATH",
	KindMap:          "MAP",
	KindList:         "LIST",
}

// String returns the Cypher name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsNumeric reports whether the kind belongs to the NUMBER family.
func (k Kind) IsNumeric() bool {
	return k == KindNumber || k == KindInteger || k == KindFloat
}

// CypherType is a (possibly nullable) Cypher type.
//
// The zero value is the non-nullable ANY type. Construct list types with ListOf;
// all other types are available as package-level values.
type CypherType struct {
	kind     Kind
	nullable bool
	elem     *CypherType // only for KindList
}

// Predefined material types.
var (
	Any          = CypherType{kind: KindAny}
	Null         = CypherType{kind: KindNull, nullable: true}
	Number       = CypherType{kind: KindNumber}
	Integer      = CypherType{kind: KindInteger}
	Float        = CypherType{kind: KindFloat}
	Boolean      = CypherType{kind: KindBoolean}
	String       = CypherType{kind: KindString}
	Node         = CypherType{kind: KindNode}
	Relationship = CypherType{kind: KindRelationship}
	Path         = CypherType{kind: KindPath}
	Map          = CypherType{kind: KindMap}
)

// ListOf returns the type LIST<elem>.
func ListOf(elem CypherType) CypherType {
	e := elem
	return CypherType{kind: KindList, elem: &e}
}

// Kind returns the type constructor.
func (t CypherType) Kind() Kind { return t.kind }

// IsNullable reports whether null is a member of the type.
func (t CypherType) IsNullable() bool { return t.nullable }

// Elem returns the element type of a list type. For any other kind it returns ANY?.
func (t CypherType) Elem() CypherType {
	if t.kind != KindList || t.elem == nil {
		return Any.Nullable()
	}
	return *t.elem
}

// Nullable returns the nullable variant of t ("t or null").
func (t CypherType) Nullable() CypherType {
	t.nullable = true
	return t
}

// Material returns the non-nullable variant of t. NULL has no material part and is
// returned unchanged.
func (t CypherType) Material() CypherType {
	if t.kind == KindNull {
		return t
	}
	t.nullable = false
	return t
}

// Equal reports structural equality, including nullability of list elements.
func (t CypherType) Equal(other CypherType) bool {
	if t.kind != other.kind || t.nullable != other.nullable {
		return false
	}
	if t.kind == KindList {
		return t.Elem().Equal(other.Elem())
	}
	return true
}

// String renders the type in its canonical text form, e.g. "LIST<INTEGER?>?".
func (t CypherType) String() string {
	var sb strings.Builder
	t.writeTo(&sb)
	return sb.String()
}

func (t CypherType) writeTo(sb *strings.Builder) {
	sb.WriteString(t.kind.String())
	if t.kind == KindList {
		sb.WriteByte('<')
		t.Elem().writeTo(sb)
		sb.WriteByte('>')
	}
	if t.nullable && t.kind != KindNull {
		sb.WriteByte('?')
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t CypherType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *CypherType) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Parse parses the canonical text form produced by String.
//
// Parsing is case-insensitive and ignores surrounding whitespace:
//
//	types.Parse("integer?")          // INTEGER?
//	types.Parse("LIST<LIST<MAP>>")   // LIST<LIST<MAP>>
func Parse(s string) (CypherType, error) {
	src := strings.TrimSpace(s)
	if src == "" {
		return CypherType{}, fmt.Errorf("parse type: empty input")
	}

	nullable := false
	if strings.HasSuffix(src, "?") {
		nullable = true
		src = strings.TrimSpace(src[:len(src)-1])
	}

	upper := strings.ToUpper(src)
	var t CypherType
	if strings.HasPrefix(upper, "LIST<") {
		if !strings.HasSuffix(upper, ">") {
			return CypherType{}, fmt.Errorf("parse type %q: unterminated LIST", s)
		}
		elem, err := Parse(src[len("LIST<") : len(src)-1])
		if err != nil {
			return CypherType{}, fmt.Errorf("parse type %q: %w", s, err)
		}
		t = ListOf(elem)
	} else {
		found := false
		for k, name := range kindNames {
			if Kind(k) != KindList && name == upper {
				t = CypherType{kind: Kind(k)}
				found = true
				break
			}
		}
		if !found {
			return CypherType{}, fmt.Errorf("parse type %q: unknown type name", s)
		}
	}

	if t.kind == KindNull || nullable {
		t.nullable = true
	}
	return t, nil
}

// MustParse is like Parse but panics on error. Intended for static tables and tests.
func MustParse(s string) CypherType {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}
