package value

import (
	"fmt"
	"math"
	"strings"

	"github.com/orneryd/nornicfed/pkg/convert"
)

// Truth is the result of three-valued equality.
//
// The zero value is Unknown so an uninitialized result is never mistaken for a
// definite answer.
type Truth uint8

const (
	Unknown Truth = iota
	False
	True
)

func (t Truth) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// IsTrue reports whether t is definitely true. WHERE keeps a row only when its
// predicate IsTrue; both False and Unknown filter it out.
func (t Truth) IsTrue() bool { return t == True }

// Not is three-valued negation.
func (t Truth) Not() Truth {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// And is three-valued conjunction.
func (t Truth) And(o Truth) Truth {
	switch {
	case t == False || o == False:
		return False
	case t == True && o == True:
		return True
	default:
		return Unknown
	}
}

// Or is three-valued disjunction.
func (t Truth) Or(o Truth) Truth {
	switch {
	case t == True || o == True:
		return True
	case t == False && o == False:
		return False
	default:
		return Unknown
	}
}

// Value converts t to a Boolean value, or Null for Unknown.
func (t Truth) Value() Value {
	switch t {
	case True:
		return Boolean(true)
	case False:
		return Boolean(false)
	default:
		return Null
	}
}

func truthOf(b bool) Truth {
	if b {
		return True
	}
	return False
}

// Comparison is the result of Compare: either Some(c) with c in {-1, 0, 1}, or
// None when the operands are incomparable.
type Comparison struct {
	sign    int8
	defined bool
}

// None is the undefined comparison.
var None = Comparison{}

// Some returns a defined comparison with the sign of c.
func Some(c int) Comparison {
	return Comparison{sign: int8(sign(c)), defined: true}
}

// Get returns the sign and whether the comparison is defined.
func (c Comparison) Get() (int, bool) { return int(c.sign), c.defined }

// IsDefined reports whether c is Some.
func (c Comparison) IsDefined() bool { return c.defined }

// Reverse returns the comparison with operands swapped: Some(-c) or None.
func (c Comparison) Reverse() Comparison {
	if !c.defined {
		return None
	}
	return Comparison{sign: -c.sign, defined: true}
}

func (c Comparison) String() string {
	if !c.defined {
		return "None"
	}
	return fmt.Sprintf("Some(%d)", c.sign)
}

// Less is the Truth of a < b under Compare. None maps to Unknown.
func (c Comparison) Less() Truth { return c.test(func(s int) bool { return s < 0 }) }

// LessOrEqual is the Truth of a <= b under Compare.
func (c Comparison) LessOrEqual() Truth { return c.test(func(s int) bool { return s <= 0 }) }

// Greater is the Truth of a > b under Compare.
func (c Comparison) Greater() Truth { return c.test(func(s int) bool { return s > 0 }) }

// GreaterOrEqual is the Truth of a >= b under Compare.
func (c Comparison) GreaterOrEqual() Truth { return c.test(func(s int) bool { return s >= 0 }) }

func (c Comparison) test(pred func(int) bool) Truth {
	if !c.defined {
		return Unknown
	}
	return truthOf(pred(int(c.sign)))
}

// group is a comparable group. Its numeric value is the cross-group position
// used by Order.
type group uint8

const (
	groupMap group = iota
	groupList
	groupString
	groupBoolean
	groupNumber
	groupNode
	groupRelationship
	groupPath
	groupNull
)

func groupOf(v Value) group {
	switch v.(type) {
	case nil, nullValue:
		return groupNull
	case Integer, Float:
		return groupNumber
	case Boolean:
		return groupBoolean
	case String:
		return groupString
	case Node:
		return groupNode
	case Relationship:
		return groupRelationship
	case Path:
		return groupPath
	case List:
		return groupList
	case Map:
		return groupMap
	default:
		panic(fmt.Sprintf("value: unhandled value variant %T", v))
	}
}

// ContainsNull reports whether v is Null or holds Null anywhere inside a List
// or Map. Nodes, relationships and paths are compared by identity and never
// count as containing Null.
func ContainsNull(v Value) bool {
	switch x := v.(type) {
	case nil, nullValue:
		return true
	case List:
		for _, e := range x {
			if ContainsNull(e) {
				return true
			}
		}
	case Map:
		for _, e := range x {
			if ContainsNull(e) {
				return true
			}
		}
	}
	return false
}

// Equal is three-valued equality.
//
// Rules:
//   - Null anywhere in either operand yields Unknown
//   - nodes and relationships are equal iff their IDs are equal
//   - numbers compare exactly across Integer and Float (4 = 4.0)
//   - lists, maps and paths compare structurally
//   - values from different groups are never equal
//
// Example:
//
//	value.Equal(value.Integer(1), value.Float(1))         // True
//	value.Equal(value.String("a"), value.Integer(1))      // False
//	value.Equal(value.List{value.Integer(1), value.Null}, // Unknown
//		value.List{value.Integer(2)})
func Equal(a, b Value) Truth {
	if ContainsNull(a) || ContainsNull(b) {
		return Unknown
	}
	return truthOf(Order(a, b) == 0)
}

// Compare is the comparability relation used by the ordering operators.
//
// It returns Some(c) only when both operands belong to the same comparable
// group and every nested element pair is itself comparable. Maps are
// comparable only when their key sets are identical, in which case values are
// compared in ascending key order. Null anywhere yields None.
//
// Compare is antisymmetric and Compare(a, a) is Some(0) for every null-free a.
// When defined, its sign always matches Order(a, b).
func Compare(a, b Value) Comparison {
	if ContainsNull(a) || ContainsNull(b) {
		return None
	}
	return compare(a, b)
}

func compare(a, b Value) Comparison {
	ga, gb := groupOf(a), groupOf(b)
	if ga != gb {
		return None
	}

	switch ga {
	case groupList:
		la, lb := a.(List), b.(List)
		for i := 0; i < len(la) && i < len(lb); i++ {
			c := compare(la[i], lb[i])
			if !c.defined || c.sign != 0 {
				return c
			}
		}
		return Some(len(la) - len(lb))
	case groupMap:
		ma, mb := a.(Map), b.(Map)
		if len(ma) != len(mb) {
			return None
		}
		for k := range ma {
			if _, ok := mb[k]; !ok {
				return None
			}
		}
		for _, k := range ma.sortedKeys() {
			c := compare(ma[k], mb[k])
			if !c.defined || c.sign != 0 {
				return c
			}
		}
		return Some(0)
	default:
		return Some(orderWithinGroup(ga, a, b))
	}
}

// Order is the total orderability relation.
//
// Values from different groups are ordered by group precedence:
//
//	Map < List < String < Boolean < Number < Node < Relationship < Path < Null
//
// Within a group the order is structural: numbers by exact value with NaN
// greatest, strings by code point, false before true, nodes and relationships
// by ID, lists and paths lexicographically (a proper prefix sorts first), and
// maps by their (key, value) entries in ascending key order. All nulls are
// equal. A nil Value orders as Null.
//
// Order returns a negative number when a sorts before b, zero when they are
// equivalent and a positive number otherwise.
func Order(a, b Value) int {
	ga, gb := groupOf(a), groupOf(b)
	if ga != gb {
		if ga < gb {
			return -1
		}
		return 1
	}
	return orderWithinGroup(ga, a, b)
}

func orderWithinGroup(g group, a, b Value) int {
	switch g {
	case groupNull:
		return 0
	case groupNumber:
		return orderNumbers(a, b)
	case groupBoolean:
		return orderBools(bool(a.(Boolean)), bool(b.(Boolean)))
	case groupString:
		return strings.Compare(string(a.(String)), string(b.(String)))
	case groupNode:
		return strings.Compare(string(a.(Node).ID), string(b.(Node).ID))
	case groupRelationship:
		return strings.Compare(string(a.(Relationship).ID), string(b.(Relationship).ID))
	case groupPath:
		return orderIDs(a.(Path).identities(), b.(Path).identities())
	case groupList:
		la, lb := a.(List), b.(List)
		for i := 0; i < len(la) && i < len(lb); i++ {
			if c := Order(la[i], lb[i]); c != 0 {
				return c
			}
		}
		return sign(len(la) - len(lb))
	case groupMap:
		ma, mb := a.(Map), b.(Map)
		ka, kb := ma.sortedKeys(), mb.sortedKeys()
		for i := 0; i < len(ka) && i < len(kb); i++ {
			if c := strings.Compare(ka[i], kb[i]); c != 0 {
				return c
			}
			if c := Order(ma[ka[i]], mb[kb[i]]); c != 0 {
				return c
			}
		}
		return sign(len(ka) - len(kb))
	default:
		panic(fmt.Sprintf("value: unhandled comparable group %d", g))
	}
}

func orderNumbers(a, b Value) int {
	switch x := a.(type) {
	case Integer:
		switch y := b.(type) {
		case Integer:
			return orderInts(int64(x), int64(y))
		case Float:
			return convert.CompareIntFloat(int64(x), float64(y))
		}
	case Float:
		switch y := b.(type) {
		case Integer:
			return -convert.CompareIntFloat(int64(y), float64(x))
		case Float:
			return orderFloats(float64(x), float64(y))
		}
	}
	panic(fmt.Sprintf("value: non-numeric operands %T, %T", a, b))
}

func orderInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// orderFloats orders floats numerically with NaN above +Inf and all NaNs equal.
func orderFloats(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func orderIDs(a, b []ID) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(string(a[i]), string(b[i])); c != 0 {
			return c
		}
	}
	return sign(len(a) - len(b))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
