package expr

import (
	"fmt"
	"sort"
)

// VarSet is a set of variables.
type VarSet map[Var]struct{}

// NewVarSet returns a set holding vars.
func NewVarSet(vars ...Var) VarSet {
	s := make(VarSet, len(vars))
	for _, v := range vars {
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether v is in the set.
func (s VarSet) Contains(v Var) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the variables in ascending order.
func (s VarSet) Sorted() []Var {
	out := make([]Var, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SubsetOf reports whether every variable of s is in other. The planner uses
// it to decide whether a predicate can be evaluated below a projection that
// only binds other.
func (s VarSet) SubsetOf(other VarSet) bool {
	for v := range s {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// Dependencies returns the set of variables referenced anywhere in e.
//
// Var contributes itself. Every other shape contributes the dependencies of
// its sub-expressions; labels, relationship types, property keys, operators and
// function names contribute nothing. Literals and parameters are leaves.
//
// Traversal uses an explicit work-list, so arbitrarily deep trees (long chains
// of nested NOTs or ANDs) do not grow the call stack.
//
// Dependencies panics if it meets an expression shape it does not know. A nil
// sub-expression is a programming error and also panics.
func Dependencies(e Expr) VarSet {
	deps := make(VarSet)
	work := []Expr{e}

	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]

		switch x := cur.(type) {
		case Var:
			deps[x] = struct{}{}
		case Param, *Literal:
			// leaves
		case *Equals:
			work = append(work, x.Lhs, x.Rhs)
		case *Not:
			work = append(work, x.Inner)
		case *IsNull:
			work = append(work, x.Inner)
		case *Compare:
			work = append(work, x.Lhs, x.Rhs)
		case *StartNode:
			work = append(work, x.Rel)
		case *EndNode:
			work = append(work, x.Rel)
		case *ID:
			work = append(work, x.Entity)
		case *HasLabel:
			work = append(work, x.Node)
		case *HasType:
			work = append(work, x.Rel)
		case *Property:
			work = append(work, x.Entity)
		case *Ands:
			work = append(work, x.Exprs...)
		case *Ors:
			work = append(work, x.Exprs...)
		case *ListLit:
			work = append(work, x.Items...)
		case *MapLit:
			for _, entry := range x.Entries {
				work = append(work, entry.Value)
			}
		case *FunctionCall:
			work = append(work, x.Args...)
		default:
			panic(fmt.Sprintf("expr: unhandled expression shape %T", cur))
		}
	}

	return deps
}
