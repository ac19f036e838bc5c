package types

// Join returns the least upper bound of a and b.
//
// Rules:
//   - NULL joined with T is T? (nullability is the only thing null contributes)
//   - the result is nullable if either operand is nullable
//   - equal kinds join to themselves; lists join element-wise
//   - INTEGER, FLOAT and NUMBER join to NUMBER
//   - anything else joins to ANY
//
// Example:
//
//	types.Join(types.Integer, types.Float)                      // NUMBER
//	types.Join(types.ListOf(types.Integer), types.ListOf(types.String)) // LIST<ANY>
//	types.Join(types.String, types.Null)                        // STRING?
func Join(a, b CypherType) CypherType {
	if a.kind == KindNull {
		return b.Nullable()
	}
	if b.kind == KindNull {
		return a.Nullable()
	}

	joined := joinMaterial(a, b)
	joined.nullable = a.nullable || b.nullable
	return joined
}

func joinMaterial(a, b CypherType) CypherType {
	switch {
	case a.kind == KindList && b.kind == KindList:
		return ListOf(Join(a.Elem(), b.Elem()))
	case a.kind == b.kind:
		return CypherType{kind: a.kind}
	case a.kind.IsNumeric() && b.kind.IsNumeric():
		return Number
	default:
		return Any
	}
}

// JoinAll folds Join over ts. The join of no types is NULL, the lattice's
// identity element for Join.
func JoinAll(ts ...CypherType) CypherType {
	result := Null
	for _, t := range ts {
		result = Join(result, t)
	}
	return result
}

// SubTypeOf reports whether every value of t is also a value of other.
func (t CypherType) SubTypeOf(other CypherType) bool {
	if t.kind == KindNull {
		return other.nullable
	}
	if other.kind == KindNull {
		return false
	}
	if t.nullable && !other.nullable {
		return false
	}

	switch {
	case other.kind == KindAny:
		return true
	case t.kind == KindList && other.kind == KindList:
		return t.Elem().SubTypeOf(other.Elem())
	case t.kind == other.kind:
		return true
	case other.kind == KindNumber:
		return t.kind == KindInteger || t.kind == KindFloat
	default:
		return false
	}
}

// SuperTypeOf reports whether other is a subtype of t.
func (t CypherType) SuperTypeOf(other CypherType) bool {
	return other.SubTypeOf(t)
}
