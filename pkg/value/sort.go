package value

import "sort"

// Sort sorts values in place by Order. The sort is stable, so equivalent
// values (such as 4 and 4.0) keep their input order.
func Sort(values []Value) {
	sort.SliceStable(values, func(i, j int) bool {
		return Order(values[i], values[j]) < 0
	})
}

// Distinct returns values with Order-equivalent duplicates removed. The first
// occurrence wins and input order is preserved. Nulls are all equivalent, so at
// most one Null survives, matching DISTINCT.
func Distinct(values []Value) []Value {
	if len(values) < 2 {
		return append([]Value(nil), values...)
	}

	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return Order(values[idx[i]], values[idx[j]]) < 0
	})

	keep := make([]bool, len(values))
	keep[idx[0]] = true
	for i := 1; i < len(idx); i++ {
		if Order(values[idx[i-1]], values[idx[i]]) != 0 {
			keep[idx[i]] = true
		}
	}

	out := make([]Value, 0, len(values))
	for i, v := range values {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}
