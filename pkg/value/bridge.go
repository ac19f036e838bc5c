package value

import (
	"errors"
	"fmt"
	"math"

	"github.com/orneryd/nornicfed/pkg/convert"
	"github.com/orneryd/nornicfed/pkg/storage"
)

// ErrUnsupportedValue is returned by FromAny for Go values that have no Cypher
// representation (channels, funcs, structs, maps with non-string keys, ...).
var ErrUnsupportedValue = errors.New("unsupported value")

// FromAny converts a Go-native property value into a Value.
//
// Accepted inputs:
//   - nil                                 → Null
//   - bool                                → Boolean
//   - all signed and unsigned int widths  → Integer (uint64 above MaxInt64 fails)
//   - float32, float64                    → Float
//   - json.Number                         → Integer or Float
//   - string, []byte                      → String
//   - []any, []string, []int64, []float64 → List
//   - map[string]any                      → Map
//   - Value                               → itself
//
// Example:
//
//	v, err := value.FromAny(map[string]any{"age": 30, "tags": []any{"a", nil}})
//	// v == Map{"age": Integer(30), "tags": List{String("a"), Null}}
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return x, nil
	case bool:
		return Boolean(x), nil
	case string:
		return String(x), nil
	case []byte:
		return String(x), nil
	case []any:
		list := make(List, len(x))
		for i, e := range x {
			ev, err := FromAny(e)
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", i, err)
			}
			list[i] = ev
		}
		return list, nil
	case []string:
		list := make(List, len(x))
		for i, e := range x {
			list[i] = String(e)
		}
		return list, nil
	case []int64:
		list := make(List, len(x))
		for i, e := range x {
			list[i] = Integer(e)
		}
		return list, nil
	case []float64:
		list := make(List, len(x))
		for i, e := range x {
			list[i] = Float(e)
		}
		return list, nil
	case map[string]any:
		return mapFromAny(x)
	}

	if i, ok := convert.Integer(v); ok {
		return Integer(i), nil
	}
	if f, ok := convert.Float(v); ok {
		return Float(f), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// MustFromAny is like FromAny but panics on error. Intended for tests and
// static tables.
func MustFromAny(v any) Value {
	out, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return out
}

func mapFromAny(m map[string]any) (Map, error) {
	out := make(Map, len(m))
	for k, e := range m {
		ev, err := FromAny(e)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = ev
	}
	return out, nil
}

// FromNode converts a stored node into a Node value.
func FromNode(n *storage.Node) (Node, error) {
	props, err := mapFromAny(n.Properties)
	if err != nil {
		return Node{}, fmt.Errorf("node %s: %w", n.ID, err)
	}
	return Node{
		ID:         ID(n.ID),
		Labels:     append([]string(nil), n.Labels...),
		Properties: props,
	}, nil
}

// FromEdge converts a stored edge into a Relationship value.
func FromEdge(e *storage.Edge) (Relationship, error) {
	props, err := mapFromAny(e.Properties)
	if err != nil {
		return Relationship{}, fmt.Errorf("relationship %s: %w", e.ID, err)
	}
	return Relationship{
		ID:         ID(e.ID),
		Type:       e.Type,
		StartID:    ID(e.StartNode),
		EndID:      ID(e.EndNode),
		Properties: props,
	}, nil
}

// ToAny converts v back into Go-native form. Integer becomes int64, Float
// becomes float64, List becomes []any and Map becomes map[string]any. Nodes and
// relationships become a map carrying their identity under "_id".
func ToAny(v Value) any {
	switch x := v.(type) {
	case nil, nullValue:
		return nil
	case Integer:
		return int64(x)
	case Float:
		return float64(x)
	case Boolean:
		return bool(x)
	case String:
		return string(x)
	case List:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = ToAny(e)
		}
		return out
	case Map:
		return mapToAny(x)
	case Node:
		out := mapToAny(x.Properties)
		out["_id"] = string(x.ID)
		out["_labels"] = append([]string(nil), x.Labels...)
		return out
	case Relationship:
		out := mapToAny(x.Properties)
		out["_id"] = string(x.ID)
		out["_type"] = x.Type
		out["_start"] = string(x.StartID)
		out["_end"] = string(x.EndID)
		return out
	case Path:
		out := make([]any, 0, len(x.Nodes)+len(x.Relationships))
		for i, n := range x.Nodes {
			if i > 0 && i-1 < len(x.Relationships) {
				out = append(out, ToAny(x.Relationships[i-1]))
			}
			out = append(out, ToAny(n))
		}
		return out
	default:
		panic(fmt.Sprintf("value: unhandled value variant %T", v))
	}
}

func mapToAny(m map[string]Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = ToAny(e)
	}
	return out
}

// IsNaN reports whether v is a Float NaN.
func IsNaN(v Value) bool {
	f, ok := v.(Float)
	return ok && math.IsNaN(float64(f))
}
