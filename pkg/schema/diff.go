package schema

import (
	"sort"

	"github.com/orneryd/nornicfed/pkg/types"
)

// ChangeKind classifies one difference between two schemas.
type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	Changed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Changed:
		return "changed"
	}
	return "unknown"
}

// Change is one difference found by Diff. Key is empty when a whole label
// combination or relationship type was added or removed.
type Change struct {
	Entity string // "(:A:B)" or "[:T]"
	Key    string
	Kind   ChangeKind
	From   types.CypherType // zero for Added
	To     types.CypherType // zero for Removed
}

// Diff lists what changes from a to b, ordered by entity then key. Node
// entities come before relationship entities. Equal schemas have no changes.
func Diff(a, b *Schema) []Change {
	var changes []Change

	aNodes, bNodes := a.nodes(), b.nodes()
	for _, key := range unionKeys(aNodes, bNodes) {
		changes = appendEntityDiff(changes, nodePattern(SplitLabelKey(key)), aNodes, bNodes, key)
	}

	aRels, bRels := a.relationships(), b.relationships()
	for _, key := range unionKeys(aRels, bRels) {
		changes = appendEntityDiff(changes, relationshipPattern(key), aRels, bRels, key)
	}
	return changes
}

func appendEntityDiff(changes []Change, entity string, a, b map[string]Properties, key string) []Change {
	from, inA := a[key]
	to, inB := b[key]

	switch {
	case !inA:
		changes = append(changes, Change{Entity: entity, Kind: Added})
	case !inB:
		changes = append(changes, Change{Entity: entity, Kind: Removed})
	}

	for _, k := range unionKeys(from, to) {
		ft, inFrom := from[k]
		tt, inTo := to[k]
		switch {
		case !inFrom:
			changes = append(changes, Change{Entity: entity, Key: k, Kind: Added, To: tt})
		case !inTo:
			changes = append(changes, Change{Entity: entity, Key: k, Kind: Removed, From: ft})
		case !ft.Equal(tt):
			changes = append(changes, Change{Entity: entity, Key: k, Kind: Changed, From: ft, To: tt})
		}
	}
	return changes
}

func unionKeys[V any](a, b map[string]V) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		set[k] = struct{}{}
	}
	for k := range b {
		set[k] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
