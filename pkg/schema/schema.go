// Package schema describes the structure of a property graph: which label
// combinations and relationship types occur, and which property keys they carry
// with which CypherType.
//
// A key that is absent from some entities of a label combination (or type) is
// recorded as nullable. When a key takes values of different types, its type is
// the join of the observed types:
//
//	(:Person {name: 'Alice', age: 30})
//	(:Person {name: 'Bob', age: 41.5})
//	(:Person {name: 'Carol'})
//
//	=> (:Person) name: STRING, age: NUMBER?
//
// Schemas are cheap for a data source to store alongside a graph and expensive
// to derive (FromGraph reads every node and relationship), which is why the
// query catalog caches them.
//
// Thread Safety:
//
//	A Schema must not be mutated after it has been handed to a catalog. All
//	read methods are safe for concurrent use.
package schema

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/orneryd/nornicfed/pkg/types"
)

// Properties maps property keys to their types.
type Properties map[string]types.CypherType

// Keys returns the property keys in ascending order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p Properties) clone() Properties {
	out := make(Properties, len(p))
	for k, t := range p {
		out[k] = t
	}
	return out
}

// Schema is the structural description of one graph.
//
// Nodes is keyed by LabelKey of the label combination; Relationships is keyed
// by relationship type.
type Schema struct {
	Nodes         map[string]Properties `json:"nodes" yaml:"nodes" msgpack:"nodes"`
	Relationships map[string]Properties `json:"relationships" yaml:"relationships" msgpack:"relationships"`
}

// New returns an empty schema.
func New() *Schema {
	return &Schema{
		Nodes:         make(map[string]Properties),
		Relationships: make(map[string]Properties),
	}
}

// LabelKey returns the canonical key of a label combination: the distinct
// labels sorted and joined with ":". The empty combination has key "".
func LabelKey(labels ...string) string {
	return strings.Join(canonicalLabels(labels), ":")
}

// SplitLabelKey is the inverse of LabelKey.
func SplitLabelKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, ":")
}

func canonicalLabels(labels []string) []string {
	set := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, dup := set[l]; dup {
			continue
		}
		set[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// AddLabelCombination records a label combination with no properties.
// Build-time only.
func (s *Schema) AddLabelCombination(labels ...string) {
	s.ensure()
	key := LabelKey(labels...)
	if s.Nodes[key] == nil {
		s.Nodes[key] = make(Properties)
	}
}

// SetNodeProperty records key: t on the given label combination. Build-time only.
func (s *Schema) SetNodeProperty(labels []string, key string, t types.CypherType) {
	s.AddLabelCombination(labels...)
	s.Nodes[LabelKey(labels...)][key] = t
}

// AddRelationshipType records a relationship type with no properties.
// Build-time only.
func (s *Schema) AddRelationshipType(relType string) {
	s.ensure()
	if s.Relationships[relType] == nil {
		s.Relationships[relType] = make(Properties)
	}
}

// SetRelationshipProperty records key: t on the given relationship type.
// Build-time only.
func (s *Schema) SetRelationshipProperty(relType, key string, t types.CypherType) {
	s.AddRelationshipType(relType)
	s.Relationships[relType][key] = t
}

func (s *Schema) ensure() {
	if s.Nodes == nil {
		s.Nodes = make(map[string]Properties)
	}
	if s.Relationships == nil {
		s.Relationships = make(map[string]Properties)
	}
}

// IsEmpty reports whether the schema records no label combination and no
// relationship type.
func (s *Schema) IsEmpty() bool {
	return s == nil || (len(s.Nodes) == 0 && len(s.Relationships) == 0)
}

// Labels returns every label that occurs in some combination, sorted.
func (s *Schema) Labels() []string {
	set := make(map[string]struct{})
	for key := range s.Nodes {
		for _, l := range SplitLabelKey(key) {
			set[l] = struct{}{}
		}
	}
	return sortedSet(set)
}

// LabelCombinations returns the recorded label combinations, sorted by key.
func (s *Schema) LabelCombinations() [][]string {
	keys := make([]string, 0, len(s.Nodes))
	for k := range s.Nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][]string, len(keys))
	for i, k := range keys {
		out[i] = SplitLabelKey(k)
	}
	return out
}

// RelationshipTypes returns every relationship type, sorted.
func (s *Schema) RelationshipTypes() []string {
	set := make(map[string]struct{}, len(s.Relationships))
	for t := range s.Relationships {
		set[t] = struct{}{}
	}
	return sortedSet(set)
}

// NodeKeys returns the properties of nodes carrying all of labels.
//
// Every label combination that includes all requested labels contributes. A key
// present in only some of those combinations is nullable, and a key's type is
// the join over the combinations. With no labels every node contributes.
// Returns nil when no combination matches.
func (s *Schema) NodeKeys(labels ...string) Properties {
	want := canonicalLabels(labels)

	var matched []Properties
	for key, props := range s.Nodes {
		if containsAll(SplitLabelKey(key), want) {
			matched = append(matched, props)
		}
	}
	return mergeProperties(matched)
}

// RelationshipKeys returns the properties of relationships of the given type,
// or nil if the type is unknown.
func (s *Schema) RelationshipKeys(relType string) Properties {
	props, ok := s.Relationships[relType]
	if !ok {
		return nil
	}
	return props.clone()
}

// Union returns the schema describing a graph that holds the entities of both s
// and other. Shared combinations and types join their property types; a key
// recorded on only one side of a shared combination becomes nullable. Neither
// input is modified.
func (s *Schema) Union(other *Schema) *Schema {
	out := New()
	unionInto(out.Nodes, s.nodes(), other.nodes())
	unionInto(out.Relationships, s.relationships(), other.relationships())
	return out
}

func (s *Schema) nodes() map[string]Properties {
	if s == nil {
		return nil
	}
	return s.Nodes
}

func (s *Schema) relationships() map[string]Properties {
	if s == nil {
		return nil
	}
	return s.Relationships
}

func unionInto(dst, a, b map[string]Properties) {
	for key, props := range a {
		if other, ok := b[key]; ok {
			dst[key] = mergeProperties([]Properties{props, other})
		} else {
			dst[key] = props.clone()
		}
	}
	for key, props := range b {
		if _, ok := a[key]; !ok {
			dst[key] = props.clone()
		}
	}
}

// mergeProperties joins property types across sets; keys missing from any set
// become nullable.
func mergeProperties(sets []Properties) Properties {
	if len(sets) == 0 {
		return nil
	}

	out := make(Properties)
	seen := make(map[string]int)
	for _, props := range sets {
		for k, t := range props {
			if prev, ok := out[k]; ok {
				out[k] = types.Join(prev, t)
			} else {
				out[k] = t
			}
			seen[k]++
		}
	}
	for k, n := range seen {
		if n < len(sets) {
			out[k] = out[k].Nullable()
		}
	}
	return out
}

// Equal reports whether both schemas have the same canonical rendering.
func (s *Schema) Equal(other *Schema) bool {
	return s.String() == other.String()
}

// String renders the schema deterministically:
//
//	(:Person)
//	  age: INTEGER?
//	  name: STRING
//	[:KNOWS]
//	  since: INTEGER
//
// Label combinations come first in key order, then relationship types. The
// unlabeled combination renders as "()".
func (s *Schema) String() string {
	if s.IsEmpty() {
		return "(empty schema)\n"
	}

	var sb strings.Builder
	for _, labels := range s.LabelCombinations() {
		sb.WriteString(nodePattern(labels))
		sb.WriteString("\n")
		writeProperties(&sb, s.Nodes[LabelKey(labels...)])
	}
	for _, t := range s.RelationshipTypes() {
		sb.WriteString(relationshipPattern(t))
		sb.WriteString("\n")
		writeProperties(&sb, s.Relationships[t])
	}
	return sb.String()
}

func nodePattern(labels []string) string {
	var sb strings.Builder
	sb.WriteString("(")
	for _, l := range labels {
		sb.WriteString(":")
		sb.WriteString(l)
	}
	sb.WriteString(")")
	return sb.String()
}

func relationshipPattern(relType string) string {
	return "[:" + relType + "]"
}

func writeProperties(sb *strings.Builder, props Properties) {
	for _, k := range props.Keys() {
		fmt.Fprintf(sb, "  %s: %s\n", k, props[k])
	}
}

// Fingerprint returns the hex BLAKE2b-256 digest of the canonical rendering.
// Two schemas have the same fingerprint iff they are Equal.
func (s *Schema) Fingerprint() string {
	sum := blake2b.Sum256([]byte(s.String()))
	return hex.EncodeToString(sum[:])
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		i := sort.SearchStrings(have, w)
		if i == len(have) || have[i] != w {
			return false
		}
	}
	return true
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
