package schema

import (
	"context"
	"fmt"

	"github.com/orneryd/nornicfed/pkg/storage"
	"github.com/orneryd/nornicfed/pkg/types"
	"github.com/orneryd/nornicfed/pkg/value"
)

// Builder accumulates observations of nodes and relationships into a Schema.
type Builder struct {
	nodes map[string]*entityStats
	rels  map[string]*entityStats
}

type entityStats struct {
	count int
	keys  map[string]*keyStats
}

type keyStats struct {
	count int
	typ   types.CypherType
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[string]*entityStats),
		rels:  make(map[string]*entityStats),
	}
}

// ObserveNode records one node.
func (b *Builder) ObserveNode(labels []string, props map[string]any) error {
	return observe(b.nodes, LabelKey(labels...), props)
}

// ObserveRelationship records one relationship.
func (b *Builder) ObserveRelationship(relType string, props map[string]any) error {
	return observe(b.rels, relType, props)
}

func observe(into map[string]*entityStats, key string, props map[string]any) error {
	stats := into[key]
	if stats == nil {
		stats = &entityStats{keys: make(map[string]*keyStats)}
		into[key] = stats
	}
	stats.count++

	for k, raw := range props {
		v, err := value.FromAny(raw)
		if err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
		t := value.TypeOf(v)
		if ks, ok := stats.keys[k]; ok {
			ks.count++
			ks.typ = types.Join(ks.typ, t)
		} else {
			stats.keys[k] = &keyStats{count: 1, typ: t}
		}
	}
	return nil
}

// Build returns the schema for everything observed so far.
func (b *Builder) Build() *Schema {
	s := New()
	build(s.Nodes, b.nodes)
	build(s.Relationships, b.rels)
	return s
}

func build(into map[string]Properties, from map[string]*entityStats) {
	for key, stats := range from {
		props := make(Properties, len(stats.keys))
		for k, ks := range stats.keys {
			t := ks.typ
			if ks.count < stats.count {
				t = t.Nullable()
			}
			props[k] = t
		}
		into[key] = props
	}
}

// FromGraph derives the schema of g by reading every node and relationship.
//
// This is O(size of the graph). Prefer a schema the data source already
// stores; the query catalog only falls back to FromGraph when there is none.
func FromGraph(ctx context.Context, g storage.Engine) (*Schema, error) {
	b := NewBuilder()

	err := g.StreamNodes(ctx, func(n *storage.Node) error {
		if err := b.ObserveNode(n.Labels, n.Properties); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("derive schema: %w", err)
	}

	err = g.StreamEdges(ctx, func(e *storage.Edge) error {
		if err := b.ObserveRelationship(e.Type, e.Properties); err != nil {
			return fmt.Errorf("relationship %s: %w", e.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("derive schema: %w", err)
	}

	return b.Build(), nil
}
