// Package memory provides the in-process data source used for the session
// namespace.
//
// Graphs are kept as private *storage.MemoryEngine copies together with the
// schema derived when they were stored, so the catalog never has to fall back
// to a full scan for session graphs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/orneryd/nornicfed/pkg/catalog"
	"github.com/orneryd/nornicfed/pkg/schema"
	"github.com/orneryd/nornicfed/pkg/storage"
)

type entry struct {
	graph  *storage.MemoryEngine
	schema *schema.Schema
}

// Source is a thread-safe in-memory catalog.DataSource.
type Source struct {
	mu     sync.RWMutex
	graphs map[catalog.GraphName]entry
}

var _ catalog.DataSource = (*Source)(nil)

// New returns an empty source.
func New() *Source {
	return &Source{graphs: make(map[catalog.GraphName]entry)}
}

// Graph returns a copy of the stored graph.
func (s *Source) Graph(ctx context.Context, name catalog.GraphName) (*storage.MemoryEngine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	e, ok := s.graphs[name]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownGraph, name)
	}
	return e.graph.Clone()
}

// Schema returns the schema derived when the graph was stored.
func (s *Source) Schema(ctx context.Context, name catalog.GraphName) (*schema.Schema, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.graphs[name]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", catalog.ErrUnknownGraph, name)
	}
	return e.schema, true, nil
}

// Store copies g and derives its schema. An existing graph is replaced.
func (s *Source) Store(ctx context.Context, name catalog.GraphName, g *storage.MemoryEngine) error {
	clone, err := g.Clone()
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	sch, err := schema.FromGraph(ctx, clone)
	if err != nil {
		clone.Close()
		return fmt.Errorf("store %s: %w", name, err)
	}

	s.mu.Lock()
	old, replaced := s.graphs[name]
	s.graphs[name] = entry{graph: clone, schema: sch}
	s.mu.Unlock()

	if replaced {
		old.graph.Close()
	}
	return nil
}

// Delete drops the graph.
func (s *Source) Delete(ctx context.Context, name catalog.GraphName) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	e, ok := s.graphs[name]
	delete(s.graphs, name)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownGraph, name)
	}
	return e.graph.Close()
}

// GraphNames lists the stored graphs in ascending order.
func (s *Source) GraphNames(ctx context.Context) ([]catalog.GraphName, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	names := make([]catalog.GraphName, 0, len(s.graphs))
	for name := range s.graphs {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names, nil
}

// HasGraph reports whether name is stored.
func (s *Source) HasGraph(ctx context.Context, name catalog.GraphName) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.graphs[name]
	return ok, nil
}

// Close releases every stored graph.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.graphs {
		e.graph.Close()
	}
	s.graphs = make(map[catalog.GraphName]entry)
	return nil
}
