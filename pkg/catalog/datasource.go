package catalog

import (
	"context"

	"github.com/orneryd/nornicfed/pkg/schema"
	"github.com/orneryd/nornicfed/pkg/storage"
)

// DataSource provides graph storage for one namespace.
//
// Graphs cross the interface as independent copies: the engine returned by
// Graph belongs to the caller, and Store must not retain the engine it is
// given. Implementations must be safe for concurrent use.
//
// Example:
//
//	src := memory.New()
//	g := storage.NewMemoryEngine()
//	// ... populate g
//	if err := src.Store(ctx, "people", g); err != nil {
//		return err
//	}
//	people, err := src.Graph(ctx, "people")
type DataSource interface {
	// Graph loads a graph. Returns an error wrapping ErrUnknownGraph when the
	// source does not hold it.
	Graph(ctx context.Context, name GraphName) (*storage.MemoryEngine, error)

	// Schema returns a schema the source already has for the graph without
	// materializing it. ok is false when the source has none; the catalog then
	// derives one from the full graph.
	Schema(ctx context.Context, name GraphName) (s *schema.Schema, ok bool, err error)

	// Store creates or replaces a graph.
	Store(ctx context.Context, name GraphName, g *storage.MemoryEngine) error

	// Delete removes a graph. Deleting an absent graph is an error wrapping
	// ErrUnknownGraph.
	Delete(ctx context.Context, name GraphName) error

	// GraphNames lists the graphs of the source in ascending order.
	GraphNames(ctx context.Context) ([]GraphName, error)

	// HasGraph reports whether the source holds the graph.
	HasGraph(ctx context.Context, name GraphName) (bool, error)
}
