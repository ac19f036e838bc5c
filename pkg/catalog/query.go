package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/orneryd/nornicfed/pkg/schema"
	"github.com/orneryd/nornicfed/pkg/storage"
)

// QueryCatalog is the immutable view of the registry a single query plans
// against.
//
// The schema cache is copy-on-write: WithSchema copies the map and returns a
// new QueryCatalog, so any number of goroutines may derive catalogs from the
// same snapshot. Cached *schema.Schema values are shared and must not be
// mutated.
type QueryCatalog struct {
	session Namespace
	sources map[Namespace]DataSource
	schemas map[QualifiedGraphName]*schema.Schema
	logger  *slog.Logger
}

// SessionNamespace returns the namespace unqualified names resolve to.
func (q *QueryCatalog) SessionNamespace() Namespace {
	return q.session
}

// Namespaces returns the namespaces captured by the snapshot, sorted.
func (q *QueryCatalog) Namespaces() []Namespace {
	return sortedNamespaces(q.sources)
}

// DataSource returns the source captured for ns.
func (q *QueryCatalog) DataSource(ns Namespace) (DataSource, error) {
	return lookup(q.sources, ns)
}

// Graph loads the graph named by qgn through the snapshot's mapping.
func (q *QueryCatalog) Graph(ctx context.Context, qgn QualifiedGraphName) (*storage.MemoryEngine, error) {
	src, err := lookup(q.sources, qgn.Namespace)
	if err != nil {
		return nil, err
	}
	return src.Graph(ctx, qgn.GraphName)
}

// CachedSchema returns the schema memoized for qgn, if any. It never touches a
// data source.
func (q *QueryCatalog) CachedSchema(qgn QualifiedGraphName) (*schema.Schema, bool) {
	s, ok := q.schemas[qgn]
	return s, ok
}

// Schema returns the schema of the graph named by qgn.
//
// Resolution order:
//  1. the snapshot's schema cache
//  2. the data source's own schema accessor
//  3. loading the full graph and deriving its schema
//
// Step 3 is O(size of the graph): every node and relationship is materialized
// and scanned. It is logged at WARN. Do not call Schema in a loop for the same
// graph; use ResolveSchema once and keep the returned catalog.
//
// Schema does not memoize its result.
func (q *QueryCatalog) Schema(ctx context.Context, qgn QualifiedGraphName) (*schema.Schema, error) {
	if s, ok := q.schemas[qgn]; ok {
		return s, nil
	}

	src, err := lookup(q.sources, qgn.Namespace)
	if err != nil {
		return nil, err
	}

	s, ok, err := src.Schema(ctx, qgn.GraphName)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", qgn, err)
	}
	if ok && s != nil {
		return s, nil
	}

	start := time.Now()
	g, err := src.Graph(ctx, qgn.GraphName)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", qgn, err)
	}
	defer g.Close()

	s, err = schema.FromGraph(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", qgn, err)
	}

	nodes, _ := g.NodeCount()
	edges, _ := g.EdgeCount()
	q.logger.Warn("schema derived from full graph",
		"graph", qgn.String(),
		"nodes", nodes,
		"relationships", edges,
		"elapsed", time.Since(start),
	)
	return s, nil
}

// WithSchema returns a catalog that has s cached for qgn. q is unchanged. A nil
// s caches nothing and returns q.
func (q *QueryCatalog) WithSchema(qgn QualifiedGraphName, s *schema.Schema) *QueryCatalog {
	if s == nil {
		return q
	}
	schemas := make(map[QualifiedGraphName]*schema.Schema, len(q.schemas)+1)
	for k, v := range q.schemas {
		schemas[k] = v
	}
	schemas[qgn] = s

	return &QueryCatalog{
		session: q.session,
		sources: q.sources,
		schemas: schemas,
		logger:  q.logger,
	}
}

// ResolveSchema is Schema followed by WithSchema. When the schema was already
// cached the receiver itself is returned.
//
// Example:
//
//	s, qc, err := qc.ResolveSchema(ctx, qgn)
//	if err != nil {
//		return err
//	}
//	// later lookups of qgn through qc are free
func (q *QueryCatalog) ResolveSchema(ctx context.Context, qgn QualifiedGraphName) (*schema.Schema, *QueryCatalog, error) {
	if s, ok := q.schemas[qgn]; ok {
		return s, q, nil
	}
	s, err := q.Schema(ctx, qgn)
	if err != nil {
		return nil, q, err
	}
	return s, q.WithSchema(qgn, s), nil
}
