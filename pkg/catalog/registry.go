// Package catalog resolves qualified graph names to the data sources that hold
// them.
//
// It is split in two layers:
//
//   - GraphCatalog is the session registry: a mutable Namespace -> DataSource
//     map guarded by a mutex. It always contains the session namespace.
//   - QueryCatalog is an immutable snapshot of the registry taken at the start
//     of a query. It also memoizes schemas; WithSchema returns a new snapshot
//     and never changes the receiver, so concurrent queries never see each
//     other's cached schemas.
//
// Example:
//
//	reg := catalog.New("session", memory.New())
//	reg.Register("archive", archiveSource)
//
//	qc := reg.Snapshot()
//	s, qc, err := qc.ResolveSchema(ctx, catalog.MustQualifiedGraphName("archive", "people"))
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/orneryd/nornicfed/pkg/storage"
)

// GraphCatalog is the session-wide registry of data sources.
//
// Thread Safety:
//
//	All methods are safe for concurrent use. Snapshot is atomic with respect
//	to Register and Deregister.
type GraphCatalog struct {
	mu      sync.RWMutex
	session Namespace
	sources map[Namespace]DataSource
	logger  *slog.Logger
}

// Option configures a GraphCatalog.
type Option func(*GraphCatalog)

// WithLogger sets the logger handed to snapshots. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *GraphCatalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a registry whose only entry is the session namespace backed by
// session. It panics if session is nil or sessionNS is not a valid namespace,
// both of which are programming errors.
func New(sessionNS Namespace, session DataSource, opts ...Option) *GraphCatalog {
	if session == nil {
		panic("catalog: nil session data source")
	}
	sessionNS, err := NormalizeNamespace(sessionNS)
	if err != nil {
		panic(fmt.Sprintf("catalog: session namespace: %v", err))
	}

	c := &GraphCatalog{
		session: sessionNS,
		sources: map[Namespace]DataSource{sessionNS: session},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionNamespace returns the namespace of the session's own graphs.
func (c *GraphCatalog) SessionNamespace() Namespace {
	return c.session
}

// Register adds source under ns. Registering an existing namespace fails with
// ErrDuplicateNamespace; there is no overwrite. ns is keyed in its normalized
// form, so " archive" and "archive" are the same namespace.
func (c *GraphCatalog) Register(ns Namespace, source DataSource) error {
	if source == nil {
		return fmt.Errorf("register %q: nil data source", ns)
	}
	ns, err := NormalizeNamespace(ns)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.sources[ns]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNamespace, ns)
	}
	c.sources[ns] = source
	return nil
}

// Deregister removes ns. The session namespace is protected.
func (c *GraphCatalog) Deregister(ns Namespace) error {
	ns, err := NormalizeNamespace(ns)
	if err != nil {
		return err
	}
	if ns == c.session {
		return fmt.Errorf("%w: %s", ErrProtectedNamespace, ns)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.sources[ns]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownNamespace, ns)
	}
	delete(c.sources, ns)
	return nil
}

// Namespaces returns the registered namespaces in ascending order. The result
// reflects the live registry at the time of the call.
func (c *GraphCatalog) Namespaces() []Namespace {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedNamespaces(c.sources)
}

// DataSource returns the source registered under ns.
func (c *GraphCatalog) DataSource(ns Namespace) (DataSource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.sources, ns)
}

// Graph loads the graph named by qgn from its data source.
func (c *GraphCatalog) Graph(ctx context.Context, qgn QualifiedGraphName) (*storage.MemoryEngine, error) {
	src, err := c.DataSource(qgn.Namespace)
	if err != nil {
		return nil, err
	}
	return src.Graph(ctx, qgn.GraphName)
}

// Store writes g under qgn in its data source.
func (c *GraphCatalog) Store(ctx context.Context, qgn QualifiedGraphName, g *storage.MemoryEngine) error {
	src, err := c.DataSource(qgn.Namespace)
	if err != nil {
		return err
	}
	return src.Store(ctx, qgn.GraphName, g)
}

// Delete removes the graph named by qgn from its data source.
func (c *GraphCatalog) Delete(ctx context.Context, qgn QualifiedGraphName) error {
	src, err := c.DataSource(qgn.Namespace)
	if err != nil {
		return err
	}
	return src.Delete(ctx, qgn.GraphName)
}

// Snapshot returns an immutable QueryCatalog holding a copy of the current
// mapping and an empty schema cache. Later registry changes do not affect it.
func (c *GraphCatalog) Snapshot() *QueryCatalog {
	c.mu.RLock()
	sources := make(map[Namespace]DataSource, len(c.sources))
	for ns, src := range c.sources {
		sources[ns] = src
	}
	c.mu.RUnlock()

	return &QueryCatalog{
		session: c.session,
		sources: sources,
		schemas: nil,
		logger:  c.logger,
	}
}

func lookup(sources map[Namespace]DataSource, ns Namespace) (DataSource, error) {
	if norm, err := NormalizeNamespace(ns); err == nil {
		ns = norm
	}
	src, ok := sources[ns]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNamespace, ns)
	}
	return src, nil
}

func sortedNamespaces(sources map[Namespace]DataSource) []Namespace {
	out := make([]Namespace, 0, len(sources))
	for ns := range sources {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
