// Package session is the user-facing surface of a federated graph session.
//
// A Session owns a GraphCatalog whose session namespace is backed by an
// in-memory data source. Additional data sources are registered directly or
// mounted from configuration. Graph names are accepted in their text form
// ("archive.people", or "people" for the session namespace) or as
// catalog.QualifiedGraphName values.
//
// Example:
//
//	sess, err := session.New(session.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer sess.Close()
//
//	if err := sess.Mount(ctx, cfg.Sources); err != nil {
//		return err
//	}
//
//	g, err := sess.Graph(ctx, "archive.people")
//	qc := sess.BeginQuery()
//	s, qc, err := qc.ResolveSchema(ctx, name)
//
// Thread Safety:
//
//	All methods are safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/orneryd/nornicfed/pkg/catalog"
	"github.com/orneryd/nornicfed/pkg/config"
	"github.com/orneryd/nornicfed/pkg/datasource/memory"
	"github.com/orneryd/nornicfed/pkg/logging"
	"github.com/orneryd/nornicfed/pkg/storage"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

type options struct {
	namespace catalog.Namespace
	source    catalog.DataSource
	logger    *slog.Logger
	cache     config.CacheConfig
}

// Option configures a Session.
type Option func(*options)

// WithNamespace sets the session namespace. Defaults to "session".
func WithNamespace(ns catalog.Namespace) Option {
	return func(o *options) { o.namespace = ns }
}

// WithSessionSource replaces the in-memory source of the session namespace.
// The session does not close a source supplied this way.
func WithSessionSource(ds catalog.DataSource) Option {
	return func(o *options) { o.source = ds }
}

// WithLogger sets the logger for the session and the sources it opens.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCache sets the graph cache used by mounted file sources.
func WithCache(cfg config.CacheConfig) Option {
	return func(o *options) { o.cache = cfg }
}

// Session is one federated graph session.
type Session struct {
	id      uuid.UUID
	catalog *catalog.GraphCatalog
	logger  *slog.Logger
	cache   config.CacheConfig

	// ctx bounds background work of mounted sources (file watchers).
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	owned  map[catalog.Namespace]io.Closer
	closed bool
}

// New creates a session.
func New(opts ...Option) (*Session, error) {
	defaults := config.Default()
	o := options{
		namespace: config.DefaultSessionNamespace,
		cache:     defaults.Cache,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ns, err := catalog.NormalizeNamespace(o.namespace)
	if err != nil {
		return nil, fmt.Errorf("session namespace: %w", err)
	}
	o.namespace = ns

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}

	logger := logging.OrDefault(o.logger).With("session", id.String())
	owned := make(map[catalog.Namespace]io.Closer)
	source := o.source
	if source == nil {
		mem := memory.New()
		owned[o.namespace] = mem
		source = mem
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:      id,
		catalog: catalog.New(o.namespace, source, catalog.WithLogger(logger)),
		logger:  logger,
		cache:   o.cache,
		ctx:     ctx,
		cancel:  cancel,
		owned:   owned,
	}, nil
}

// FromConfig creates a session configured by cfg and mounts its sources.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	s, err := New(
		WithNamespace(catalog.Namespace(cfg.Session.Namespace)),
		WithLogger(logger),
		WithCache(cfg.Cache),
	)
	if err != nil {
		return nil, err
	}
	if err := s.Mount(ctx, cfg.Sources); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// SessionNamespace returns the namespace of the session's own graphs.
func (s *Session) SessionNamespace() catalog.Namespace {
	return s.catalog.SessionNamespace()
}

// Catalog returns the underlying registry.
func (s *Session) Catalog() *catalog.GraphCatalog {
	return s.catalog
}

// RegisterSource registers ds under ns. The caller keeps ownership of ds.
func (s *Session) RegisterSource(ns catalog.Namespace, ds catalog.DataSource) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.catalog.Register(ns, ds); err != nil {
		return err
	}
	s.logger.Info("data source registered", "namespace", string(ns))
	return nil
}

// DeregisterSource removes ns and closes its source if the session opened it.
func (s *Session) DeregisterSource(ns catalog.Namespace) error {
	if err := s.catalog.Deregister(ns); err != nil {
		return err
	}
	ns, _ = catalog.NormalizeNamespace(ns)
	s.logger.Info("data source deregistered", "namespace", string(ns))

	s.mu.Lock()
	closer := s.owned[ns]
	delete(s.owned, ns)
	s.mu.Unlock()

	if closer != nil {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("close %s: %w", ns, err)
		}
	}
	return nil
}

// Namespaces returns the registered namespaces in ascending order.
func (s *Session) Namespaces() []catalog.Namespace {
	return s.catalog.Namespaces()
}

// DataSource returns the source registered under ns.
func (s *Session) DataSource(ns catalog.Namespace) (catalog.DataSource, error) {
	return s.catalog.DataSource(ns)
}

// ParseName parses a graph name, defaulting to the session namespace.
func (s *Session) ParseName(name string) (catalog.QualifiedGraphName, error) {
	return catalog.ParseQualifiedGraphName(name, s.catalog.SessionNamespace())
}

// Graph returns the graph named by its text form.
func (s *Session) Graph(ctx context.Context, name string) (*storage.MemoryEngine, error) {
	qgn, err := s.ParseName(name)
	if err != nil {
		return nil, err
	}
	return s.GraphByName(ctx, qgn)
}

// Store stores g under its text-form name.
func (s *Session) Store(ctx context.Context, name string, g *storage.MemoryEngine) error {
	qgn, err := s.ParseName(name)
	if err != nil {
		return err
	}
	return s.StoreByName(ctx, qgn, g)
}

// Delete deletes the graph named by its text form.
func (s *Session) Delete(ctx context.Context, name string) error {
	qgn, err := s.ParseName(name)
	if err != nil {
		return err
	}
	return s.DeleteByName(ctx, qgn)
}

// GraphByName returns the graph qgn.
func (s *Session) GraphByName(ctx context.Context, qgn catalog.QualifiedGraphName) (*storage.MemoryEngine, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.catalog.Graph(ctx, qgn)
}

// StoreByName stores g as qgn.
func (s *Session) StoreByName(ctx context.Context, qgn catalog.QualifiedGraphName, g *storage.MemoryEngine) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.catalog.Store(ctx, qgn, g)
}

// DeleteByName deletes qgn.
func (s *Session) DeleteByName(ctx context.Context, qgn catalog.QualifiedGraphName) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.catalog.Delete(ctx, qgn)
}

// BeginQuery returns a snapshot of the registry for one query.
func (s *Session) BeginQuery() *catalog.QueryCatalog {
	return s.catalog.Snapshot()
}

// Graphs lists the qualified names of every graph in every namespace, sorted.
func (s *Session) Graphs(ctx context.Context) ([]catalog.QualifiedGraphName, error) {
	qc := s.BeginQuery()

	var out []catalog.QualifiedGraphName
	for _, ns := range qc.Namespaces() {
		ds, err := qc.DataSource(ns)
		if err != nil {
			return nil, err
		}
		names, err := ds.GraphNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", ns, err)
		}
		for _, name := range names {
			out = append(out, catalog.QualifiedGraphName{Namespace: ns, GraphName: name})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// Close closes every source the session opened. Sources registered by the
// caller are left open.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	owned := s.owned
	s.owned = nil
	s.mu.Unlock()

	s.cancel()

	namespaces := make([]string, 0, len(owned))
	for ns := range owned {
		namespaces = append(namespaces, string(ns))
	}
	sort.Strings(namespaces)

	var errs []error
	for _, ns := range namespaces {
		if err := owned[catalog.Namespace(ns)].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ns, err))
		}
	}
	s.logger.Debug("session closed", "sources", len(owned))
	return errors.Join(errs...)
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
