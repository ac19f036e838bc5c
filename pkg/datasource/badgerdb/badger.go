// Package badgerdb provides a persistent data source backed by BadgerDB.
//
// Each source owns one BadgerDB directory and stores any number of graphs in
// it. Nodes, relationships and the graph's schema are msgpack records; the
// schema is derived once at Store time so the catalog can answer schema
// lookups without reading the graph.
//
// Example:
//
//	src, err := badgerdb.Open(badgerdb.Options{Dir: "./data/archive"})
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//
//	reg.Register("archive", src)
package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/nornicfed/pkg/catalog"
	"github.com/orneryd/nornicfed/pkg/logging"
	"github.com/orneryd/nornicfed/pkg/schema"
	"github.com/orneryd/nornicfed/pkg/storage"
)

// Options configures a Source.
type Options struct {
	// Dir is the BadgerDB data directory. Required unless InMemory.
	Dir string

	// InMemory runs BadgerDB without touching disk. Useful for tests.
	InMemory bool

	// SyncWrites forces fsync after each write.
	SyncWrites bool

	// BlockCacheSize in bytes; 0 keeps the low-memory default of 32MB.
	BlockCacheSize int64

	// Logger receives source and BadgerDB logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Source is a catalog.DataSource over one BadgerDB.
//
// Thread Safety:
//
//	Safe for concurrent use. Store and Delete are serialized; reads run
//	concurrently with each other and see either the old or the new graph.
type Source struct {
	db      *badger.DB
	logger  *slog.Logger
	writeMu sync.Mutex

	mu     sync.RWMutex
	closed bool
}

var _ catalog.DataSource = (*Source)(nil)

// Open opens (or creates) the database described by opts.
func Open(opts Options) (*Source, error) {
	logger := logging.OrDefault(opts.Logger)

	if opts.Dir == "" && !opts.InMemory {
		return nil, errors.New("badger source: data directory required")
	}

	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}

	blockCache := int64(32 << 20)
	if opts.BlockCacheSize > 0 {
		blockCache = opts.BlockCacheSize
	}

	// Graph catalogs are small compared to the engine's defaults.
	badgerOpts = badgerOpts.
		WithSyncWrites(opts.SyncWrites).
		WithLogger(logging.NewBadgerLogger(logger)).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(blockCache).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	return &Source{db: db, logger: logger}, nil
}

// OpenInMemory opens an in-memory source for tests.
func OpenInMemory() (*Source, error) {
	return Open(Options{InMemory: true, Logger: logging.Discard()})
}

// Close closes the database. It is idempotent.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Source) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

// Graph decodes the stored graph into a new engine.
func (s *Source) Graph(ctx context.Context, name catalog.GraphName) (*storage.MemoryEngine, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	var nodes []*storage.Node
	var edges []*storage.Edge

	err := s.db.View(func(txn *badger.Txn) error {
		if err := requireGraph(txn, name); err != nil {
			return err
		}

		err := scan(ctx, txn, nodePrefix(name), func(val []byte) error {
			n, err := decodeNode(val)
			if err != nil {
				return err
			}
			nodes = append(nodes, n)
			return nil
		})
		if err != nil {
			return err
		}

		return scan(ctx, txn, edgePrefix(name), func(val []byte) error {
			e, err := decodeEdge(val)
			if err != nil {
				return err
			}
			edges = append(edges, e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	g := storage.NewMemoryEngine()
	if err := g.BulkCreateNodes(nodes); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if err := g.BulkCreateEdges(edges); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return g, nil
}

// Schema returns the schema recorded when the graph was stored.
func (s *Source) Schema(ctx context.Context, name catalog.GraphName) (*schema.Schema, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	if err := validateName(name); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var sch *schema.Schema
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(schemaKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", catalog.ErrUnknownGraph, name)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decodeErr error
			sch, decodeErr = decodeSchema(val)
			return decodeErr
		})
	})
	if err != nil {
		return nil, false, err
	}
	return sch, true, nil
}

// Store replaces the graph with g and records its schema.
//
// The write goes through a single BadgerDB write batch: stale records of the
// previous version are deleted and the new records written. Very large graphs
// are committed by the batch in several transactions.
func (s *Source) Store(ctx context.Context, name catalog.GraphName, g *storage.MemoryEngine) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}

	sch, err := schema.FromGraph(ctx, g)
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	schemaRecord, err := encode(sch)
	if err != nil {
		return fmt.Errorf("store %s: encode schema: %w", name, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stale, err := s.keysWithPrefix(graphPrefix(name))
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	var nodeCount, edgeCount int
	err = g.StreamNodes(ctx, func(n *storage.Node) error {
		key := nodeKey(name, n.ID)
		delete(stale, string(key))
		data, err := encode(n)
		if err != nil {
			return fmt.Errorf("encode node %s: %w", n.ID, err)
		}
		nodeCount++
		return wb.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}

	err = g.StreamEdges(ctx, func(e *storage.Edge) error {
		key := edgeKey(name, e.ID)
		delete(stale, string(key))
		data, err := encode(e)
		if err != nil {
			return fmt.Errorf("encode edge %s: %w", e.ID, err)
		}
		edgeCount++
		return wb.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}

	for key := range stale {
		if err := wb.Delete([]byte(key)); err != nil {
			return fmt.Errorf("store %s: %w", name, err)
		}
	}
	if err := wb.Set(schemaKey(name), schemaRecord); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}

	s.logger.Debug("graph stored",
		"graph", string(name),
		"nodes", nodeCount,
		"relationships", edgeCount,
		"stale", len(stale),
	)
	return nil
}

// Delete removes every record of the graph.
func (s *Source) Delete(ctx context.Context, name catalog.GraphName) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if ok, err := s.HasGraph(ctx, name); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownGraph, name)
	}

	keys, err := s.keysWithPrefix(graphPrefix(name))
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for key := range keys {
		if err := wb.Delete([]byte(key)); err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
	}
	if err := wb.Delete(schemaKey(name)); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}

	s.logger.Debug("graph deleted", "graph", string(name), "records", len(keys))
	return nil
}

// GraphNames lists stored graphs in key order, which is ascending by name.
func (s *Source) GraphNames(ctx context.Context) ([]catalog.GraphName, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var names []catalog.GraphName
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(schemaTag)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			names = append(names, graphNameFromSchemaKey(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// HasGraph reports whether a schema record exists for name.
func (s *Source) HasGraph(ctx context.Context, name catalog.GraphName) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if err := validateName(name); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		return requireGraph(txn, name)
	})
	if errors.Is(err, catalog.ErrUnknownGraph) {
		return false, nil
	}
	return err == nil, err
}

func requireGraph(txn *badger.Txn, name catalog.GraphName) error {
	_, err := txn.Get(schemaKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownGraph, name)
	}
	return err
}

// scan calls fn with the value of every key under prefix.
func scan(ctx context.Context, txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// keysWithPrefix returns every key under prefix as a set.
func (s *Source) keysWithPrefix(prefix []byte) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys[string(it.Item().Key())] = struct{}{}
		}
		return nil
	})
	return keys, err
}
