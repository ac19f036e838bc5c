package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/orneryd/nornicfed/pkg/catalog"
	"github.com/orneryd/nornicfed/pkg/config"
	"github.com/orneryd/nornicfed/pkg/datasource/badgerdb"
	"github.com/orneryd/nornicfed/pkg/datasource/file"
	"github.com/orneryd/nornicfed/pkg/datasource/memory"
	"github.com/orneryd/nornicfed/pkg/datasource/neo4j"
	"github.com/orneryd/nornicfed/pkg/logging"
)

// Mount opens and registers each configured source. The session owns mounted
// sources and closes them on DeregisterSource or Close. Mounting stops at the
// first failure; sources mounted before it stay registered.
func (s *Session) Mount(ctx context.Context, sources []config.SourceConfig) error {
	for _, cfg := range sources {
		if err := s.checkOpen(); err != nil {
			return err
		}

		ds, err := OpenSource(ctx, cfg, s.cache, s.logger)
		if err != nil {
			return fmt.Errorf("mount %s: %w", cfg.Name, err)
		}

		if fs, ok := ds.(*file.Source); ok && cfg.Watch {
			if err := fs.Watch(s.ctx); err != nil {
				closeSource(ds)
				return fmt.Errorf("mount %s: %w", cfg.Name, err)
			}
		}

		ns, err := catalog.NormalizeNamespace(catalog.Namespace(cfg.Name))
		if err != nil {
			closeSource(ds)
			return fmt.Errorf("mount %s: %w", cfg.Name, err)
		}
		if err := s.catalog.Register(ns, ds); err != nil {
			closeSource(ds)
			return fmt.Errorf("mount %s: %w", cfg.Name, err)
		}

		s.mu.Lock()
		closedMeanwhile := s.owned == nil
		if c, ok := ds.(io.Closer); ok && !closedMeanwhile {
			s.owned[ns] = c
		}
		s.mu.Unlock()
		if closedMeanwhile {
			closeSource(ds)
			return ErrClosed
		}

		s.logger.Info("data source mounted", "namespace", cfg.Name, "type", cfg.Type)
	}
	return nil
}

// OpenSource opens the data source described by cfg. File sources use the
// cache settings in cache.
func OpenSource(ctx context.Context, cfg config.SourceConfig, cache config.CacheConfig, logger *slog.Logger) (catalog.DataSource, error) {
	logger = logging.OrDefault(logger).With("namespace", cfg.Name)

	switch cfg.Type {
	case config.SourceMemory:
		return memory.New(), nil

	case config.SourceBadger:
		src, err := badgerdb.Open(badgerdb.Options{
			Dir:            cfg.Path,
			InMemory:       cfg.InMemory,
			SyncWrites:     optionBool(cfg.Options, "sync_writes"),
			BlockCacheSize: config.ParseMemorySize(cfg.BlockCacheSize),
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		return src, nil

	case config.SourceFile:
		src, err := file.New(file.Options{
			Dir:       cfg.Path,
			MaxGraphs: cache.MaxGraphs,
			TTL:       cache.TTL,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return src, nil

	case config.SourceNeo4j:
		maxConns, _ := strconv.Atoi(cfg.Options["max_connections"])
		src, err := neo4j.Open(ctx, neo4j.Options{
			URI:            cfg.URI,
			Username:       cfg.Username,
			Password:       cfg.Password,
			Database:       cfg.Options["database"],
			MaxConnections: maxConns,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return nil, fmt.Errorf("%w: unknown source type %q", config.ErrInvalidConfig, cfg.Type)
}

func optionBool(opts map[string]string, key string) bool {
	b, _ := strconv.ParseBool(opts[key])
	return b
}

func closeSource(ds catalog.DataSource) {
	if c, ok := ds.(io.Closer); ok {
		c.Close()
	}
}
