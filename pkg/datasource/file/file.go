// Package file serves a directory of graph files as a data source.
//
// Graph <name> lives in <name>.json (Neo4j export format, flat or APOC
// relationships) or in <name>.yaml / <name>.yml with the same structure. An
// optional <name>.schema.yaml sidecar is served as the graph's schema; graphs
// without one make the catalog derive their schema from the full graph.
//
// Loaded graphs are kept in an LRU cache and concurrent loads of the same graph
// are collapsed into one read. Watch invalidates cached graphs when their files
// change on disk.
//
// Example directory:
//
//	graphs/
//	  people.json
//	  people.schema.yaml
//	  cities.yaml
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/orneryd/nornicfed/pkg/cache"
	"github.com/orneryd/nornicfed/pkg/catalog"
	"github.com/orneryd/nornicfed/pkg/convert"
	"github.com/orneryd/nornicfed/pkg/logging"
	"github.com/orneryd/nornicfed/pkg/schema"
	"github.com/orneryd/nornicfed/pkg/storage"
)

const schemaSuffix = ".schema.yaml"

// graphExtensions in lookup order.
var graphExtensions = []string{".json", ".yaml", ".yml"}

// Options configures a Source.
type Options struct {
	// Dir holds the graph files. Created if missing.
	Dir string

	// MaxGraphs bounds the number of cached graphs (0 = cache default).
	MaxGraphs int

	// TTL after which a cached graph is reloaded (0 = never).
	TTL time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Source is a catalog.DataSource over a directory.
//
// Thread Safety:
//
//	Safe for concurrent use. Store and Delete are serialized.
type Source struct {
	dir    string
	logger *slog.Logger

	graphs     *cache.LRU[*storage.MemoryEngine]
	loads      singleflight.Group
	generation atomic.Uint64

	writeMu sync.Mutex

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
}

var _ catalog.DataSource = (*Source)(nil)

// New opens the directory described by opts.
func New(opts Options) (*Source, error) {
	if opts.Dir == "" {
		return nil, errors.New("file source: directory required")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}

	return &Source{
		dir:    opts.Dir,
		logger: logging.OrDefault(opts.Logger).With("source", "file", "dir", opts.Dir),
		graphs: cache.New[*storage.MemoryEngine](opts.MaxGraphs, opts.TTL),
	}, nil
}

// Dir returns the directory served by the source.
func (s *Source) Dir() string {
	return s.dir
}

// CacheStats reports the graph cache statistics.
func (s *Source) CacheStats() cache.Stats {
	return s.graphs.Stats()
}

func validateName(name catalog.GraphName) error {
	n := string(name)
	switch {
	case n == "", n == ".", n == "..":
		return fmt.Errorf("%w: %q", catalog.ErrInvalidGraphName, name)
	case strings.ContainsAny(n, `/\`), strings.HasPrefix(n, "."):
		return fmt.Errorf("%w: %q is not a plain file name", catalog.ErrInvalidGraphName, name)
	case strings.HasSuffix(n, ".schema"):
		return fmt.Errorf("%w: %q collides with schema sidecars", catalog.ErrInvalidGraphName, name)
	}
	return nil
}

// graphFile returns the path of the file holding name, or "" if none exists.
func (s *Source) graphFile(name catalog.GraphName) (string, error) {
	for _, ext := range graphExtensions {
		path := filepath.Join(s.dir, string(name)+ext)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", nil
}

func (s *Source) schemaFile(name catalog.GraphName) string {
	return filepath.Join(s.dir, string(name)+schemaSuffix)
}

// Graph returns a copy of the graph, loading it from disk on a cache miss.
func (s *Source) Graph(ctx context.Context, name catalog.GraphName) (*storage.MemoryEngine, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if g, ok := s.graphs.Get(string(name)); ok {
		return g.Clone()
	}

	result, err, shared := s.loads.Do(string(name), func() (any, error) {
		if g, ok := s.graphs.Get(string(name)); ok {
			return g, nil
		}

		gen := s.generation.Load()
		g, err := s.load(name)
		if err != nil {
			return nil, err
		}
		if s.generation.Load() == gen {
			s.graphs.Put(string(name), g)
		}
		return g, nil
	})
	if err != nil {
		return nil, err
	}

	g, ok := result.(*storage.MemoryEngine)
	if !ok {
		return nil, fmt.Errorf("load %s: unexpected result %T", name, result)
	}
	if shared {
		s.logger.Debug("graph load shared", "graph", string(name))
	}
	return g.Clone()
}

func (s *Source) load(name catalog.GraphName) (*storage.MemoryEngine, error) {
	path, err := s.graphFile(name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownGraph, name)
	}

	start := time.Now()
	g, err := ReadGraphFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	nodes, _ := g.NodeCount()
	s.logger.Debug("graph loaded", "graph", string(name), "nodes", nodes, "elapsed", time.Since(start))
	return g, nil
}

// Schema serves the <name>.schema.yaml sidecar when there is one.
func (s *Source) Schema(ctx context.Context, name catalog.GraphName) (*schema.Schema, bool, error) {
	if err := validateName(name); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	path, err := s.graphFile(name)
	if err != nil {
		return nil, false, err
	}
	if path == "" {
		return nil, false, fmt.Errorf("%w: %s", catalog.ErrUnknownGraph, name)
	}

	sch, err := schema.LoadFile(s.schemaFile(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("schema %s: %w", name, err)
	}
	return sch, true, nil
}

// Store writes g as <name>.json together with its schema sidecar. Files of
// other formats for the same name are removed.
func (s *Source) Store(ctx context.Context, name catalog.GraphName, g *storage.MemoryEngine) error {
	if err := validateName(name); err != nil {
		return err
	}

	sch, err := schema.FromGraph(ctx, g)
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	export, err := storage.ExportEngine(g)
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	schemaData, err := sch.MarshalYAMLBytes()
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	defer s.invalidate(name)

	if err := s.writeAtomic(string(name)+".json", data); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	if err := s.writeAtomic(string(name)+schemaSuffix, schemaData); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	for _, ext := range graphExtensions[1:] {
		if err := removeIfExists(filepath.Join(s.dir, string(name)+ext)); err != nil {
			return fmt.Errorf("store %s: %w", name, err)
		}
	}
	return nil
}

// Delete removes the graph file and its sidecar.
func (s *Source) Delete(ctx context.Context, name catalog.GraphName) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	defer s.invalidate(name)

	path, err := s.graphFile(name)
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownGraph, name)
	}

	for _, ext := range graphExtensions {
		if err := removeIfExists(filepath.Join(s.dir, string(name)+ext)); err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
	}
	return removeIfExists(s.schemaFile(name))
}

// GraphNames lists graphs with a file in the directory, sorted.
func (s *Source) GraphNames(ctx context.Context) ([]catalog.GraphName, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[catalog.GraphName]struct{})
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := graphNameOf(e.Name()); ok {
			seen[name] = struct{}{}
		}
	}

	names := make([]catalog.GraphName, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names, nil
}

// HasGraph reports whether a graph file exists for name.
func (s *Source) HasGraph(ctx context.Context, name catalog.GraphName) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.graphFile(name)
	return path != "", err
}

// graphNameOf maps a file name to the graph it holds. Sidecars, dotfiles and
// unknown extensions hold none.
func graphNameOf(file string) (catalog.GraphName, bool) {
	if strings.HasPrefix(file, ".") || strings.HasSuffix(file, schemaSuffix) {
		return "", false
	}
	for _, ext := range graphExtensions {
		if base, ok := strings.CutSuffix(file, ext); ok && base != "" {
			return catalog.GraphName(base), true
		}
	}
	return "", false
}

// sidecarOwner maps a sidecar file name to its graph.
func sidecarOwner(file string) (catalog.GraphName, bool) {
	base, ok := strings.CutSuffix(file, schemaSuffix)
	if !ok || base == "" {
		return "", false
	}
	return catalog.GraphName(base), true
}

func (s *Source) invalidate(name catalog.GraphName) {
	s.generation.Add(1)
	s.graphs.Remove(string(name))
}

func (s *Source) writeAtomic(file string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, file))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ReadGraphFile reads a graph in Neo4j export format from a .json, .yaml or
// .yml file. Numeric properties are normalized to int64 and float64.
func ReadGraphFile(path string) (*storage.MemoryEngine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var export storage.Neo4jExport
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&export); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &export); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("parse %s: unsupported file type", filepath.Base(path))
	}

	for i := range export.Nodes {
		normalizeProperties(export.Nodes[i].Properties)
	}
	for i := range export.Relationships {
		normalizeProperties(export.Relationships[i].Properties)
	}
	return storage.LoadNeo4jExport(&export)
}

func normalizeProperties(props map[string]any) {
	for k, v := range props {
		props[k] = normalize(v)
	}
}

func normalize(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64, int64:
		return v
	case []any:
		for i := range val {
			val[i] = normalize(val[i])
		}
		return val
	case map[string]any:
		normalizeProperties(val)
		return val
	}
	if i, ok := convert.Integer(v); ok {
		return i
	}
	if f, ok := convert.Float(v); ok {
		return f
	}
	return v
}
