// Package neo4j exposes the databases of a Neo4j server as read-only graphs.
//
// Each Neo4j database is one graph. Graph reads every node and relationship of
// the database; Schema asks the server's db.schema procedures, so the catalog
// never has to scan a remote database to learn its schema.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/orneryd/nornicfed/pkg/catalog"
	"github.com/orneryd/nornicfed/pkg/logging"
	"github.com/orneryd/nornicfed/pkg/schema"
	"github.com/orneryd/nornicfed/pkg/storage"
	"github.com/orneryd/nornicfed/pkg/types"
	"github.com/orneryd/nornicfed/pkg/value"
)

// ErrMissingURI is returned by Open without a server URI.
var ErrMissingURI = errors.New("neo4j: uri required")

const systemDatabase = "system"

const (
	nodesQuery         = "MATCH (n) RETURN n"
	relationshipsQuery = "MATCH ()-[r]->() RETURN r"
	nodeSchemaQuery    = "CALL db.schema.nodeTypeProperties() YIELD nodeLabels, propertyName, propertyTypes, mandatory RETURN nodeLabels, propertyName, propertyTypes, mandatory"
	relSchemaQuery     = "CALL db.schema.relTypeProperties() YIELD relType, propertyName, propertyTypes, mandatory RETURN relType, propertyName, propertyTypes, mandatory"
	databasesQuery     = "SHOW DATABASES YIELD name RETURN DISTINCT name"
)

// Record is one result row keyed by column name.
type Record map[string]any

// Runner executes read queries against a named database.
type Runner interface {
	Run(ctx context.Context, database, cypher string, params map[string]any) ([]Record, error)
	Close(ctx context.Context) error
}

// Options configures the connection.
type Options struct {
	URI            string
	Username       string
	Password       string
	Database       string // restrict the source to one database
	MaxConnections int
	Logger         *slog.Logger
}

// Source is a read-only catalog.DataSource backed by a Neo4j server.
type Source struct {
	runner   Runner
	database string
	logger   *slog.Logger

	closeOnce sync.Once
}

var _ catalog.DataSource = (*Source)(nil)

// Open connects to the server and verifies connectivity.
func Open(ctx context.Context, opts Options) (*Source, error) {
	if opts.URI == "" {
		return nil, ErrMissingURI
	}

	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, auth, func(c *neo4j.Config) {
		if opts.MaxConnections > 0 {
			c.MaxConnectionPoolSize = opts.MaxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	return NewWithRunner(&driverRunner{driver: driver}, opts.Database, opts.Logger), nil
}

// NewWithRunner builds a Source over an existing Runner. A non-empty database
// restricts the source to that single graph.
func NewWithRunner(r Runner, database string, logger *slog.Logger) *Source {
	return &Source{
		runner:   r,
		database: database,
		logger:   logging.OrDefault(logger).With("source", "neo4j"),
	}
}

func (s *Source) checkName(ctx context.Context, name catalog.GraphName) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", catalog.ErrInvalidGraphName)
	}
	if s.database != "" && string(name) != s.database {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownGraph, name)
	}
	return ctx.Err()
}

// Graph reads the whole database into memory.
func (s *Source) Graph(ctx context.Context, name catalog.GraphName) (*storage.MemoryEngine, error) {
	if err := s.checkName(ctx, name); err != nil {
		return nil, err
	}
	db := string(name)

	nodeRows, err := s.runner.Run(ctx, db, nodesQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("read nodes of %s: %w", name, err)
	}
	nodes := make([]*storage.Node, 0, len(nodeRows))
	for _, row := range nodeRows {
		n, ok := row["n"].(dbtype.Node)
		if !ok {
			return nil, fmt.Errorf("read nodes of %s: unexpected %T", name, row["n"])
		}
		nodes = append(nodes, &storage.Node{
			ID:         storage.NodeID(n.ElementId),
			Labels:     n.Labels,
			Properties: s.properties(n.Props),
		})
	}

	relRows, err := s.runner.Run(ctx, db, relationshipsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("read relationships of %s: %w", name, err)
	}
	edges := make([]*storage.Edge, 0, len(relRows))
	for _, row := range relRows {
		r, ok := row["r"].(dbtype.Relationship)
		if !ok {
			return nil, fmt.Errorf("read relationships of %s: unexpected %T", name, row["r"])
		}
		edges = append(edges, &storage.Edge{
			ID:         storage.EdgeID(r.ElementId),
			StartNode:  storage.NodeID(r.StartElementId),
			EndNode:    storage.NodeID(r.EndElementId),
			Type:       r.Type,
			Properties: s.properties(r.Props),
		})
	}

	g := storage.NewMemoryEngine()
	if err := g.BulkCreateNodes(nodes); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if err := g.BulkCreateEdges(edges); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	s.logger.Debug("graph read", "graph", db, "nodes", len(nodes), "relationships", len(edges))
	return g, nil
}

// properties converts driver values the value model has no representation for
// (temporal and spatial types) to their string form.
func (s *Source) properties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = s.property(k, v)
	}
	return out
}

func (s *Source) property(key string, v any) any {
	switch val := v.(type) {
	case []any:
		list := make([]any, len(val))
		for i, e := range val {
			list[i] = s.property(key, e)
		}
		return list
	case map[string]any:
		return s.properties(val)
	}

	if _, err := value.FromAny(v); err == nil {
		return v
	}
	if str, ok := v.(fmt.Stringer); ok {
		s.logger.Debug("property stored as string", "key", key, "type", fmt.Sprintf("%T", v))
		return str.String()
	}
	s.logger.Warn("property dropped", "key", key, "type", fmt.Sprintf("%T", v))
	return nil
}

// Schema asks the server for the schema of the database.
func (s *Source) Schema(ctx context.Context, name catalog.GraphName) (*schema.Schema, bool, error) {
	if err := s.checkName(ctx, name); err != nil {
		return nil, false, err
	}
	db := string(name)
	out := schema.New()

	nodeRows, err := s.runner.Run(ctx, db, nodeSchemaQuery, nil)
	if err != nil {
		return nil, false, fmt.Errorf("node schema of %s: %w", name, err)
	}
	for _, row := range nodeRows {
		labels := stringList(row["nodeLabels"])
		out.AddLabelCombination(labels...)
		key, t, ok := s.propertyType(row)
		if !ok {
			continue
		}
		if prev, seen := out.Nodes[schema.LabelKey(labels...)][key]; seen {
			t = types.Join(prev, t)
		}
		out.SetNodeProperty(labels, key, t)
	}

	relRows, err := s.runner.Run(ctx, db, relSchemaQuery, nil)
	if err != nil {
		return nil, false, fmt.Errorf("relationship schema of %s: %w", name, err)
	}
	for _, row := range relRows {
		relType := parseRelType(row["relType"])
		out.AddRelationshipType(relType)
		key, t, ok := s.propertyType(row)
		if !ok {
			continue
		}
		if prev, seen := out.Relationships[relType][key]; seen {
			t = types.Join(prev, t)
		}
		out.SetRelationshipProperty(relType, key, t)
	}

	return out, true, nil
}

// propertyType reads propertyName, propertyTypes and mandatory from a schema
// procedure row. Rows for entities without properties have no name.
func (s *Source) propertyType(row Record) (string, types.CypherType, bool) {
	key, _ := row["propertyName"].(string)
	if key == "" {
		return "", types.CypherType{}, false
	}

	names := stringList(row["propertyTypes"])
	if len(names) == 0 {
		names = []string{""}
	}

	ts := make([]types.CypherType, 0, len(names))
	for _, name := range names {
		pt, ok := neo4jTypes[name]
		if !ok {
			s.logger.Warn("unknown property type", "key", key, "type", name)
			pt = types.Any
		}
		ts = append(ts, pt)
	}
	t := ts[0]
	for _, pt := range ts[1:] {
		t = types.Join(t, pt)
	}

	if mandatory, _ := row["mandatory"].(bool); !mandatory {
		t = t.Nullable()
	}
	return key, t, true
}

// neo4jTypes maps db.schema property type names to Cypher types. Temporal and
// spatial types are read as strings by Graph.
var neo4jTypes = map[string]types.CypherType{
	"String":             types.String,
	"Long":               types.Integer,
	"Integer":            types.Integer,
	"Double":             types.Float,
	"Float":              types.Float,
	"Boolean":            types.Boolean,
	"StringArray":        types.ListOf(types.String),
	"LongArray":          types.ListOf(types.Integer),
	"DoubleArray":        types.ListOf(types.Float),
	"BooleanArray":       types.ListOf(types.Boolean),
	"Date":               types.String,
	"DateTime":           types.String,
	"LocalDateTime":      types.String,
	"Time":               types.String,
	"LocalTime":          types.String,
	"Duration":           types.String,
	"Point":              types.String,
	"DateArray":          types.ListOf(types.String),
	"DateTimeArray":      types.ListOf(types.String),
	"LocalDateTimeArray": types.ListOf(types.String),
	"DurationArray":      types.ListOf(types.String),
	"PointArray":         types.ListOf(types.String),
}

// parseRelType turns ":`KNOWS`" into "KNOWS".
func parseRelType(v any) string {
	s, _ := v.(string)
	s = strings.TrimPrefix(s, ":")
	s = strings.TrimPrefix(s, "`")
	s = strings.TrimSuffix(s, "`")
	return strings.ReplaceAll(s, "``", "`")
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Store is not supported.
func (s *Source) Store(_ context.Context, name catalog.GraphName, _ *storage.MemoryEngine) error {
	return fmt.Errorf("store %s: %w", name, catalog.ErrReadOnly)
}

// Delete is not supported.
func (s *Source) Delete(_ context.Context, name catalog.GraphName) error {
	return fmt.Errorf("delete %s: %w", name, catalog.ErrReadOnly)
}

// GraphNames lists the server's user databases, or the configured one.
func (s *Source) GraphNames(ctx context.Context) ([]catalog.GraphName, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.database != "" {
		return []catalog.GraphName{catalog.GraphName(s.database)}, nil
	}

	rows, err := s.runner.Run(ctx, systemDatabase, databasesQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}

	names := make([]catalog.GraphName, 0, len(rows))
	for _, row := range rows {
		name, _ := row["name"].(string)
		if name == "" || name == systemDatabase {
			continue
		}
		names = append(names, catalog.GraphName(name))
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names, nil
}

// HasGraph reports whether name is one of GraphNames.
func (s *Source) HasGraph(ctx context.Context, name catalog.GraphName) (bool, error) {
	names, err := s.GraphNames(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// Close releases the driver.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.runner.Close(context.Background())
	})
	return err
}

type driverRunner struct {
	driver neo4j.DriverWithContext
}

func (r *driverRunner) Run(ctx context.Context, database, cypher string, params map[string]any) ([]Record, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return consumeResult(ctx, res)
}

func (r *driverRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func consumeResult(ctx context.Context, res neo4j.ResultWithContext) ([]Record, error) {
	var records []Record
	for res.Next(ctx) {
		rec := res.Record()
		record := make(Record, len(rec.Keys))
		for _, key := range rec.Keys {
			v, _ := rec.Get(key)
			record[key] = v
		}
		records = append(records, record)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
