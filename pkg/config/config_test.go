package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the loader reads so ambient settings on the
// test machine do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"NORNICFED_SESSION_NAMESPACE", "NORNICFED_SOURCES",
		"NORNICFED_LOG_LEVEL", "NORNICFED_LOG_FORMAT", "NORNICFED_LOG_OUTPUT",
		"NORNICFED_CACHE_MAX_GRAPHS", "NORNICFED_CACHE_TTL", "NEO4J_AUTH",
	} {
		t.Setenv(k, "")
	}
}

// =============================================================================
// LoadFromEnv Tests
// =============================================================================

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := LoadFromEnv()
	assert.Equal(t, DefaultSessionNamespace, cfg.Session.Namespace)
	assert.Empty(t, cfg.Sources)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 64, cfg.Cache.MaxGraphs)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NORNICFED_SESSION_NAMESPACE", "mine")
	t.Setenv("NORNICFED_SOURCES", "archive:badger:./data/archive, prod:neo4j:neo4j://db:7687 ,scratch:memory")
	t.Setenv("NORNICFED_LOG_LEVEL", "debug")
	t.Setenv("NORNICFED_CACHE_MAX_GRAPHS", "8")
	t.Setenv("NORNICFED_CACHE_TTL", "30")
	t.Setenv("NEO4J_AUTH", "neo4j/secret")

	cfg := LoadFromEnv()
	assert.Equal(t, "mine", cfg.Session.Namespace)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Cache.MaxGraphs)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)

	require.Len(t, cfg.Sources, 3)
	assert.Equal(t, SourceConfig{Name: "archive", Type: SourceBadger, Path: "./data/archive"}, cfg.Sources[0])
	assert.Equal(t, SourceConfig{Name: "prod", Type: SourceNeo4j, URI: "neo4j://db:7687", Username: "neo4j", Password: "secret"}, cfg.Sources[1])
	assert.Equal(t, SourceConfig{Name: "scratch", Type: SourceMemory}, cfg.Sources[2])
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_InvalidNumbersKeepDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("NORNICFED_CACHE_MAX_GRAPHS", "many")
	t.Setenv("NORNICFED_CACHE_TTL", "soon")

	cfg := LoadFromEnv()
	assert.Equal(t, 64, cfg.Cache.MaxGraphs)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
}

// =============================================================================
// LoadFile Tests
// =============================================================================

const sampleYAML = `
session:
  namespace: local
sources:
  - name: archive
    type: badger
    in_memory: true
    block_cache_size: 64MB
  - name: fixtures
    type: file
    path: ./graphs
    watch: true
  - name: prod
    type: neo4j
    uri: neo4j://localhost:7687
    username: reader
    password: hunter2
    options:
      database: movies
logging:
  level: warn
  format: json
cache:
  ttl: 5m
`

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nornicfed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Session.Namespace)
	require.Len(t, cfg.Sources, 3)
	assert.True(t, cfg.Sources[0].InMemory)
	assert.Equal(t, int64(64<<20), ParseMemorySize(cfg.Sources[0].BlockCacheSize))
	assert.True(t, cfg.Sources[1].Watch)
	assert.Equal(t, "movies", cfg.Sources[2].Options["database"])
	assert.Equal(t, "reader", cfg.Sources[2].Username)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output, "unset keys keep defaults")
	assert.Equal(t, 64, cfg.Cache.MaxGraphs)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("NORNICFED_LOG_LEVEL", "error")
	t.Setenv("NEO4J_AUTH", "other/pass")

	path := filepath.Join(t.TempDir(), "nornicfed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "reader", cfg.Sources[2].Username, "explicit credentials win over NEO4J_AUTH")
}

func TestLoadFile_Errors(t *testing.T) {
	clearEnv(t)

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources: {not: a list"), 0644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFromEnvOrFile(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnvOrFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionNamespace, cfg.Session.Namespace)

	path := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - name: x\n    type: ftp\n"), 0644))
	_, err = LoadFromEnvOrFile(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// =============================================================================
// Validate Tests
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"empty session namespace", func(c *Config) { c.Session.Namespace = "" }, false},
		{"dotted session namespace", func(c *Config) { c.Session.Namespace = "a.b" }, false},
		{"source shadows session", func(c *Config) {
			c.Sources = []SourceConfig{{Name: DefaultSessionNamespace, Type: SourceMemory}}
		}, false},
		{"duplicate sources", func(c *Config) {
			c.Sources = []SourceConfig{{Name: "a", Type: SourceMemory}, {Name: "a", Type: SourceMemory}}
		}, false},
		{"unknown type", func(c *Config) { c.Sources = []SourceConfig{{Name: "a", Type: "ftp"}} }, false},
		{"badger without path", func(c *Config) { c.Sources = []SourceConfig{{Name: "a", Type: SourceBadger}} }, false},
		{"badger in memory", func(c *Config) {
			c.Sources = []SourceConfig{{Name: "a", Type: SourceBadger, InMemory: true}}
		}, true},
		{"badger bad cache size", func(c *Config) {
			c.Sources = []SourceConfig{{Name: "a", Type: SourceBadger, Path: "x", BlockCacheSize: "lots"}}
		}, false},
		{"file without path", func(c *Config) { c.Sources = []SourceConfig{{Name: "a", Type: SourceFile}} }, false},
		{"neo4j without uri", func(c *Config) { c.Sources = []SourceConfig{{Name: "a", Type: SourceNeo4j}} }, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, false},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, false},
		{"negative cache", func(c *Config) { c.Cache.MaxGraphs = -1 }, false},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestString_OmitsCredentials(t *testing.T) {
	cfg := Default()
	cfg.Sources = []SourceConfig{{Name: "prod", Type: SourceNeo4j, URI: "neo4j://x", Username: "u", Password: "hunter2"}}

	s := cfg.String()
	assert.Contains(t, s, "prod(neo4j)")
	assert.NotContains(t, s, "hunter2")
}

// =============================================================================
// ParseMemorySize Tests
// =============================================================================

func TestParseMemorySize(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1024", 1024},
		{"1024B", 1024},
		{"1K", 1 << 10},
		{"512kb", 512 << 10},
		{"64MB", 64 << 20},
		{"2gb", 2 << 30},
		{"1T", 1 << 40},
		{"  2GB  ", 2 << 30},
		{"0", 0},
		{"unlimited", 0},
		{"", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMemorySize(tt.input))
		})
	}
}
