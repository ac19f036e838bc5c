// Package config handles NornicFed configuration from environment variables and
// YAML files.
//
// A configuration names the session namespace, the data sources to mount as
// further namespaces, and the logging and cache settings shared by them.
//
// Example Usage:
//
//	cfg, err := config.LoadFromEnvOrFile(os.Getenv("NORNICFED_CONFIG"))
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//	fmt.Println(cfg)
//
// Example file:
//
//	session:
//	  namespace: session
//	sources:
//	  - name: archive
//	    type: badger
//	    path: ./data/archive
//	  - name: fixtures
//	    type: file
//	    path: ./testdata/graphs
//	    watch: true
//	  - name: prod
//	    type: neo4j
//	    uri: neo4j://localhost:7687
//	    username: neo4j
//	logging:
//	  level: info
//	  format: text
//	cache:
//	  max_graphs: 64
//	  ttl: 10m
//
// Environment Variables:
//   - NORNICFED_SESSION_NAMESPACE="session"
//   - NORNICFED_SOURCES="archive:badger:./data/archive,fixtures:file:./graphs"
//   - NORNICFED_LOG_LEVEL=debug|info|warn|error
//   - NORNICFED_LOG_FORMAT=text|json
//   - NORNICFED_LOG_OUTPUT=stderr|stdout|<file>
//   - NORNICFED_CACHE_MAX_GRAPHS=64
//   - NORNICFED_CACHE_TTL=10m
//   - NEO4J_AUTH="username/password" (credentials for neo4j sources that set none)
//
// Environment variables override values read from a file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source types understood by Mount.
const (
	SourceMemory = "memory"
	SourceBadger = "badger"
	SourceFile   = "file"
	SourceNeo4j  = "neo4j"
)

// DefaultSessionNamespace is the namespace of the session's own graphs.
const DefaultSessionNamespace = "session"

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all NornicFed configuration.
//
// Configuration is organized into logical sections:
//   - Session: the built-in session namespace
//   - Sources: data sources mounted as additional namespaces
//   - Logging: slog handler settings
//   - Cache: graph load cache used by file sources
type Config struct {
	Session SessionConfig  `yaml:"session"`
	Sources []SourceConfig `yaml:"sources"`
	Logging LoggingConfig  `yaml:"logging"`
	Cache   CacheConfig    `yaml:"cache"`
}

// SessionConfig holds session settings.
type SessionConfig struct {
	// Namespace of the session's own graphs. Must not contain ".".
	Namespace string `yaml:"namespace"`
}

// SourceConfig describes one data source to mount.
type SourceConfig struct {
	// Name is the namespace the source is registered under.
	Name string `yaml:"name"`
	// Type is one of memory, badger, file, neo4j.
	Type string `yaml:"type"`
	// Path is the badger data directory or the file source directory.
	Path string `yaml:"path"`
	// URI of a neo4j server.
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// InMemory runs a badger source without touching disk.
	InMemory bool `yaml:"in_memory"`
	// Watch invalidates cached graphs of a file source when files change.
	Watch bool `yaml:"watch"`
	// BlockCacheSize for badger, e.g. "64MB". Empty keeps the badger default.
	BlockCacheSize string `yaml:"block_cache_size"`
	// Options are passed through to the source unchanged.
	Options map[string]string `yaml:"options"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (debug, info, warn, error)
	Level string `yaml:"level"`
	// Format (json, text)
	Format string `yaml:"format"`
	// Output (stdout, stderr, or file path)
	Output string `yaml:"output"`
}

// CacheConfig holds graph cache settings.
type CacheConfig struct {
	// MaxGraphs bounds the number of loaded graphs kept per file source.
	MaxGraphs int `yaml:"max_graphs"`
	// TTL after which a cached graph is reloaded (0 = never).
	TTL time.Duration `yaml:"ttl"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Session: SessionConfig{Namespace: DefaultSessionNamespace},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stderr"},
		Cache:   CacheConfig{MaxGraphs: 64, TTL: 10 * time.Minute},
	}
}

// LoadFromEnv loads configuration from environment variables on top of the
// defaults.
//
// Example:
//
//	os.Setenv("NORNICFED_SOURCES", "archive:badger:./data/archive")
//	cfg := config.LoadFromEnv()
//	// cfg.Sources[0] = {Name: "archive", Type: "badger", Path: "./data/archive"}
func LoadFromEnv() *Config {
	cfg := Default()
	applyEnv(cfg)
	return cfg
}

// LoadFile reads a YAML configuration file, fills unset values with defaults
// and applies environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadFromEnvOrFile loads path when it is non-empty and the environment alone
// otherwise. The result is validated.
func LoadFromEnvOrFile(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = LoadFromEnv()
	} else {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Session.Namespace = getEnv("NORNICFED_SESSION_NAMESPACE", cfg.Session.Namespace)

	for _, spec := range getEnvStringSlice("NORNICFED_SOURCES", nil) {
		cfg.Sources = append(cfg.Sources, parseSourceSpec(spec))
	}

	cfg.Logging.Level = getEnv("NORNICFED_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("NORNICFED_LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Output = getEnv("NORNICFED_LOG_OUTPUT", cfg.Logging.Output)

	cfg.Cache.MaxGraphs = getEnvInt("NORNICFED_CACHE_MAX_GRAPHS", cfg.Cache.MaxGraphs)
	cfg.Cache.TTL = getEnvDuration("NORNICFED_CACHE_TTL", cfg.Cache.TTL)

	// Neo4j-compatible credentials: "username/password" or "none".
	if auth := os.Getenv("NEO4J_AUTH"); auth != "" && auth != "none" {
		user, pass, _ := strings.Cut(auth, "/")
		for i := range cfg.Sources {
			s := &cfg.Sources[i]
			if s.Type == SourceNeo4j && s.Username == "" {
				s.Username, s.Password = user, pass
			}
		}
	}
}

// parseSourceSpec parses "name:type:location". Location is a path, or a URI for
// neo4j sources; it may itself contain ":".
func parseSourceSpec(spec string) SourceConfig {
	parts := strings.SplitN(spec, ":", 3)
	sc := SourceConfig{Name: parts[0]}
	if len(parts) > 1 {
		sc.Type = strings.ToLower(parts[1])
	}
	if len(parts) > 2 {
		if sc.Type == SourceNeo4j {
			sc.URI = parts[2]
		} else {
			sc.Path = parts[2]
		}
	}
	return sc
}

// Validate checks the configuration for logical errors and invalid values.
//
// This method checks:
//   - The session namespace is set and contains no "."
//   - Every source has a unique name distinct from the session namespace
//   - Every source has a known type and the location that type needs
//   - Logging level and format are known
//   - Cache bounds are not negative
//
// Returns nil if the configuration is valid. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validateNamespace(c.Session.Namespace); err != nil {
		return fmt.Errorf("%w: session: %v", ErrInvalidConfig, err)
	}

	seen := map[string]bool{c.Session.Namespace: true}
	for i, s := range c.Sources {
		if err := validateNamespace(s.Name); err != nil {
			return fmt.Errorf("%w: sources[%d]: %v", ErrInvalidConfig, i, err)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: sources[%d]: duplicate namespace %q", ErrInvalidConfig, i, s.Name)
		}
		seen[s.Name] = true

		switch s.Type {
		case SourceMemory:
		case SourceBadger:
			if s.Path == "" && !s.InMemory {
				return fmt.Errorf("%w: sources[%d]: badger source %q needs a path or in_memory", ErrInvalidConfig, i, s.Name)
			}
			if s.BlockCacheSize != "" && ParseMemorySize(s.BlockCacheSize) <= 0 {
				return fmt.Errorf("%w: sources[%d]: invalid block_cache_size %q", ErrInvalidConfig, i, s.BlockCacheSize)
			}
		case SourceFile:
			if s.Path == "" {
				return fmt.Errorf("%w: sources[%d]: file source %q needs a path", ErrInvalidConfig, i, s.Name)
			}
		case SourceNeo4j:
			if s.URI == "" {
				return fmt.Errorf("%w: sources[%d]: neo4j source %q needs a uri", ErrInvalidConfig, i, s.Name)
			}
		default:
			return fmt.Errorf("%w: sources[%d]: unknown source type %q", ErrInvalidConfig, i, s.Type)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}

	if c.Cache.MaxGraphs < 0 {
		return fmt.Errorf("%w: cache.max_graphs must not be negative", ErrInvalidConfig)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("%w: cache.ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}

func validateNamespace(ns string) error {
	if strings.TrimSpace(ns) == "" {
		return errors.New("empty namespace")
	}
	if strings.Contains(ns, ".") {
		return fmt.Errorf("namespace %q must not contain '.'", ns)
	}
	return nil
}

// String returns a safe string representation of the Config.
//
// Credentials are NOT included in the output, making this safe for logging.
//
// Example:
//
//	Config{Session: session, Sources: [archive(badger) prod(neo4j)], Log: info/text, Cache: 64/10m0s}
func (c *Config) String() string {
	sources := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		sources[i] = fmt.Sprintf("%s(%s)", s.Name, s.Type)
	}
	return fmt.Sprintf(
		"Config{Session: %s, Sources: [%s], Log: %s/%s, Cache: %d/%s}",
		c.Session.Namespace,
		strings.Join(sources, " "),
		c.Logging.Level, c.Logging.Format,
		c.Cache.MaxGraphs, c.Cache.TTL,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Try parsing as seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultVal
}

// ParseMemorySize parses a human-readable memory size string.
// Supports: "1024", "1KB", "1MB", "1GB", "1TB", "0", "unlimited".
// Invalid input yields 0.
func ParseMemorySize(s string) int64 {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" || s == "0" || s == "UNLIMITED" {
		return 0
	}

	s = strings.TrimSuffix(s, "B")

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1 << 10
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1 << 20
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		multiplier = 1 << 30
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "T"):
		multiplier = 1 << 40
		s = strings.TrimSuffix(s, "T")
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return val * multiplier
}
