// Package logging builds the slog loggers used across NornicFed.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/orneryd/nornicfed/pkg/config"
)

// New builds a slog.Logger configured according to the provided logging config.
//
// Output "stdout" and "stderr" select the process streams; any other value is
// a file path opened for appending. If the file cannot be opened the logger
// writes to stderr and says so.
func New(cfg config.LoggingConfig) *slog.Logger {
	var w io.Writer = os.Stderr
	var openErr error

	switch out := strings.TrimSpace(cfg.Output); strings.ToLower(out) {
	case "", "stderr":
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			openErr = err
		} else {
			w = f
		}
	}

	logger := NewWithWriter(cfg, w)
	if openErr != nil {
		logger.Warn("log output unavailable, using stderr", "output", cfg.Output, "error", openErr)
	}
	return logger
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDefault returns l, or slog.Default() when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// BadgerLogger routes BadgerDB's printf-style logging into slog.
// It satisfies badger.Logger.
type BadgerLogger struct {
	logger *slog.Logger
}

// NewBadgerLogger wraps l, tagging every record with the component name.
func NewBadgerLogger(l *slog.Logger) *BadgerLogger {
	return &BadgerLogger{logger: OrDefault(l).With("component", "badger")}
}

func (b *BadgerLogger) Errorf(format string, args ...interface{}) {
	b.logger.Error(trim(format, args))
}

func (b *BadgerLogger) Warningf(format string, args ...interface{}) {
	b.logger.Warn(trim(format, args))
}

func (b *BadgerLogger) Infof(format string, args ...interface{}) {
	b.logger.Info(trim(format, args))
}

func (b *BadgerLogger) Debugf(format string, args ...interface{}) {
	b.logger.Debug(trim(format, args))
}

// Badger terminates most messages with a newline.
func trim(format string, args []interface{}) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
