// Package logger provides structured logging for parrotdb.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with parrotdb-specific conveniences: child loggers
// scoped to a storage component, and helpers that log an operation's
// outcome with a consistent set of fields.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// New creates a new structured logger.
func New(cfg Config) *Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "parrotdb").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// Nop returns a Logger that discards everything, used as the default when
// a caller does not supply one.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// GetZerolog returns the underlying zerolog logger.
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Info starts an info-level event.
func (l *Logger) Info() *zerolog.Event { return l.zlog.Info() }

// Debug starts a debug-level event.
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }

// Warn starts a warn-level event.
func (l *Logger) Warn() *zerolog.Event { return l.zlog.Warn() }

// Error starts an error-level event.
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// Component returns a child logger scoped to a named storage component
// (e.g. "pager", "btree", "store").
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// LogCommit logs the outcome of a commit: the new txn_id, which meta slot
// it landed in, and how long it took.
func (l *Logger) LogCommit(txnID uint64, metaPageID uint32, duration time.Duration, err error) {
	event := l.zlog.Info()
	if err != nil {
		event = l.zlog.Error().Err(err)
	}
	event.
		Str("event", "commit").
		Uint64("txn_id", txnID).
		Uint32("meta_page_id", metaPageID).
		Dur("duration_ms", duration).
		Msg("commit completed")
}

// LogSplit logs a page split during a B+ tree mutation.
func (l *Logger) LogSplit(kind string, leftPageID, rightPageID uint32) {
	l.zlog.Debug().
		Str("event", "split").
		Str("kind", kind).
		Uint32("left_page_id", leftPageID).
		Uint32("right_page_id", rightPageID).
		Msg("page split")
}

// LogCorruption logs a detected corruption or checksum failure.
func (l *Logger) LogCorruption(pageID uint32, err error) {
	l.zlog.Error().
		Str("event", "corruption").
		Uint32("page_id", pageID).
		Err(err).
		Msg("page corruption detected")
}

// LogOpen logs a successful database open/create.
func (l *Logger) LogOpen(path string, pageSize uint32, created bool) {
	l.zlog.Info().
		Str("event", "open").
		Str("path", path).
		Uint32("page_size", pageSize).
		Bool("created", created).
		Msg("database opened")
}

// LogClose logs a database close.
func (l *Logger) LogClose(path string) {
	l.zlog.Info().
		Str("event", "close").
		Str("path", path).
		Msg("database closed")
}
