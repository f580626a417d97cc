// logging.go - Structured Logging Interface for the oomph runtime.
//
// Package-level configuration for structured logging.
// This design allows external integration with logging frameworks while
// providing a low-overhead built-in implementation for basic usage, and
// mirrors the shape of the teacher package's own logging.go: a small
// [Logger] facade wrapping a pluggable backend, held as a package-level
// default that is built lazily on first use and may be replaced, rather
// than threaded through every call.
//
// Design Decision: a package-level default, overridable per-Context via
// [WithLogger], is appropriate here because logging is an infrastructure
// cross-cutting concern and most Context instances share logging
// semantics; per-instance configuration remains available for tests and
// multi-tenant hosts.

package oomph

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/logiface/stumpy"
)

// Category names a diagnostic concern a log entry belongs to, mirroring
// the teacher's LogEntry.Category field.
type Category string

const (
	CategorySend     Category = "send"
	CategoryRecv     Category = "recv"
	CategoryProgress Category = "progress"
	CategoryLock     Category = "lock"
	CategoryRegion   Category = "region"
	CategoryCancel   Category = "cancel"
)

// Logger is the structured logging facade used throughout this module. It
// wraps a [logiface.Logger] bound to the stumpy JSON event type, so callers
// never need to name the event type parameter themselves.
type Logger struct {
	inner *logiface.Logger[*stumpy.Event]
}

// NewLogger wraps an existing logiface logger (built with any backend,
// typically stumpy.L.New(stumpy.L.WithStumpy(...))) as a [Logger].
func NewLogger(inner *logiface.Logger[*stumpy.Event]) *Logger {
	return &Logger{inner: inner}
}

var (
	defaultLoggerOnce sync.Once
	defaultLoggerVal  atomic.Pointer[Logger]
)

// DefaultLogger returns the package-wide default [Logger], lazily
// constructing a stumpy-backed logiface logger writing to stderr on first
// use.
func DefaultLogger() *Logger {
	if l := defaultLoggerVal.Load(); l != nil {
		return l
	}
	defaultLoggerOnce.Do(func() {
		l := NewLogger(stumpy.L.New(
			stumpy.L.WithStumpy(),
			logiface.WithLevel[*stumpy.Event](logiface.LevelInformational),
		))
		defaultLoggerVal.Store(l)
	})
	return defaultLoggerVal.Load()
}

// SetDefaultLogger replaces the package-wide default Logger used by any
// Context constructed without an explicit [WithLogger] option.
func SetDefaultLogger(logger *Logger) {
	defaultLoggerVal.Store(logger)
}

// event logs a single structured line at level, tagging it with category
// and contextID/requestID for correlation, matching the fields a reader
// of transport logs would want when diagnosing a stuck send/recv.
func (l *Logger) event(level logiface.Level, category Category, contextID uint64, message string, fields map[string]any) {
	if l == nil || l.inner == nil {
		return
	}
	b := l.inner.Build(level)
	if b == nil {
		return
	}
	b = b.Str("category", string(category)).Uint64("context", contextID)
	for k, v := range fields {
		b = b.Interface(k, v)
	}
	b.Log(message)
}

func (l *Logger) Debugf(category Category, contextID uint64, message string, fields map[string]any) {
	l.event(logiface.LevelDebug, category, contextID, message, fields)
}

func (l *Logger) Infof(category Category, contextID uint64, message string, fields map[string]any) {
	l.event(logiface.LevelInformational, category, contextID, message, fields)
}

func (l *Logger) Warnf(category Category, contextID uint64, message string, fields map[string]any) {
	l.event(logiface.LevelWarning, category, contextID, message, fields)
}

func (l *Logger) Errf(category Category, contextID uint64, message string, fields map[string]any) {
	l.event(logiface.LevelError, category, contextID, message, fields)
}
