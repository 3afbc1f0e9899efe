// Package es provides core event sourcing interfaces and types.
package es

import (
	"context"
	"log/slog"
)

// Logger provides a minimal interface for observability and debugging.
// It is optional: components skip logging entirely when no logger is configured.
type Logger interface {
	// Debug logs debug-level information for detailed troubleshooting.
	Debug(ctx context.Context, msg string, keyvals ...interface{})

	// Info logs informational messages about normal operations.
	Info(ctx context.Context, msg string, keyvals ...interface{})

	// Error logs error-level information about failures.
	Error(ctx context.Context, msg string, keyvals ...interface{})
}

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct{}

// Debug implements Logger.
func (NoOpLogger) Debug(_ context.Context, _ string, _ ...interface{}) {}

// Info implements Logger.
func (NoOpLogger) Info(_ context.Context, _ string, _ ...interface{}) {}

// Error implements Logger.
func (NoOpLogger) Error(_ context.Context, _ string, _ ...interface{}) {}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l. A nil l falls back to slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

// Debug implements Logger.
func (s *SlogLogger) Debug(ctx context.Context, msg string, keyvals ...interface{}) {
	s.l.DebugContext(ctx, msg, keyvals...)
}

// Info implements Logger.
func (s *SlogLogger) Info(ctx context.Context, msg string, keyvals ...interface{}) {
	s.l.InfoContext(ctx, msg, keyvals...)
}

// Error implements Logger.
func (s *SlogLogger) Error(ctx context.Context, msg string, keyvals ...interface{}) {
	s.l.ErrorContext(ctx, msg, keyvals...)
}

var (
	_ Logger = NoOpLogger{}
	_ Logger = (*SlogLogger)(nil)
)
