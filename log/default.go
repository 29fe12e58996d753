package log

import (
	"context"
	"log/slog"
	"os"
)

// DefaultContextProvider returns the context used by the package-level,
// context-unaware logging functions (Debug, Info, Warn, Error). It
// defaults to context.TODO and exists as a var so callers needing a
// request-scoped default (e.g. a server's per-request context) can
// override it.
//
//nolint:gochecknoglobals
var DefaultContextProvider = context.TODO

// defaultLog is the process-wide Logger used by the package-level
// logging functions below. Config replaces it with a reconfigured copy;
// the package-level functions always use the current value, which is
// how the CLI's early flag pre-scan (cli/log.go's scan()) can take
// effect before kong finishes parsing. A Logger obtained earlier from
// With keeps the settings it was created with.
//
//nolint:gochecknoglobals
var defaultLog = Make(os.Stdout)

// Config updates the default logger with the given options.
func Config(opts ...Option) {
	defaultLog = defaultLog.Wrap(opts...)
}

// DebugContext logs at Debug level using the default logger.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	defaultLog.DebugContext(ctx, msg, attrs...)
}

// Debug logs at Debug level using the default logger and
// DefaultContextProvider.
func Debug(msg string, attrs ...slog.Attr) {
	DebugContext(DefaultContextProvider(), msg, attrs...)
}

// InfoContext logs at Info level using the default logger.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	defaultLog.InfoContext(ctx, msg, attrs...)
}

// Info logs at Info level using the default logger and
// DefaultContextProvider.
func Info(msg string, attrs ...slog.Attr) {
	InfoContext(DefaultContextProvider(), msg, attrs...)
}

// WarnContext logs at Warn level using the default logger.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	defaultLog.WarnContext(ctx, msg, attrs...)
}

// Warn logs at Warn level using the default logger and
// DefaultContextProvider.
func Warn(msg string, attrs ...slog.Attr) {
	WarnContext(DefaultContextProvider(), msg, attrs...)
}

// ErrorContext logs at Error level using the default logger.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	defaultLog.ErrorContext(ctx, msg, attrs...)
}

// Error logs at Error level using the default logger and
// DefaultContextProvider.
func Error(msg string, attrs ...slog.Attr) {
	ErrorContext(DefaultContextProvider(), msg, attrs...)
}

// With returns a Logger wrapping the default logger's current
// configuration with the given persistent attributes.
func With(attrs ...slog.Attr) Logger {
	return defaultLog.With(attrs...)
}
