// Package instrument provides ready-made gatez instrumenters: structured
// logging with log/slog, Prometheus metrics, and OpenTelemetry span events.
// Combine several with Multi.
package instrument

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// NewLogger creates a [slog.Logger] that writes JSON to stderr at the given
// level. Accepted level strings (case-insensitive): "debug", "info", "warn",
// "error". An empty string defaults to "info".
func NewLogger(level string) *slog.Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a [slog.Logger] writing JSON to w at the given
// level.
func NewLoggerWithWriter(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// ParseLevel converts a level string to a [slog.Level].
// Returns [slog.LevelInfo] for unrecognised values.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Logger is an instrumenter that logs checks at debug level and storage
// operations at info, or error when the operation failed. Checks are logged
// at debug because they sit on the request hot path.
type Logger struct {
	logger *slog.Logger
}

// NewLogging creates a logging instrumenter. A nil logger uses the default
// JSON stderr logger at info level.
func NewLogging(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = NewLogger("")
	}
	return &Logger{logger: logger}
}

func (l *Logger) Check(ctx context.Context, feature string, result bool, gate string, elapsed time.Duration) {
	l.logger.DebugContext(ctx, "feature checked",
		slog.String("feature", feature),
		slog.Bool("result", result),
		slog.String("gate", gate),
		slog.Duration("elapsed", elapsed),
	)
}

func (l *Logger) Operation(ctx context.Context, op string, feature string, err error) {
	if err != nil {
		l.logger.ErrorContext(ctx, "feature operation failed",
			slog.String("operation", op),
			slog.String("feature", feature),
			slog.String("error", err.Error()),
		)
		return
	}
	l.logger.InfoContext(ctx, "feature operation",
		slog.String("operation", op),
		slog.String("feature", feature),
	)
}
