// Package logger configures the module's single zerolog.Logger and threads it
// through context.Context, the way the teacher threads its pgxpool.Pool and
// redis.Client through constructors rather than via package-level globals.
package logger

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// New builds the root logger from LOG_LEVEL ("debug", "info", "warn", "error";
// defaults to "info") and LOG_FORMAT ("console" or "json"; defaults to "json").
func New(levelStr, format string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var w = os.Stdout
	var writer zerolog.ConsoleWriter
	if strings.EqualFold(format, "console") {
		writer = zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) { cw.Out = w })
		return zerolog.New(writer).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// WithContext attaches logger to ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger attached to ctx, or a disabled fallback
// logger if none was attached.
func FromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return zerolog.Nop()
}
