// Package log configures the manager's JSON logging and provides the
// attribute constructors its records share
package log

import (
	"log/slog"
	"os"
)

// New constructs a JSON slog.Logger at info level, tagged with the
// manager's service identity
func New(service, env, version string) *slog.Logger {
	return NewWithLevel(service, env, version, slog.LevelInfo)
}

// NewWithLevel is New with an explicit minimum level
func NewWithLevel(service, env, version string, lvl slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})

	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("env", env),
		slog.String("version", version))
}
