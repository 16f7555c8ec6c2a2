package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. Handlers and services receive this
// via constructor injection rather than reaching for a global.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
