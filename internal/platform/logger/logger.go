package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Text output on stdout;
// swap the handler for JSON when log shipping needs it.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
