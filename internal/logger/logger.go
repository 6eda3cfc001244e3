// Package logger configures structured logging with log/slog.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Init creates a JSON slog logger at the given level and installs it as the
// default. Supported levels: "debug", "info", "warn", "error"; anything else
// falls back to "info".
func Init(service, level string) *slog.Logger {
	var slevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slevel = slog.LevelDebug
	case "info":
		slevel = slog.LevelInfo
	case "warn":
		slevel = slog.LevelWarn
	case "error":
		slevel = slog.LevelError
	default:
		slevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slevel,
	})

	log := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(log)
	return log
}
