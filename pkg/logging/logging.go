// Package logging configures colored structured logging with tint.
//
// Usage:
//
//	logging.Setup(cfg.LogLevel)              // "debug", "info", "warn" or "error"
//	logging.SetupWithLevel(slog.LevelDebug)  // explicit level
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup configures colored logging at the named level (default: INFO).
func Setup(level string) {
	SetupWithLevel(ParseLevel(level))
}

// SetupWithLevel configures colored logging at the given level.
func SetupWithLevel(level slog.Level) {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}),
	))
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
