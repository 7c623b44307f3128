// Package logging configures the process-wide zerolog logger and exposes
// small helpers for deriving component-scoped children, the way the
// quiz-realtime-service room type derives a logger carrying its room id.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. Pretty console output in dev, structured
// JSON otherwise, selected by the TRIVIA_LOG_PRETTY environment variable.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out = os.Stdout
	if os.Getenv("TRIVIA_LOG_PRETTY") == "true" {
		w := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(w).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// Component returns a child logger tagged with a component name, mirroring
// the `logger.With(zap.String("room_id", roomID))` pattern from the
// retrieved quiz room implementation.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
