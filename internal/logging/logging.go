// Package logging configures the global zerolog logger for both binaries.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/watchface/internal/config"
)

// Setup points the global logger at out and sets the global level.
func Setup(out io.Writer, cfg config.LogConfig) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.UseJSON {
		// JSON output for production
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !cfg.Colors,
		})
	}

	zerolog.SetGlobalLevel(Level(cfg.GetLevel()))
}

// Level maps a configured level name to a zerolog level. Unknown names fall
// back to info.
func Level(name string) zerolog.Level {
	switch name {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
