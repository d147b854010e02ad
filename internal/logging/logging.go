// Package logging provides the structured logger shared by both CLI entry
// points. It wraps zerolog the same way the rest of the example pack
// attaches a *zerolog.Logger to context and to long-lived components: a
// console writer for interactive terminal sessions, JSON when the output
// is being collected by something else.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// EnvFormat selects "json" or "console" (default) log output.
const EnvFormat = "DOCSHARE_LOG_FORMAT"

// EnvLevel selects the minimum log level (debug, info, warn, error).
const EnvLevel = "DOCSHARE_LOG_LEVEL"

// New builds the process-wide logger for the given program name
// ("docowner" or "docuser"), honoring DOCSHARE_LOG_FORMAT/DOCSHARE_LOG_LEVEL.
func New(program string) zerolog.Logger {
	level := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv(EnvLevel)); err == nil {
		level = lvl
	}

	var writer zerolog.Logger
	if os.Getenv(EnvFormat) == "json" {
		writer = zerolog.New(os.Stderr)
	} else {
		writer = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	return writer.Level(level).With().
		Timestamp().
		Str("program", program).
		Int("pid", os.Getpid()).
		Logger()
}
