// Package logging constructs this process's single zerolog.Logger.
// The teacher logs with the bare `log` package ("[DB] Connected to
// PostgreSQL: ..."); this module follows the rest of the retrieval
// pack instead and builds one structured zerolog.Logger in main,
// passed down to every constructor rather than reached for as a
// package-level global.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process-wide logger. pretty selects a human-readable
// console writer (for local development); false emits newline-delimited
// JSON suitable for log aggregation.
func New(level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
