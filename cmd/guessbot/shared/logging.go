package shared

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// SetupLogger configures zerolog with pretty console output
func SetupLogger(debug bool) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()
}

// SetupStructuredLogger configures zerolog for structured (JSON) output
func SetupStructuredLogger(debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	return zerolog.New(os.Stderr).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()
}

// SetupFileLogger writes JSON logs to w, for commands that own the terminal.
func SetupFileLogger(w io.Writer, debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	return zerolog.New(w).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()
}

// NewLogger picks console or JSON output.
func NewLogger(debug, jsonLogs bool) zerolog.Logger {
	if jsonLogs {
		return SetupStructuredLogger(debug)
	}
	return SetupLogger(debug)
}
