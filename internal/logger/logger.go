// Package logger provides a configured zerolog logger.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a new zerolog.Logger configured for the application.
func New(serviceName string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// Discard returns a logger that drops everything. Used by tests
// and by components constructed without an explicit logger.
func Discard() zerolog.Logger {
	return zerolog.New(io.Discard)
}
