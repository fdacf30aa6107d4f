// Package logging builds the process-wide zerolog logger.
package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/avelsher/previewgen/internal/config"
)

// New constructs a zerolog.Logger for the given verbosity. SIMPLE keeps the
// pipeline at info level; VERBOSE lowers it to debug so failure traces and
// per-stage detail show up.
func New(level config.LogLevel) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if level == config.LogVerbose {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
