package main

import (
	"io"

	"github.com/charmbracelet/log"
	"go.uber.org/automaxprocs/maxprocs"
)

// newLogger creates a logger writing to w at the given level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// logLevel picks the level from flags, then SVGBOB_LOG_LEVEL.
// Pandoc passes no flags to filters, so the variable is the usual way in.
func logLevel(f commonFlags, envLevel string) log.Level {
	switch {
	case f.quiet:
		return log.ErrorLevel
	case f.verbose:
		return log.DebugLevel
	}
	if envLevel != "" {
		if lvl, err := log.ParseLevel(envLevel); err == nil {
			return lvl
		}
	}
	return log.InfoLevel
}

// setMaxProcs matches GOMAXPROCS to the container CPU quota.
func setMaxProcs(logger *log.Logger) {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply.
	_, _ = maxprocs.Set(maxprocs.Logger(logger.Debugf))
}
