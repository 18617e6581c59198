// Package obslog wraps zerolog with the milestone-oriented logging style
// the protocol's error-handling design calls for: a single final success
// or error line per CLI command, plus progress lines at significant
// milestones (burn-key found, tx hash, block number, proof generated,
// mint success).
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a thin milestone-naming layer over zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// New builds a console-pretty-printed logger writing to w (os.Stderr via
// Default in practice), matching the teacher's level-based console
// destination.
func New(w io.Writer) Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return Logger{Logger: zerolog.New(console).With().Timestamp().Logger()}
}

// Default is a ready-to-use logger writing to stderr, the conventional Go
// CLI destination for progress/diagnostic output.
func Default() Logger {
	return New(os.Stderr)
}

// Milestone logs one of the protocol's significant orchestration events at
// info level, with structured fields instead of an interpolated string.
func (l Logger) Milestone(event string, fields map[string]any) {
	entry := l.Info().Str("event", event)
	for k, v := range fields {
		entry = entry.Interface(k, v)
	}
	entry.Msg(event)
}

// Final logs the single terminal success or error line a CLI command
// prints.
func (l Logger) Final(err error) {
	if err != nil {
		l.Error().Err(err).Msg("failed")
		return
	}
	l.Info().Msg("success")
}
