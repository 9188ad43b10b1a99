// Package logging builds the structured logger handed to every engine.
package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Options controls logger construction.
type Options struct {
	// Verbose lowers the level to Debug and records source locations.
	Verbose bool

	// Writer receives log output. nil means os.Stderr.
	Writer io.Writer

	// JSON forces the JSON handler even on a terminal.
	JSON bool
}

// New creates a logger. When the writer is a terminal, uses slog.TextHandler
// for human-readable output; otherwise slog.JSONHandler so that output piped
// into CI logs stays machine-parseable.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if opts.Verbose {
		handlerOpts.Level = slog.LevelDebug
		handlerOpts.AddSource = true
	}

	var handler slog.Handler
	if !opts.JSON && isTerminal(w) {
		handler = slog.NewTextHandler(w, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
