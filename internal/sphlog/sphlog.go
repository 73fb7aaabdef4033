// Package sphlog is a small slog-based wrapper carrying the
// debug/progress execution-context flag channel (see internal/runctx).
// It runs alongside, not instead of, the CLI's plain human-readable
// banner printing.
package sphlog

import (
	"io"
	"log/slog"
	"os"
)

var (
	// Level can be adjusted at runtime (e.g. a future -verbose flag).
	Level = new(slog.LevelVar)

	defaultLogger = New(os.Stderr)
)

// New builds a structured logger writing text-formatted records to out.
func New(out io.Writer) *slog.Logger {
	h := slog.NewTextHandler(out, &slog.HandlerOptions{Level: Level})
	return slog.New(h)
}

// Default returns the process-wide logger. cmd/sphinx may call New
// directly instead if it wants output redirected (e.g. alongside a
// compressed trace file).
func Default() *slog.Logger { return defaultLogger }

// SetDefault overrides the process-wide logger, e.g. once a CLI flag
// decides where structured output should go.
func SetDefault(l *slog.Logger) { defaultLogger = l }

// Flag emits the `debug`/`progress` execution-context flag channel as a
// structured record: pc, cycles, and the flag name, matching §4.7's
// recognised-flag handling without duplicating the CLI's human banner.
func Flag(name string, pc, cycles int) {
	defaultLogger.Info("flag", slog.String("name", name), slog.Int("pc", pc), slog.Int("cycles", cycles))
}
