package main

import (
	"log/slog"
	"os"
)

// NewLogger returns a structured slog.Logger writing JSON records to stderr,
// keeping stdout clean for piping.
func NewLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
