//go:build !windows

package debug

// Off Windows there is no working-set query wired up; heap stats still come
// from the goroutine logger.

import (
	"log/slog"
	"time"
)

// StartMemLogger is a no-op on this platform.
func StartMemLogger(interval time.Duration, logger *slog.Logger) {
	logger.Debug("memory logger unsupported on this platform")
}
