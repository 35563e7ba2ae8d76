//go:build !windows

package input

import (
	"context"
	"log/slog"
)

// Listen has no global key hook off Windows. It returns a channel that never
// delivers; the periodic detection loop still drives the pipeline.
func Listen(ctx context.Context, logger *slog.Logger) (<-chan string, error) {
	logger.Warn("global key hook unsupported on this platform, hotkeys disabled")
	keys := make(chan string)
	go func() {
		<-ctx.Done()
		close(keys)
	}()
	return keys, nil
}
