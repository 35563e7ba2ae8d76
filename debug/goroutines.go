// Package debug holds opt-in runtime instrumentation, started only when the
// debug config flag is set. The capture path allocates a fresh RGBA buffer
// per frame, so these loggers exist to spot leaks in that path early.
package debug

import (
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"
)

// StartGoroutineLogger launches a ticker that logs goroutine count and stack
// memory. Helps rule out stuck capture or hook goroutines.
func StartGoroutineLogger(interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
		for range t.C {
			metrics.Read(samples)
			goroutines := samples[0].Value.Uint64()
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			logger.Info("goroutine-stacks",
				slog.Uint64("goroutines", goroutines),
				slog.Uint64("stack_inuse", uint64(ms.StackInuse)),
				slog.Uint64("stack_sys", uint64(ms.StackSys)),
				slog.Uint64("heap_alloc", uint64(ms.HeapAlloc)),
			)
		}
	}()
}
