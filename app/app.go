// Package app wires the perception pipeline together and owns the process
// lifecycle: signal handling, the key hook, the display hub and the polling
// loop.
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liam5322/smite-assault-advisor/config"
	"github.com/liam5322/smite-assault-advisor/debug"
	"github.com/liam5322/smite-assault-advisor/input"
)

// App is the running advisor process.
type App struct {
	c      *Container
	logger *slog.Logger
}

// New builds the container and validates startup preconditions.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	c, err := BuildContainer(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &App{c: c, logger: logger}, nil
}

// Run starts every background component and blocks until SIGINT/SIGTERM or a
// fatal component error. Cancellation is cooperative; in-flight passes notice
// the cancelled context and stop without further output.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.c.Config
	if cfg.Debug {
		debug.StartGoroutineLogger(5*time.Second, a.logger)
		debug.StartMemLogger(5*time.Second, a.logger)
		go a.logCaptureStats(ctx, 10*time.Second)
	}

	a.c.Hub.OnAnalyzeRequest(func() {
		a.c.Orch.RequestAnalysis(ctx)
	})
	errc := make(chan error, 1)
	go func() {
		if err := a.c.Hub.Run(ctx); err != nil {
			errc <- err
		}
	}()

	keys, err := input.Listen(ctx, a.logger)
	if err != nil {
		return err
	}
	hotkey := input.NormalizeKey(cfg.Hotkey)
	scoreboardKey := input.NormalizeKey(cfg.ScoreboardKey)
	go func() {
		for key := range keys {
			a.c.Orch.HandleKey(ctx, key, hotkey, scoreboardKey)
		}
	}()

	a.logger.Info("advisor started",
		"backend", a.c.Engine.BackendName(),
		"hotkey", hotkey,
		"scoreboard_key", scoreboardKey,
		"update_rate", cfg.UpdateRateSeconds,
	)

	runErr := make(chan error, 1)
	go func() { runErr <- a.c.Orch.Run(ctx) }()

	select {
	case err := <-errc:
		stop()
		<-runErr
		return err
	case err := <-runErr:
		if errors.Is(err, context.Canceled) {
			a.logger.Info("advisor stopped")
			return nil
		}
		return err
	}
}

// logCaptureStats periodically reports frame source counters in debug mode.
func (a *App) logCaptureStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := a.c.Source.Stats()
			a.logger.Debug("capture stats",
				"captures", stats.Captures,
				"failures", stats.Failures,
				"avg_capture", stats.AvgCapture,
			)
		}
	}
}
