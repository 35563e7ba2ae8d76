package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/liam5322/smite-assault-advisor/app"
	"github.com/liam5322/smite-assault-advisor/config"
)

const defaultConfigPath = "advisor.json"

func main() {
	// Optional .env next to the binary; absence is fine.
	_ = godotenv.Load()

	path := defaultConfigPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load(path)
	if err != nil {
		// Defaults are still usable; report the parse problem and continue.
		NewLogger(slog.LevelInfo).Warn("config load failed, using defaults", "path", path, "error", err)
	}
	cfg.ApplyEnv()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	if err := application.Run(); err != nil {
		logger.Error("advisor exited with error", "error", err)
		os.Exit(1)
	}
}
