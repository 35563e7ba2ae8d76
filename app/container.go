package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/liam5322/smite-assault-advisor/analysis"
	"github.com/liam5322/smite-assault-advisor/assets"
	"github.com/liam5322/smite-assault-advisor/config"
	"github.com/liam5322/smite-assault-advisor/display"
	"github.com/liam5322/smite-assault-advisor/domain/ocr"
	"github.com/liam5322/smite-assault-advisor/domain/roster"
	"github.com/liam5322/smite-assault-advisor/domain/state"
	"github.com/liam5322/smite-assault-advisor/domain/trigger"
	"github.com/liam5322/smite-assault-advisor/domain/vision"
)

// Container assembles the pipeline stages. Construction order follows the
// data flow: capture, recognition, resolution, detection, orchestration.
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	Source   vision.Source
	Profiles *vision.ProfileTable
	Engine   *ocr.Engine
	Resolver *roster.Resolver
	Detector *state.Detector
	Analysis *analysis.Client
	Hub      *display.Hub
	Sink     display.Sink
	Orch     *trigger.Orchestrator
}

// BuildContainer constructs all components. Side effects are limited to asset
// loading and the backend availability probes.
func BuildContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	names, err := assets.GodNames()
	if err != nil {
		return nil, fmt.Errorf("app: load god roster: %w", err)
	}

	c.Source = vision.NewSource(cfg.CaptureFPS, cfg.ImageScale, logger)
	c.Profiles = vision.NewProfileTable(cfg, logger)

	c.Engine, err = ocr.NewEngine(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app: recognition engine: %w", err)
	}

	c.Resolver = roster.NewResolver(names, cfg.FuzzyMatchThreshold)
	c.Detector = state.NewDetector(c.Source, c.Engine, c.Resolver, c.Profiles, logger)
	if cfg.Debug {
		c.Detector.EnableFrameDump("debug_frames")
	}

	c.Analysis = analysis.NewClient(cfg.AnalysisURL, seconds(cfg.AnalysisTimeoutSeconds), logger)
	c.Hub = display.NewHub(cfg.DisplayListen, logger)
	c.Sink = display.Multi{display.NewConsoleSink(logger), c.Hub}

	c.Orch = trigger.NewOrchestrator(c.Detector, c.Analysis, c.Sink, trigger.Options{
		UpdateRate:   seconds(cfg.UpdateRateSeconds),
		SettleDelay:  seconds(cfg.SettleDelaySeconds),
		ErrorBackoff: seconds(cfg.ErrorBackoffSeconds),
	}, logger)
	return c, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
