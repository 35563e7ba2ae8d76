package ocr

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"

	"github.com/liam5322/smite-assault-advisor/config"
)

// ErrNoBackend reports that no recognition backend is usable. Fatal to
// process startup; the pipeline never runs with a silent no-op backend.
var ErrNoBackend = errors.New("ocr: no recognition backend available")

// Engine holds the backend chosen at construction time behind a single handle
// and filters low-confidence fragments before they reach the resolver.
type Engine struct {
	backend Backend
	floor   float64
	logger  *slog.Logger
}

// NewEngine selects a backend per configuration: the configured backend if
// available, otherwise the lightweight fallback. Neither available is fatal.
func NewEngine(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	advanced := NewRemoteBackend(cfg.RecognizerURL, cfg.GPUAcceleration, logger)
	lightweight := NewTesseractBackend(logger)
	return selectEngine(cfg.OCREngine, advanced, lightweight, cfg.OCRConfidence, logger)
}

// NewEngineWith wires explicit backends (tests and embedders).
func NewEngineWith(preferred string, advanced, lightweight Backend, floor float64, logger *slog.Logger) (*Engine, error) {
	return selectEngine(preferred, advanced, lightweight, floor, logger)
}

func selectEngine(preferred string, advanced, lightweight Backend, floor float64, logger *slog.Logger) (*Engine, error) {
	var chosen Backend
	if preferred == "advanced" {
		if advanced != nil && advanced.Available() {
			chosen = advanced
		} else if logger != nil {
			// Construction happens once, so this fallback is logged once.
			logger.Warn("advanced recognition backend unavailable, falling back to lightweight",
				"preferred", preferred)
		}
	}
	if chosen == nil && lightweight != nil && lightweight.Available() {
		chosen = lightweight
	}
	if chosen == nil {
		return nil, ErrNoBackend
	}
	if logger != nil {
		logger.Info("recognition backend selected", "backend", chosen.Name(), "confidence_floor", floor)
	}
	return &Engine{backend: chosen, floor: floor, logger: logger}, nil
}

// BackendName names the chosen backend.
func (e *Engine) BackendName() string { return e.backend.Name() }

// Floor returns the configured confidence floor.
func (e *Engine) Floor() float64 { return e.floor }

// ReadText recognizes text in img and drops fragments below the confidence
// floor. Zero results is valid (no text found). The backend's slice is never
// written to; backends may retain and reuse it.
func (e *Engine) ReadText(ctx context.Context, img image.Image) ([]RecognizedText, error) {
	results, err := e.backend.ReadText(ctx, img)
	if err != nil {
		return nil, err
	}
	out := make([]RecognizedText, 0, len(results))
	for _, r := range results {
		r.Text = strings.TrimSpace(r.Text)
		if r.Text == "" || r.Confidence < e.floor {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
