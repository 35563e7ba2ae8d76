// Package display fans analysis results and pipeline state out to observers:
// the console log and any connected overlay clients.
package display

import (
	"log/slog"

	"github.com/liam5322/smite-assault-advisor/analysis"
	"github.com/liam5322/smite-assault-advisor/domain/state"
	"github.com/liam5322/smite-assault-advisor/fault"
)

// Sink receives pipeline output. Implementations must tolerate being called
// from the orchestrator goroutine and return quickly.
type Sink interface {
	ShowAnalysis(ext state.Extraction, result analysis.Result)
	ShowError(err *fault.BoundaryError)
	StateChanged(prev, next state.Phase)
}

// ConsoleSink writes pipeline output to the structured log.
type ConsoleSink struct {
	logger *slog.Logger
}

var _ Sink = (*ConsoleSink)(nil)

func NewConsoleSink(logger *slog.Logger) *ConsoleSink {
	return &ConsoleSink{logger: logger}
}

func (s *ConsoleSink) ShowAnalysis(ext state.Extraction, result analysis.Result) {
	s.logger.Info("analysis",
		"team1", ext.Team1,
		"team2", ext.Team2,
		"win_probability", result.WinProbability,
		"item_priorities", result.ItemPriorities,
		"key_advice", result.KeyAdvice,
	)
}

func (s *ConsoleSink) ShowError(err *fault.BoundaryError) {
	s.logger.Error("pipeline error", "code", err.Code, "message", err.Message, "cause", err.Cause)
}

func (s *ConsoleSink) StateChanged(prev, next state.Phase) {
	s.logger.Info("state changed", "from", prev.String(), "to", next.String())
}

// Multi forwards every call to each sink in order.
type Multi []Sink

var _ Sink = Multi(nil)

func (m Multi) ShowAnalysis(ext state.Extraction, result analysis.Result) {
	for _, s := range m {
		s.ShowAnalysis(ext, result)
	}
}

func (m Multi) ShowError(err *fault.BoundaryError) {
	for _, s := range m {
		s.ShowError(err)
	}
}

func (m Multi) StateChanged(prev, next state.Phase) {
	for _, s := range m {
		s.StateChanged(prev, next)
	}
}
