// Package trigger decides when an analysis pass runs and drives it end to
// end: detection, roster extraction, analysis call and display fan-out.
package trigger

import (
	"context"
	"time"

	"github.com/liam5322/smite-assault-advisor/analysis"
	"github.com/liam5322/smite-assault-advisor/domain/state"
)

// Kind classifies what woke the orchestrator.
type Kind int

const (
	// Manual is an explicit user request (the configured hotkey).
	Manual Kind = iota
	// KeyPress is a game input the advisor piggybacks on, such as the
	// scoreboard key revealing a data-bearing screen.
	KeyPress
	// Periodic is the polling loop noticing a phase transition.
	Periodic
)

func (k Kind) String() string {
	switch k {
	case Manual:
		return "manual"
	case KeyPress:
		return "keypress"
	case Periodic:
		return "periodic"
	default:
		return "unknown"
	}
}

// Event is one wake-up of the orchestrator. Settle is how long the screen
// needs to stabilize before capture; zero means capture immediately.
type Event struct {
	Kind   Kind
	Key    string
	Settle time.Duration
	At     time.Time
}

// Detector is the state-detection surface the orchestrator consumes.
type Detector interface {
	Detect(ctx context.Context) (state.GameState, error)
	ExtractRoster(ctx context.Context) (state.Extraction, error)
}

// Analyzer turns an extracted roster into advice.
type Analyzer interface {
	Analyze(ctx context.Context, ext state.Extraction) (analysis.Result, error)
}
