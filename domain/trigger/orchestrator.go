package trigger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/liam5322/smite-assault-advisor/display"
	"github.com/liam5322/smite-assault-advisor/domain/state"
	"github.com/liam5322/smite-assault-advisor/domain/vision"
	"github.com/liam5322/smite-assault-advisor/fault"
)

// scoreboardSettle is how long the Tab overlay needs to fade in before its
// contents are readable.
const scoreboardSettle = 200 * time.Millisecond

// Orchestrator owns the trigger policy: which events start an analysis pass,
// single-flight admission, settle delays and the error backoff of the polling
// loop. At most one pass runs at any time; extra triggers are dropped, never
// queued.
type Orchestrator struct {
	detector Detector
	analyzer Analyzer
	sink     display.Sink
	tracker  *state.Tracker
	logger   *slog.Logger

	updateRate   time.Duration
	settleDelay  time.Duration
	errorBackoff time.Duration

	inFlight sync.Mutex
	dropped  atomic.Uint64
	passes   atomic.Uint64
}

// Options carries the orchestration timing knobs.
type Options struct {
	UpdateRate   time.Duration
	SettleDelay  time.Duration
	ErrorBackoff time.Duration
}

// NewOrchestrator wires the pipeline stages behind the trigger policy.
func NewOrchestrator(detector Detector, analyzer Analyzer, sink display.Sink, opts Options, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		detector:     detector,
		analyzer:     analyzer,
		sink:         sink,
		tracker:      &state.Tracker{},
		logger:       logger,
		updateRate:   opts.UpdateRate,
		settleDelay:  opts.SettleDelay,
		errorBackoff: opts.ErrorBackoff,
	}
}

// Stats reports pass and drop counters.
func (o *Orchestrator) Stats() (passes, dropped uint64) {
	return o.passes.Load(), o.dropped.Load()
}

// CurrentPhase exposes the last observed phase for manual-trigger gating.
func (o *Orchestrator) CurrentPhase() state.Phase {
	return o.tracker.Current()
}

// Run is the periodic polling loop. It detects the phase at the configured
// rate, reports transitions and fires a pass when a loading or champion
// select screen is entered; those are the screens the roster regions belong
// to. The scoreboard is driven by its key, never by the poller. Detection
// errors back off instead of tightening the loop. Returns when ctx is
// cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.updateRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		st, err := o.detector.Detect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Warn("detection failed, backing off", "error", err, "backoff", o.errorBackoff)
			if errors.Is(err, vision.ErrCaptureUnavailable) {
				o.notifyError(ctx, fault.New(fault.CaptureUnavailable, "screen capture failed", err))
			}
			if !sleepCtx(ctx, o.errorBackoff) {
				return ctx.Err()
			}
			continue
		}

		prev, changed := o.tracker.Observe(st.Phase)
		if !changed {
			continue
		}
		o.logger.Info("phase transition", "from", prev.String(), "to", st.Phase.String(),
			"confidence", st.Confidence)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.sink.StateChanged(prev, st.Phase)

		if st.Phase == state.PhaseLoading || st.Phase == state.PhaseChampSelect {
			o.Trigger(ctx, Event{Kind: Periodic, Settle: o.settleDelay, At: time.Now()})
		}
	}
}

// RequestAnalysis is the explicit entry point for user-driven requests (the
// overlay's analyze command). Reports whether a pass ran.
func (o *Orchestrator) RequestAnalysis(ctx context.Context) bool {
	return o.Trigger(ctx, Event{Kind: Manual, At: time.Now()})
}

// HandleKey translates a key press into a trigger event. The hotkey always
// attempts a pass; the scoreboard key only when a match is on screen, with a
// short settle for the overlay fade-in. Other keys are ignored.
func (o *Orchestrator) HandleKey(ctx context.Context, key, hotkey, scoreboardKey string) {
	switch key {
	case hotkey:
		o.Trigger(ctx, Event{Kind: KeyPress, Key: key, At: time.Now()})
	case scoreboardKey:
		phase := o.tracker.Current()
		if phase == state.PhaseInGame || phase == state.PhaseScoreboard {
			o.Trigger(ctx, Event{Kind: KeyPress, Key: key, Settle: scoreboardSettle, At: time.Now()})
		}
	}
}

// Trigger attempts to start an analysis pass for ev. When a pass is already
// in flight the event is dropped and counted; triggers never queue. Reports
// whether a pass ran.
func (o *Orchestrator) Trigger(ctx context.Context, ev Event) bool {
	if !o.inFlight.TryLock() {
		o.dropped.Add(1)
		o.logger.Debug("trigger dropped, pass already in flight",
			"kind", ev.Kind.String(), "key", ev.Key)
		return false
	}
	defer o.inFlight.Unlock()

	o.passes.Add(1)
	o.runPass(ctx, ev)
	return true
}

// runPass executes one full pipeline pass under the in-flight lock.
func (o *Orchestrator) runPass(ctx context.Context, ev Event) {
	passID := uuid.NewString()
	log := o.logger.With("pass_id", passID, "kind", ev.Kind.String())
	log.Info("analysis pass started", "settle", ev.Settle)

	if ev.Settle > 0 && !sleepCtx(ctx, ev.Settle) {
		return
	}

	ext, err := o.detector.ExtractRoster(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warn("roster extraction failed", "error", err)
		switch {
		case errors.Is(err, state.ErrIncompleteRoster):
			o.notifyError(ctx, fault.New(fault.IncompleteRoster, "could not read a full 5v5 roster", err))
		case errors.Is(err, vision.ErrCaptureUnavailable):
			o.notifyError(ctx, fault.New(fault.CaptureUnavailable, "screen capture failed", err))
		default:
			o.notifyError(ctx, fault.New(fault.AnalysisFailed, "roster extraction failed", err))
		}
		return
	}

	result, err := o.analyzer.Analyze(ctx, ext)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warn("analysis failed", "error", err)
		var be *fault.BoundaryError
		if !errors.As(err, &be) {
			be = fault.New(fault.AnalysisFailed, "analysis request failed", err)
		}
		o.notifyError(ctx, be)
		return
	}

	if ctx.Err() != nil {
		return
	}
	log.Info("analysis pass completed", "win_probability", result.WinProbability)
	o.sink.ShowAnalysis(ext, result)
}

func (o *Orchestrator) notifyError(ctx context.Context, be *fault.BoundaryError) {
	if ctx.Err() != nil {
		return
	}
	o.sink.ShowError(be)
}

// sleepCtx waits d unless ctx is cancelled first; reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
