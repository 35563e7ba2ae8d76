package trigger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/liam5322/smite-assault-advisor/analysis"
	"github.com/liam5322/smite-assault-advisor/domain/state"
	"github.com/liam5322/smite-assault-advisor/fault"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func validExtraction() state.Extraction {
	return state.Extraction{
		Team1: []string{"Zeus", "Apollo", "Anubis", "Agni", "Thor"},
		Team2: []string{"Aphrodite", "Chang'e", "Cthulhu", "The Morrigan", "Ah Muzen Cab"},
	}
}

// fakeDetector scripts detection results and optionally blocks extraction on a
// gate so tests can hold a pass in flight.
type fakeDetector struct {
	mu           sync.Mutex
	states       []state.GameState
	idx          int
	detectErr    error
	detectCalls  int
	ext          state.Extraction
	extractErr   error
	extractCalls int

	enterOnce sync.Once
	entered   chan struct{}
	proceed   chan struct{}
}

var _ Detector = (*fakeDetector)(nil)

func (f *fakeDetector) Detect(ctx context.Context) (state.GameState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detectCalls++
	if f.detectErr != nil {
		return state.GameState{}, f.detectErr
	}
	i := f.idx
	if i >= len(f.states) {
		i = len(f.states) - 1
	}
	f.idx++
	return f.states[i], nil
}

func (f *fakeDetector) ExtractRoster(ctx context.Context) (state.Extraction, error) {
	f.mu.Lock()
	f.extractCalls++
	f.mu.Unlock()
	if f.entered != nil {
		f.enterOnce.Do(func() { close(f.entered) })
	}
	if f.proceed != nil {
		<-f.proceed
	}
	if f.extractErr != nil {
		return state.Extraction{}, f.extractErr
	}
	return f.ext, nil
}

func (f *fakeDetector) DetectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detectCalls
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	result analysis.Result
	err    error
	calls  int
}

var _ Analyzer = (*fakeAnalyzer)(nil)

func (f *fakeAnalyzer) Analyze(ctx context.Context, ext state.Extraction) (analysis.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

type recordingSink struct {
	mu          sync.Mutex
	analyses    []analysis.Result
	errs        []*fault.BoundaryError
	transitions [][2]state.Phase
}

func (s *recordingSink) ShowAnalysis(ext state.Extraction, result analysis.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses = append(s.analyses, result)
}

func (s *recordingSink) ShowError(err *fault.BoundaryError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSink) StateChanged(prev, next state.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, [2]state.Phase{prev, next})
}

func (s *recordingSink) counts() (analyses, errs, transitions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.analyses), len(s.errs), len(s.transitions)
}

func testOptions() Options {
	return Options{
		UpdateRate:   10 * time.Millisecond,
		SettleDelay:  0,
		ErrorBackoff: 20 * time.Millisecond,
	}
}

func TestTrigger_SingleFlightUnderContention(t *testing.T) {
	det := &fakeDetector{
		ext:     validExtraction(),
		entered: make(chan struct{}),
		proceed: make(chan struct{}),
	}
	sink := &recordingSink{}
	o := NewOrchestrator(det, &fakeAnalyzer{}, sink, testOptions(), discardLogger)
	ctx := context.Background()

	first := make(chan bool)
	go func() { first <- o.Trigger(ctx, Event{Kind: Manual}) }()
	<-det.entered // the first pass now holds the in-flight lock

	var wg sync.WaitGroup
	var ran sync.Map
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if o.Trigger(ctx, Event{Kind: Manual}) {
				ran.Store(i, true)
			}
		}(i)
	}
	wg.Wait()

	extra := 0
	ran.Range(func(any, any) bool { extra++; return true })
	if extra != 0 {
		t.Fatalf("expected every contending trigger to drop, %d ran", extra)
	}

	close(det.proceed)
	if !<-first {
		t.Fatal("expected the first trigger to run")
	}

	passes, dropped := o.Stats()
	if passes != 1 {
		t.Fatalf("expected exactly one pass, got %d", passes)
	}
	if dropped != 100 {
		t.Fatalf("expected 100 dropped triggers, got %d", dropped)
	}
	if a, _, _ := sink.counts(); a != 1 {
		t.Fatalf("expected one analysis shown, got %d", a)
	}
}

func TestTrigger_SuccessShowsAnalysis(t *testing.T) {
	det := &fakeDetector{ext: validExtraction()}
	an := &fakeAnalyzer{result: analysis.Result{WinProbability: 0.7, KeyAdvice: "push early"}}
	sink := &recordingSink{}
	o := NewOrchestrator(det, an, sink, testOptions(), discardLogger)

	if !o.Trigger(context.Background(), Event{Kind: Manual}) {
		t.Fatal("expected the trigger to run")
	}
	if a, e, _ := sink.counts(); a != 1 || e != 0 {
		t.Fatalf("expected 1 analysis and 0 errors, got %d/%d", a, e)
	}
	if sink.analyses[0].WinProbability != 0.7 {
		t.Fatalf("unexpected result forwarded: %+v", sink.analyses[0])
	}
}

func TestTrigger_IncompleteRosterShowsErrorOnce(t *testing.T) {
	det := &fakeDetector{extractErr: state.ErrIncompleteRoster}
	sink := &recordingSink{}
	o := NewOrchestrator(det, &fakeAnalyzer{}, sink, testOptions(), discardLogger)

	if !o.Trigger(context.Background(), Event{Kind: Manual}) {
		t.Fatal("expected the trigger to run")
	}
	a, e, _ := sink.counts()
	if a != 0 || e != 1 {
		t.Fatalf("expected 0 analyses and 1 error, got %d/%d", a, e)
	}
	if sink.errs[0].Code != fault.IncompleteRoster {
		t.Fatalf("expected code %s, got %s", fault.IncompleteRoster, sink.errs[0].Code)
	}
}

func TestTrigger_AnalyzerErrorShowsBoundaryError(t *testing.T) {
	det := &fakeDetector{ext: validExtraction()}
	an := &fakeAnalyzer{err: fault.New(fault.AnalysisFailed, "service down", nil)}
	sink := &recordingSink{}
	o := NewOrchestrator(det, an, sink, testOptions(), discardLogger)

	o.Trigger(context.Background(), Event{Kind: Manual})
	a, e, _ := sink.counts()
	if a != 0 || e != 1 {
		t.Fatalf("expected 0 analyses and 1 error, got %d/%d", a, e)
	}
	if sink.errs[0].Code != fault.AnalysisFailed {
		t.Fatalf("expected code %s, got %s", fault.AnalysisFailed, sink.errs[0].Code)
	}
}

func TestTrigger_CancelledContextProducesNoOutput(t *testing.T) {
	det := &fakeDetector{ext: validExtraction()}
	sink := &recordingSink{}
	o := NewOrchestrator(det, &fakeAnalyzer{}, sink, testOptions(), discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.Trigger(ctx, Event{Kind: Periodic, Settle: 50 * time.Millisecond})

	if a, e, tr := sink.counts(); a != 0 || e != 0 || tr != 0 {
		t.Fatalf("expected no sink writes after cancellation, got %d/%d/%d", a, e, tr)
	}
}

func TestRun_FiresPassOnDataBearingTransition(t *testing.T) {
	det := &fakeDetector{
		states: []state.GameState{
			{Phase: state.PhaseMenu, Confidence: 0.4},
			{Phase: state.PhaseMenu, Confidence: 0.4},
			{Phase: state.PhaseLoading, Confidence: 0.9},
		},
		ext: validExtraction(),
	}
	sink := &recordingSink{}
	o := NewOrchestrator(det, &fakeAnalyzer{}, sink, testOptions(), discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a, _, _ := sink.counts(); a >= 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled from Run, got %v", err)
	}

	a, _, tr := sink.counts()
	if a != 1 {
		t.Fatalf("expected one analysis after entering loading, got %d", a)
	}
	if tr < 2 {
		t.Fatalf("expected at least two transitions (menu, loading), got %d", tr)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.transitions[0] != [2]state.Phase{state.PhaseUnknown, state.PhaseMenu} {
		t.Fatalf("unexpected first transition: %v", sink.transitions[0])
	}
	last := sink.transitions[len(sink.transitions)-1]
	if last != [2]state.Phase{state.PhaseMenu, state.PhaseLoading} {
		t.Fatalf("unexpected last transition: %v", last)
	}
}

func TestRun_ScoreboardTransitionStartsNoPass(t *testing.T) {
	det := &fakeDetector{
		states: []state.GameState{
			{Phase: state.PhaseInGame, Confidence: 0.5},
			{Phase: state.PhaseScoreboard, Confidence: 0.9},
		},
		ext: validExtraction(),
	}
	sink := &recordingSink{}
	o := NewOrchestrator(det, &fakeAnalyzer{}, sink, testOptions(), discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	// Wait until the poller has seen both transitions (in-game, scoreboard).
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, _, tr := sink.counts(); tr >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	// Entering the scoreboard is key-driven, never poller-driven.
	if passes, _ := o.Stats(); passes != 0 {
		t.Fatalf("expected no pass from the scoreboard transition, got %d", passes)
	}
	if a, e, _ := sink.counts(); a != 0 || e != 0 {
		t.Fatalf("expected no analyses or errors, got %d/%d", a, e)
	}
}

func TestRequestAnalysis_RunsManualPass(t *testing.T) {
	det := &fakeDetector{ext: validExtraction()}
	an := &fakeAnalyzer{result: analysis.Result{WinProbability: 0.55}}
	sink := &recordingSink{}
	o := NewOrchestrator(det, an, sink, testOptions(), discardLogger)

	if !o.RequestAnalysis(context.Background()) {
		t.Fatal("expected the requested analysis to run")
	}
	if passes, _ := o.Stats(); passes != 1 {
		t.Fatalf("expected one pass, got %d", passes)
	}
	if a, e, _ := sink.counts(); a != 1 || e != 0 {
		t.Fatalf("expected 1 analysis and 0 errors, got %d/%d", a, e)
	}
}

func TestRun_BacksOffOnDetectErrors(t *testing.T) {
	det := &fakeDetector{detectErr: errors.New("flaky")}
	sink := &recordingSink{}
	opts := Options{
		UpdateRate:   5 * time.Millisecond,
		ErrorBackoff: 40 * time.Millisecond,
	}
	o := NewOrchestrator(det, &fakeAnalyzer{}, sink, opts, discardLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = o.Run(ctx)

	// Without backoff the 5ms poll would hit ~20 times in 100ms.
	if calls := det.DetectCalls(); calls > 5 {
		t.Fatalf("expected the backoff to cap detect calls, got %d", calls)
	}
}

func TestHandleKey_HotkeyAlwaysTriggers(t *testing.T) {
	det := &fakeDetector{ext: validExtraction()}
	sink := &recordingSink{}
	o := NewOrchestrator(det, &fakeAnalyzer{}, sink, testOptions(), discardLogger)

	o.HandleKey(context.Background(), "f1", "f1", "tab")
	if passes, _ := o.Stats(); passes != 1 {
		t.Fatalf("expected the hotkey to start a pass, got %d", passes)
	}
}

func TestHandleKey_ScoreboardKeyGatedOnPhase(t *testing.T) {
	det := &fakeDetector{
		states: []state.GameState{{Phase: state.PhaseInGame, Confidence: 0.5}},
		ext:    validExtraction(),
	}
	sink := &recordingSink{}
	o := NewOrchestrator(det, &fakeAnalyzer{}, sink, testOptions(), discardLogger)
	ctx := context.Background()

	// No match on screen yet: scoreboard key does nothing.
	o.HandleKey(ctx, "tab", "f1", "tab")
	if passes, _ := o.Stats(); passes != 0 {
		t.Fatalf("expected no pass before a match is detected, got %d", passes)
	}

	// Drive the tracker into the in-game phase via the polling loop.
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- o.Run(runCtx) }()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && o.CurrentPhase() != state.PhaseInGame {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if o.CurrentPhase() != state.PhaseInGame {
		t.Fatal("tracker never reached the in-game phase")
	}

	o.HandleKey(ctx, "tab", "f1", "tab")
	if passes, _ := o.Stats(); passes != 1 {
		t.Fatalf("expected the scoreboard key to start a pass in game, got %d", passes)
	}

	// An unrelated key is ignored.
	o.HandleKey(ctx, "q", "f1", "tab")
	if passes, _ := o.Stats(); passes != 1 {
		t.Fatalf("unrelated key started a pass: %d", passes)
	}
}
