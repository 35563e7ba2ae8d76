package state

import (
	"sync"
	"time"
)

// Phase enumerates the screen phases the detector can classify.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseMenu
	PhaseLoading
	PhaseChampSelect
	PhaseScoreboard
	PhaseInGame
)

func (p Phase) String() string {
	switch p {
	case PhaseMenu:
		return "menu"
	case PhaseLoading:
		return "loading"
	case PhaseChampSelect:
		return "champion_select"
	case PhaseScoreboard:
		return "scoreboard"
	case PhaseInGame:
		return "in_game"
	default:
		return "unknown"
	}
}

// DataBearing reports whether roster extraction makes sense for this phase.
func (p Phase) DataBearing() bool {
	return p == PhaseLoading || p == PhaseChampSelect || p == PhaseScoreboard
}

// GameState is one detection result. Resolved names travel separately as an
// Extraction; a detection never carries a partial roster.
type GameState struct {
	Phase      Phase
	Confidence float64
	At         time.Time
}

// Extraction is a structured 5v5 roster read from the screen. It is valid
// only when both sides carry exactly five de-duplicated names; anything else
// is rejected, never padded or partially forwarded.
type Extraction struct {
	Team1 []string `json:"team1"`
	Team2 []string `json:"team2"`
}

// Valid reports whether both sides have exactly teamSize entries.
func (e Extraction) Valid() bool {
	return len(e.Team1) == teamSize && len(e.Team2) == teamSize
}

const teamSize = 5

// Tracker remembers the previously detected phase so transition actions fire
// exactly once per distinct change. Safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	last Phase
	seen bool
}

// Observe records next and reports the previous phase and whether a
// transition occurred. Repeated observation of an unchanged phase reports no
// change.
func (t *Tracker) Observe(next Phase) (prev Phase, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev = t.last
	if !t.seen {
		t.seen = true
		t.last = next
		return PhaseUnknown, next != PhaseUnknown
	}
	changed = next != t.last
	t.last = next
	return prev, changed
}

// Current returns the last observed phase.
func (t *Tracker) Current() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
