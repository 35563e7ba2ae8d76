package vision

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/liam5322/smite-assault-advisor/config"
)

// ScreenRegion is a named rectangle on the game display associated with one
// piece of on-screen information. Immutable once defined for a resolution.
type ScreenRegion struct {
	Name        string
	X, Y        int
	Width       int
	Height      int
	Description string
}

// Rect returns the region as an image.Rectangle.
func (r ScreenRegion) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Region names consumed by the state detector.
const (
	RegionLoadingIndicator = "loading_indicator"
	RegionLoadingTeam1     = "loading_team1"
	RegionLoadingTeam2     = "loading_team2"
	RegionChampSelect      = "champ_select"
	RegionScoreboardCenter = "scoreboard_center"
	RegionMinimap          = "minimap"
)

// Resolution is a structured display resolution used as a profile key.
type Resolution struct {
	W, H int
}

func (r Resolution) String() string { return fmt.Sprintf("%dx%d", r.W, r.H) }

// Profile maps region names to their geometry for one resolution.
type Profile map[string]ScreenRegion

// defaultResolution is used when the detected resolution has no profile.
var defaultResolution = Resolution{1920, 1080}

// builtinProfiles carries the geometry for the resolutions the advisor has
// been tuned on. Anything else falls back to the 1920x1080 profile.
func builtinProfiles() map[Resolution]Profile {
	return map[Resolution]Profile{
		{1920, 1080}: {
			RegionLoadingIndicator: {RegionLoadingIndicator, 760, 40, 400, 80, "Match mode banner on the loading screen"},
			RegionLoadingTeam1:     {RegionLoadingTeam1, 50, 250, 400, 600, "Left team god list on the loading screen"},
			RegionLoadingTeam2:     {RegionLoadingTeam2, 1470, 250, 400, 600, "Right team god list on the loading screen"},
			RegionChampSelect:      {RegionChampSelect, 100, 200, 1720, 600, "Champion select area"},
			RegionScoreboardCenter: {RegionScoreboardCenter, 300, 200, 1320, 600, "Item grid on the Tab scoreboard"},
			RegionMinimap:          {RegionMinimap, 1632, 810, 288, 270, "Minimap corner"},
		},
		{1366, 768}: {
			RegionLoadingIndicator: {RegionLoadingIndicator, 540, 28, 284, 57, "Match mode banner on the loading screen"},
			RegionLoadingTeam1:     {RegionLoadingTeam1, 35, 178, 284, 427, "Left team god list on the loading screen"},
			RegionLoadingTeam2:     {RegionLoadingTeam2, 1046, 178, 284, 427, "Right team god list on the loading screen"},
			RegionChampSelect:      {RegionChampSelect, 70, 140, 1226, 428, "Champion select area"},
			RegionScoreboardCenter: {RegionScoreboardCenter, 213, 142, 939, 427, "Item grid on the Tab scoreboard"},
			RegionMinimap:          {RegionMinimap, 1161, 576, 205, 192, "Minimap corner"},
		},
	}
}

// ProfileTable resolves the region profile for a display resolution with an
// explicit default fallback. Safe for concurrent lookups.
type ProfileTable struct {
	mu       sync.Mutex
	profiles map[Resolution]Profile
	logger   *slog.Logger
	warned   map[Resolution]bool
}

// NewProfileTable returns the built-in profiles, each region optionally
// overridden by the ocr_regions config key.
func NewProfileTable(cfg *config.Config, logger *slog.Logger) *ProfileTable {
	profiles := builtinProfiles()
	if cfg != nil && len(cfg.OCRRegions) > 0 {
		for res, p := range profiles {
			for name, spec := range cfg.OCRRegions {
				base, ok := p[name]
				if !ok {
					base = ScreenRegion{Name: name, Description: "configured region"}
				}
				base.X, base.Y = spec.X, spec.Y
				base.Width, base.Height = spec.Width, spec.Height
				p[name] = base
			}
			profiles[res] = p
		}
	}
	return &ProfileTable{profiles: profiles, logger: logger, warned: make(map[Resolution]bool)}
}

// Lookup returns the profile for res. Unknown resolutions fall back to the
// default profile and log a warning once per resolution.
func (t *ProfileTable) Lookup(res Resolution) Profile {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.profiles[res]; ok {
		return p
	}
	if !t.warned[res] {
		t.warned[res] = true
		if t.logger != nil {
			t.logger.Warn("no region profile for resolution, using default",
				"resolution", res.String(), "default", defaultResolution.String())
		}
	}
	return t.profiles[defaultResolution]
}

// Resolutions lists the resolutions with a dedicated profile.
func (t *ProfileTable) Resolutions() []Resolution {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Resolution, 0, len(t.profiles))
	for res := range t.profiles {
		out = append(out, res)
	}
	return out
}

// ValidateProfile checks that every region has positive dimensions and lies
// within the monitor bounds of its resolution.
func ValidateProfile(res Resolution, p Profile) error {
	bounds := image.Rect(0, 0, res.W, res.H)
	for name, r := range p {
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("vision: region %q has non-positive size %dx%d", name, r.Width, r.Height)
		}
		if !r.Rect().In(bounds) {
			return fmt.Errorf("vision: region %q rect %v exceeds %s bounds", name, r.Rect(), res)
		}
	}
	return nil
}
