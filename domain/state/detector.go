package state

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/liam5322/smite-assault-advisor/domain/ocr"
	"github.com/liam5322/smite-assault-advisor/domain/vision"
)

// ErrIncompleteRoster reports an extraction that did not yield exactly five
// resolved names per side. The extraction is discarded, never padded.
var ErrIncompleteRoster = errors.New("state: incomplete roster")

// Heuristic thresholds tuned against SMITE 2 screens.
const (
	scoreboardLuminanceMax = 60.0 // Tab scoreboard darkens the screen
	scoreboardMinSegments  = 10   // straight-edge segments in the item grid
	edgeGradientMin        = 40   // per-pixel gradient magnitude for an edge
	edgeMinRunLength       = 12   // consecutive edge pixels forming a segment
	minimapColorRatioMin   = 1.2  // (G+B)/(R+1) dominance of jungle/water hues
)

// Per-phase confidence reported on a pixel-heuristic hit. OCR-backed phases
// report the matched fragment's confidence instead.
const (
	confidenceScoreboard = 0.9
	confidenceInGame     = 0.5
	confidenceMenu       = 0.4
)

var loadingKeywords = []string{"ASSAULT", "LOADING", "MATCH", "CONQUEST", "ARENA"}

var champSelectKeywords = []string{"CHAMPION", "SELECT", "LOCK IN", "RANDOM", "AUTO"}

// TextReader recognizes text in a preprocessed image, already filtered by the
// engine's confidence floor.
type TextReader interface {
	ReadText(ctx context.Context, img image.Image) ([]ocr.RecognizedText, error)
}

// NameResolver maps a recognized fragment to a canonical roster entry.
type NameResolver interface {
	Resolve(raw string) (string, bool)
}

// Detector classifies the current screen into a Phase and extracts rosters
// from data-bearing phases.
type Detector struct {
	src      vision.Source
	reader   TextReader
	resolver NameResolver
	profiles *vision.ProfileTable
	logger   *slog.Logger
	dumpDir  string
}

// NewDetector wires the detector's collaborators.
func NewDetector(src vision.Source, reader TextReader, resolver NameResolver, profiles *vision.ProfileTable, logger *slog.Logger) *Detector {
	return &Detector{src: src, reader: reader, resolver: resolver, profiles: profiles, logger: logger}
}

// EnableFrameDump makes every roster extraction dump its team frames as PNGs
// under dir. Debug aid; dump failures are logged, never fatal.
func (d *Detector) EnableFrameDump(dir string) {
	d.dumpDir = dir
}

// Detect runs every phase heuristic independently and resolves overlaps by a
// fixed priority: Loading > Scoreboard > ChampSelect > InGame > Menu.
// A capture failure is fatal for this pass only.
func (d *Detector) Detect(ctx context.Context) (GameState, error) {
	profile, err := d.activeProfile()
	if err != nil {
		return GameState{}, err
	}

	full, err := d.src.CaptureFull(ctx)
	if err != nil {
		return GameState{}, err
	}
	frames, err := d.src.CaptureRegions(ctx, []vision.ScreenRegion{
		profile[vision.RegionLoadingIndicator],
		profile[vision.RegionChampSelect],
		profile[vision.RegionScoreboardCenter],
		profile[vision.RegionMinimap],
	})
	if err != nil {
		return GameState{}, err
	}

	now := time.Now()

	// Heuristics are not mutually exclusive by construction; evaluate all,
	// then pick by priority. OCR errors local to one region only disable
	// that region's heuristic.
	loadingConf, loading := d.matchKeywords(ctx, frames[vision.RegionLoadingIndicator], loadingKeywords)
	scoreboard := isScoreboard(full.Img, frames[vision.RegionScoreboardCenter].Img)
	champConf, champ := d.matchKeywords(ctx, frames[vision.RegionChampSelect], champSelectKeywords)
	inGame := minimapColorRatio(frames[vision.RegionMinimap].Img) > minimapColorRatioMin

	switch {
	case loading:
		return GameState{Phase: PhaseLoading, Confidence: loadingConf, At: now}, nil
	case scoreboard:
		return GameState{Phase: PhaseScoreboard, Confidence: confidenceScoreboard, At: now}, nil
	case champ:
		return GameState{Phase: PhaseChampSelect, Confidence: champConf, At: now}, nil
	case inGame:
		return GameState{Phase: PhaseInGame, Confidence: confidenceInGame, At: now}, nil
	default:
		return GameState{Phase: PhaseMenu, Confidence: confidenceMenu, At: now}, nil
	}
}

// ExtractRoster captures both team regions as one batch, processes the sides
// concurrently (they share no mutable state) and joins the results before
// validation. A side failing to resolve never aborts the other side; only
// the final validation decides accept/reject.
func (d *Detector) ExtractRoster(ctx context.Context) (Extraction, error) {
	profile, err := d.activeProfile()
	if err != nil {
		return Extraction{}, err
	}
	frames, err := d.src.CaptureRegions(ctx, []vision.ScreenRegion{
		profile[vision.RegionLoadingTeam1],
		profile[vision.RegionLoadingTeam2],
	})
	if err != nil {
		return Extraction{}, err
	}

	var ext Extraction
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ext.Team1 = d.readSide(ctx, frames[vision.RegionLoadingTeam1])
	}()
	go func() {
		defer wg.Done()
		ext.Team2 = d.readSide(ctx, frames[vision.RegionLoadingTeam2])
	}()
	wg.Wait()

	if !ext.Valid() {
		if d.logger != nil {
			d.logger.Warn("roster extraction rejected",
				"team1", len(ext.Team1), "team2", len(ext.Team2))
		}
		return Extraction{}, fmt.Errorf("%w: %dv%d", ErrIncompleteRoster, len(ext.Team1), len(ext.Team2))
	}
	if d.logger != nil {
		d.logger.Info("roster extracted", "team1", ext.Team1, "team2", ext.Team2)
	}
	return ext, nil
}

// readSide runs one recognition pass for a single team region: preprocess,
// recognize, resolve and de-duplicate preserving order.
func (d *Detector) readSide(ctx context.Context, frame vision.Frame) []string {
	if frame.Img == nil {
		return nil
	}
	if d.dumpDir != "" {
		if _, err := vision.SaveDebugFrame(frame, d.dumpDir); err != nil && d.logger != nil {
			d.logger.Warn("frame dump failed", "region", frame.Region, "error", err)
		}
	}
	pre := vision.Preprocess(frame.Img)
	results, err := d.reader.ReadText(ctx, pre)
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("recognition failed for region", "region", frame.Region, "error", err)
		}
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, r := range results {
		name, ok := d.resolver.Resolve(r.Text)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		if d.logger != nil {
			d.logger.Debug("god resolved", "region", frame.Region, "raw", r.Text,
				"name", name, "confidence", r.Confidence)
		}
	}
	return names
}

func (d *Detector) activeProfile() (vision.Profile, error) {
	res, err := d.src.Resolution()
	if err != nil {
		return nil, err
	}
	return d.profiles.Lookup(res), nil
}

// matchKeywords OCRs a region and checks the joined uppercase text against an
// allow-list. Returns the best fragment confidence on a hit.
func (d *Detector) matchKeywords(ctx context.Context, frame vision.Frame, keywords []string) (float64, bool) {
	if frame.Img == nil {
		return 0, false
	}
	pre := vision.Preprocess(frame.Img)
	results, err := d.reader.ReadText(ctx, pre)
	if err != nil {
		if d.logger != nil {
			d.logger.Debug("keyword recognition failed", "region", frame.Region, "error", err)
		}
		return 0, false
	}
	if len(results) == 0 {
		return 0, false
	}

	var joined strings.Builder
	best := 0.0
	for i, r := range results {
		if i > 0 {
			joined.WriteByte(' ')
		}
		joined.WriteString(strings.ToUpper(r.Text))
		if r.Confidence > best {
			best = r.Confidence
		}
	}
	text := joined.String()
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return best, true
		}
	}
	return 0, false
}

// isScoreboard checks the Tab overlay signature: the whole screen darkened
// below a luminance threshold plus a dense grid of straight edge segments in
// the profile's scoreboard_center region, where the item grid sits.
func isScoreboard(full, center *image.RGBA) bool {
	if full == nil || center == nil {
		return false
	}
	if meanLuminance(full) >= scoreboardLuminanceMax {
		return false
	}
	return edgeSegments(center) > scoreboardMinSegments
}

func meanLuminance(img *image.RGBA) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			sum += uint64((77*uint32(row[i]) + 150*uint32(row[i+1]) + 29*uint32(row[i+2])) >> 8)
		}
	}
	return float64(sum) / float64(w*h)
}

// edgeSegments counts straight horizontal and vertical edge runs, a cheap
// stand-in for line detection over the scoreboard's icon grid.
func edgeSegments(img *image.RGBA) int {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2 || h < 2 {
		return 0
	}
	gray := make([]byte, w*h)
	idx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := (y - img.Rect.Min.Y) * img.Stride
		for x := b.Min.X; x < b.Max.X; x++ {
			i := off + (x-img.Rect.Min.X)*4
			gray[idx] = byte((77*uint32(img.Pix[i]) + 150*uint32(img.Pix[i+1]) + 29*uint32(img.Pix[i+2])) >> 8)
			idx++
		}
	}

	segments := 0
	// Horizontal runs of vertical gradient.
	for y := 0; y+1 < h; y++ {
		run := 0
		for x := 0; x < w; x++ {
			diff := int(gray[(y+1)*w+x]) - int(gray[y*w+x])
			if diff < 0 {
				diff = -diff
			}
			if diff > edgeGradientMin {
				run++
				if run == edgeMinRunLength {
					segments++
				}
			} else {
				run = 0
			}
		}
	}
	// Vertical runs of horizontal gradient.
	for x := 0; x+1 < w; x++ {
		run := 0
		for y := 0; y < h; y++ {
			diff := int(gray[y*w+x+1]) - int(gray[y*w+x])
			if diff < 0 {
				diff = -diff
			}
			if diff > edgeGradientMin {
				run++
				if run == edgeMinRunLength {
					segments++
				}
			} else {
				run = 0
			}
		}
	}
	return segments
}

// minimapColorRatio measures (green+blue)/(red+1) dominance over the minimap
// corner; jungle and water hues push it above 1 during an active match.
func minimapColorRatio(img *image.RGBA) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var r, g, bl uint64
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			r += uint64(row[i])
			g += uint64(row[i+1])
			bl += uint64(row[i+2])
		}
	}
	n := uint64(w * h)
	avgR := float64(r) / float64(n)
	avgG := float64(g) / float64(n)
	avgB := float64(bl) / float64(n)
	return (avgG + avgB) / (avgR + 1)
}
