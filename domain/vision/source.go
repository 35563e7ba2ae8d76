package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
)

// ErrCaptureUnavailable reports that the capture device is missing or
// inaccessible. Fatal for the current detection pass, not for the process.
var ErrCaptureUnavailable = errors.New("vision: capture device unavailable")

// Frame is an owned RGBA pixel buffer tagged with its source region and
// capture time. Ownership passes to the caller; the source retains nothing.
type Frame struct {
	Img        *image.RGBA
	Region     string
	CapturedAt time.Time
}

// SourceStats summarises capture behaviour for instrumentation.
type SourceStats struct {
	Captures   uint64
	Failures   uint64
	AvgCapture time.Duration
}

// Source acquires frames from the display under a rate limit and scale factor.
type Source interface {
	CaptureFull(ctx context.Context) (Frame, error)
	CaptureRegion(ctx context.Context, region ScreenRegion) (Frame, error)
	CaptureRegions(ctx context.Context, regions []ScreenRegion) (map[string]Frame, error)
	Resolution() (Resolution, error)
	SetScale(scale float64)
	SetTargetFPS(fps float64)
	ClearCache()
	Stats() SourceStats
}

// GrabFunc captures the given absolute screen rectangle. Injected so tests can
// run without a display.
type GrabFunc func(r image.Rectangle) (*image.RGBA, error)

// ScreenRectFunc reports the monitor bounds.
type ScreenRectFunc func() (image.Rectangle, error)

type screenSource struct {
	grab       GrabFunc
	screenRect ScreenRectFunc
	logger     *slog.Logger

	// rate limiting: callers serialize on mu and wait out the interval
	mu          sync.Mutex
	lastCapture time.Time

	minIntervalNanos atomic.Int64
	scaleBits        atomic.Uint64

	geomMu   sync.RWMutex
	geometry map[geomKey]image.Rectangle

	captures  atomic.Uint64
	failures  atomic.Uint64
	grabNanos atomic.Uint64
}

type geomKey struct {
	name          string
	x, y          int
	width, height int
}

// NewSource constructs a screen source capturing via the platform grabber.
func NewSource(fps, scale float64, logger *slog.Logger) Source {
	return NewSourceWith(osGrab, osScreenRect, fps, scale, logger)
}

// NewSourceWith constructs a source with injected grab functions (tests).
func NewSourceWith(grab GrabFunc, screenRect ScreenRectFunc, fps, scale float64, logger *slog.Logger) Source {
	s := &screenSource{
		grab:       grab,
		screenRect: screenRect,
		logger:     logger,
		geometry:   make(map[geomKey]image.Rectangle),
	}
	s.SetTargetFPS(fps)
	s.SetScale(scale)
	return s
}

// SetTargetFPS adjusts the minimum inter-capture interval at runtime.
func (s *screenSource) SetTargetFPS(fps float64) {
	if fps <= 0 {
		s.minIntervalNanos.Store(0)
		return
	}
	s.minIntervalNanos.Store(int64(float64(time.Second) / fps))
}

// SetScale adjusts the linear resolution scale applied to captured buffers.
func (s *screenSource) SetScale(scale float64) {
	if scale <= 0 || scale > 1 {
		scale = 1.0
	}
	s.scaleBits.Store(math.Float64bits(scale))
}

func (s *screenSource) scale() float64 {
	return math.Float64frombits(s.scaleBits.Load())
}

func (s *screenSource) Stats() SourceStats {
	captures := s.captures.Load()
	total := s.grabNanos.Load()
	var avg time.Duration
	if captures > 0 {
		avg = time.Duration(total / captures)
	}
	return SourceStats{Captures: captures, Failures: s.failures.Load(), AvgCapture: avg}
}

func (s *screenSource) Resolution() (Resolution, error) {
	r, err := s.screenRect()
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return Resolution{W: r.Dx(), H: r.Dy()}, nil
}

// throttle suspends the caller until the inter-capture interval has elapsed.
// Callers serialize here, so concurrent captures are spaced out too.
func (s *screenSource) throttle(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	interval := time.Duration(s.minIntervalNanos.Load())
	if interval > 0 && !s.lastCapture.IsZero() {
		if wait := interval - time.Since(s.lastCapture); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	s.lastCapture = time.Now()
	return nil
}

func (s *screenSource) CaptureFull(ctx context.Context) (Frame, error) {
	screen, err := s.screenRect()
	if err != nil {
		s.failures.Add(1)
		return Frame{}, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	if err := s.throttle(ctx); err != nil {
		return Frame{}, err
	}
	return s.capture("full", screen)
}

func (s *screenSource) CaptureRegion(ctx context.Context, region ScreenRegion) (Frame, error) {
	rect, err := s.resolve(region)
	if err != nil {
		return Frame{}, err
	}
	if err := s.throttle(ctx); err != nil {
		return Frame{}, err
	}
	return s.capture(region.Name, rect)
}

// CaptureRegions grabs all regions as one logical operation: the rate limit is
// paid once for the whole batch.
func (s *screenSource) CaptureRegions(ctx context.Context, regions []ScreenRegion) (map[string]Frame, error) {
	if err := s.throttle(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]Frame, len(regions))
	for _, region := range regions {
		rect, err := s.resolve(region)
		if err != nil {
			return nil, err
		}
		f, err := s.capture(region.Name, rect)
		if err != nil {
			return nil, err
		}
		out[region.Name] = f
	}
	return out, nil
}

// resolve maps region geometry to absolute monitor coordinates, consulting the
// geometry cache first. The cache holds coordinates only, never pixels.
func (s *screenSource) resolve(region ScreenRegion) (image.Rectangle, error) {
	key := geomKey{region.Name, region.X, region.Y, region.Width, region.Height}
	s.geomMu.RLock()
	rect, ok := s.geometry[key]
	s.geomMu.RUnlock()
	if ok {
		return rect, nil
	}

	screen, err := s.screenRect()
	if err != nil {
		s.failures.Add(1)
		return image.Rectangle{}, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	rect = region.Rect().Add(screen.Min).Intersect(screen)
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("vision: region %q out of screen bounds %v", region.Name, screen)
	}

	s.geomMu.Lock()
	s.geometry[key] = rect
	s.geomMu.Unlock()
	return rect, nil
}

// ClearCache drops all cached region geometry. Safe to call concurrently with
// captures; subsequent captures recompute coordinates.
func (s *screenSource) ClearCache() {
	s.geomMu.Lock()
	s.geometry = make(map[geomKey]image.Rectangle)
	s.geomMu.Unlock()
	if s.logger != nil {
		s.logger.Debug("region geometry cache cleared")
	}
}

func (s *screenSource) capture(name string, rect image.Rectangle) (Frame, error) {
	start := time.Now()
	img, err := s.grab(rect)
	if err != nil {
		s.failures.Add(1)
		return Frame{}, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	s.grabNanos.Add(uint64(time.Since(start).Nanoseconds()))
	s.captures.Add(1)

	if scale := s.scale(); scale != 1.0 {
		img = downscale(img, scale)
	}
	return Frame{Img: img, Region: name, CapturedAt: time.Now()}, nil
}

// downscale resizes the buffer by a linear factor, trading recognition
// accuracy for throughput on constrained hardware.
func downscale(img *image.RGBA, scale float64) *image.RGBA {
	b := img.Bounds()
	w := int(float64(b.Dx())*scale + 0.5)
	h := int(float64(b.Dy())*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	resized := imaging.Resize(img, w, h, imaging.Box)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), resized, resized.Bounds().Min, draw.Src)
	return out
}
