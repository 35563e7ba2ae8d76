package config

import (
	"encoding/json"
	"os"

	"github.com/spf13/cast"
)

// RegionSpec is a raw rectangle from the ocr_regions config key. It overrides
// the built-in region of the same name in the active resolution profile.
type RegionSpec struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Config holds runtime configuration for the perception pipeline.
// Fields may be loaded from a JSON file and overridden by environment
// variables (AA_* keys, see ApplyEnv).
type Config struct {
	Debug bool `json:"debug"`

	// Recognition
	OCREngine           string                `json:"ocr_engine"` // "advanced" or "lightweight"
	GPUAcceleration     bool                  `json:"gpu_acceleration"`
	OCRConfidence       float64               `json:"ocr_confidence"`        // per-result floor, 0.0-1.0
	FuzzyMatchThreshold int                   `json:"fuzzy_match_threshold"` // 0-100
	OCRRegions          map[string]RegionSpec `json:"ocr_regions"`
	RecognizerURL       string                `json:"recognizer_url"` // advanced backend sidecar

	// Capture
	ImageScale float64 `json:"image_scale"`
	CaptureFPS float64 `json:"capture_fps"`
	Monitor    int     `json:"monitor"`

	// Orchestration
	UpdateRateSeconds   float64 `json:"update_rate"` // seconds between polling passes
	SettleDelaySeconds  float64 `json:"settle_delay"`
	ErrorBackoffSeconds float64 `json:"error_backoff"`
	Hotkey              string  `json:"hotkey"`
	ScoreboardKey       string  `json:"scoreboard_key"`

	// External boundaries
	AnalysisURL            string  `json:"analysis_url"`
	AnalysisTimeoutSeconds float64 `json:"analysis_timeout"`
	DisplayListen          string  `json:"display_listen"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:                  false,
		OCREngine:              "advanced",
		GPUAcceleration:        false,
		OCRConfidence:          0.3,
		FuzzyMatchThreshold:    80,
		OCRRegions:             nil,
		RecognizerURL:          "http://127.0.0.1:8500",
		ImageScale:             1.0,
		CaptureFPS:             30,
		Monitor:                0,
		UpdateRateSeconds:      2.0,
		SettleDelaySeconds:     3.0,
		ErrorBackoffSeconds:    5.0,
		Hotkey:                 "f1",
		ScoreboardKey:          "tab",
		AnalysisURL:            "http://localhost:9000/api/analyze",
		AnalysisTimeoutSeconds: 8.0,
		DisplayListen:          "127.0.0.1:9100",
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.OCREngine != "advanced" && c.OCREngine != "lightweight" {
		c.OCREngine = "advanced"
	}
	if c.OCRConfidence < 0 || c.OCRConfidence > 1 {
		c.OCRConfidence = 0.3
	}
	if c.FuzzyMatchThreshold <= 0 || c.FuzzyMatchThreshold > 100 {
		c.FuzzyMatchThreshold = 80
	}
	if c.ImageScale <= 0 || c.ImageScale > 1 {
		c.ImageScale = 1.0
	}
	if c.CaptureFPS <= 0 {
		c.CaptureFPS = 30
	}
	if c.UpdateRateSeconds <= 0 {
		c.UpdateRateSeconds = 2.0
	}
	if c.SettleDelaySeconds < 0 {
		c.SettleDelaySeconds = 3.0
	}
	if c.ErrorBackoffSeconds <= 0 {
		c.ErrorBackoffSeconds = 5.0
	}
	if c.AnalysisTimeoutSeconds <= 0 {
		c.AnalysisTimeoutSeconds = 8.0
	}
	if c.Hotkey == "" {
		c.Hotkey = "f1"
	}
	if c.ScoreboardKey == "" {
		c.ScoreboardKey = "tab"
	}
	return nil
}

// Load attempts to read configuration from the given JSON file path. If the file
// does not exist it returns DefaultConfig(). On JSON error it returns defaults
// with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return cfg, err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// ApplyEnv overrides config fields from AA_* environment variables. Unset
// variables leave the current value untouched.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv("AA_DEBUG"); ok {
		c.Debug = cast.ToBool(v)
	}
	if v, ok := os.LookupEnv("AA_OCR_ENGINE"); ok {
		c.OCREngine = v
	}
	if v, ok := os.LookupEnv("AA_GPU_ACCELERATION"); ok {
		c.GPUAcceleration = cast.ToBool(v)
	}
	if v, ok := os.LookupEnv("AA_OCR_CONFIDENCE"); ok {
		c.OCRConfidence = cast.ToFloat64(v)
	}
	if v, ok := os.LookupEnv("AA_FUZZY_MATCH_THRESHOLD"); ok {
		c.FuzzyMatchThreshold = cast.ToInt(v)
	}
	if v, ok := os.LookupEnv("AA_IMAGE_SCALE"); ok {
		c.ImageScale = cast.ToFloat64(v)
	}
	if v, ok := os.LookupEnv("AA_CAPTURE_FPS"); ok {
		c.CaptureFPS = cast.ToFloat64(v)
	}
	if v, ok := os.LookupEnv("AA_UPDATE_RATE"); ok {
		c.UpdateRateSeconds = cast.ToFloat64(v)
	}
	if v, ok := os.LookupEnv("AA_ANALYSIS_URL"); ok {
		c.AnalysisURL = v
	}
	if v, ok := os.LookupEnv("AA_RECOGNIZER_URL"); ok {
		c.RecognizerURL = v
	}
	if v, ok := os.LookupEnv("AA_DISPLAY_LISTEN"); ok {
		c.DisplayListen = v
	}
	if v, ok := os.LookupEnv("AA_HOTKEY"); ok {
		c.Hotkey = v
	}
	if v, ok := os.LookupEnv("AA_SCOREBOARD_KEY"); ok {
		c.ScoreboardKey = v
	}
	_ = c.Validate()
}
