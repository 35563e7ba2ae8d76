package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.OCREngine != "advanced" {
		t.Fatalf("expected advanced engine default, got %q", cfg.OCREngine)
	}
	if cfg.OCRConfidence != 0.3 {
		t.Fatalf("expected confidence floor 0.3, got %v", cfg.OCRConfidence)
	}
	if cfg.FuzzyMatchThreshold != 80 {
		t.Fatalf("expected fuzzy threshold 80, got %d", cfg.FuzzyMatchThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults failed validation: %v", err)
	}
}

func TestValidate_ClampsOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCREngine = "quantum"
	cfg.OCRConfidence = 7
	cfg.FuzzyMatchThreshold = 400
	cfg.ImageScale = -1
	cfg.CaptureFPS = 0
	cfg.UpdateRateSeconds = -3
	cfg.Hotkey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OCREngine != "advanced" {
		t.Fatalf("engine not clamped: %q", cfg.OCREngine)
	}
	if cfg.OCRConfidence != 0.3 {
		t.Fatalf("confidence not clamped: %v", cfg.OCRConfidence)
	}
	if cfg.FuzzyMatchThreshold != 80 {
		t.Fatalf("threshold not clamped: %d", cfg.FuzzyMatchThreshold)
	}
	if cfg.ImageScale != 1.0 {
		t.Fatalf("scale not clamped: %v", cfg.ImageScale)
	}
	if cfg.CaptureFPS != 30 {
		t.Fatalf("fps not clamped: %v", cfg.CaptureFPS)
	}
	if cfg.UpdateRateSeconds != 2.0 {
		t.Fatalf("update rate not clamped: %v", cfg.UpdateRateSeconds)
	}
	if cfg.Hotkey != "f1" {
		t.Fatalf("hotkey not defaulted: %q", cfg.Hotkey)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.OCREngine != "advanced" {
		t.Fatalf("expected defaults, got engine %q", cfg.OCREngine)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.json")
	cfg := DefaultConfig()
	cfg.OCREngine = "lightweight"
	cfg.FuzzyMatchThreshold = 85
	cfg.OCRRegions = map[string]RegionSpec{
		"minimap": {X: 1600, Y: 800, Width: 300, Height: 280},
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.OCREngine != "lightweight" || loaded.FuzzyMatchThreshold != 85 {
		t.Fatalf("round trip lost values: %+v", loaded)
	}
	spec, ok := loaded.OCRRegions["minimap"]
	if !ok || spec.X != 1600 || spec.Height != 280 {
		t.Fatalf("region override lost: %+v", loaded.OCRRegions)
	}
}

func TestLoad_BadJSONKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if cfg == nil || cfg.OCREngine != "advanced" {
		t.Fatalf("expected usable defaults alongside the error, got %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("AA_OCR_ENGINE", "lightweight")
	t.Setenv("AA_FUZZY_MATCH_THRESHOLD", "90")
	t.Setenv("AA_DEBUG", "true")
	t.Setenv("AA_HOTKEY", "f2")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.OCREngine != "lightweight" {
		t.Fatalf("env engine override lost: %q", cfg.OCREngine)
	}
	if cfg.FuzzyMatchThreshold != 90 {
		t.Fatalf("env threshold override lost: %d", cfg.FuzzyMatchThreshold)
	}
	if !cfg.Debug {
		t.Fatal("env debug override lost")
	}
	if cfg.Hotkey != "f2" {
		t.Fatalf("env hotkey override lost: %q", cfg.Hotkey)
	}
}
