package vision

import (
	"image"
	"image/png"
	"os"
	"testing"
	"time"
)

func TestSaveDebugFrame(t *testing.T) {
	frame := Frame{
		Img:        image.NewRGBA(image.Rect(0, 0, 12, 8)),
		Region:     "loading_team1",
		CapturedAt: time.Now(),
	}
	path, err := SaveDebugFrame(frame, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open dump: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("dump is not a valid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 8 {
		t.Fatalf("dump has wrong dimensions: %dx%d", b.Dx(), b.Dy())
	}
}

func TestSaveDebugFrame_EmptyFrameFails(t *testing.T) {
	if _, err := SaveDebugFrame(Frame{Region: "x"}, t.TempDir()); err == nil {
		t.Fatal("expected error for an empty frame")
	}
}
