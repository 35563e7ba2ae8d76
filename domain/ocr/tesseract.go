package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractBackend is the lightweight CPU-only backend. Lower latency, lower
// accuracy on stylized game fonts. Each ReadText call uses a fresh gosseract
// client, so calls carry no shared mutable state.
type TesseractBackend struct {
	logger    *slog.Logger
	available bool
}

// NewTesseractBackend probes the local Tesseract installation by running a
// trivial recognition once.
func NewTesseractBackend(logger *slog.Logger) *TesseractBackend {
	b := &TesseractBackend{logger: logger}
	b.available = b.probe()
	return b
}

func (b *TesseractBackend) Name() string    { return "tesseract" }
func (b *TesseractBackend) Available() bool { return b.available }

func (b *TesseractBackend) probe() bool {
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage("eng"); err != nil {
		if b.logger != nil {
			b.logger.Debug("tesseract probe failed", "error", err)
		}
		return false
	}
	blank, err := encodePNG(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if err != nil {
		return false
	}
	if err := client.SetImageFromBytes(blank); err != nil {
		return false
	}
	if _, err := client.Text(); err != nil {
		if b.logger != nil {
			b.logger.Debug("tesseract probe failed", "error", err)
		}
		return false
	}
	return true
}

// ReadText runs word-level recognition and reports per-word confidences
// scaled to 0.0-1.0.
func (b *TesseractBackend) ReadText(ctx context.Context, img image.Image) ([]RecognizedText, error) {
	if !b.available {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := encodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("tesseract: encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage("eng"); err != nil {
		return nil, fmt.Errorf("tesseract: set language: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("tesseract: set image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract: recognize: %w", err)
	}

	out := make([]RecognizedText, 0, len(boxes))
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		out = append(out, RecognizedText{Text: word, Confidence: box.Confidence / 100.0})
	}
	return out, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
