package ocr

import (
	"context"
	"image"
)

// RecognizedText is one text fragment read from an image. Confidence is in
// the 0.0-1.0 range. Order of fragments is not guaranteed across backends.
type RecognizedText struct {
	Text       string
	Confidence float64
}

// Backend turns a preprocessed image into recognized text fragments.
// ReadText holds no per-call state between invocations; implementations are
// safe for sequential reuse across detection passes.
type Backend interface {
	Name() string
	Available() bool
	ReadText(ctx context.Context, img image.Image) ([]RecognizedText, error)
}
