package vision

import (
	"image"
	"image/color"
	"testing"
)

// syntheticText paints dark glyph-like strokes on a light background.
func syntheticText() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	// Vertical stroke.
	for y := 10; y < 50; y++ {
		for x := 20; x < 24; x++ {
			img.SetGray(x, y, color.Gray{Y: 30})
		}
	}
	// Horizontal stroke.
	for y := 30; y < 34; y++ {
		for x := 10; x < 54; x++ {
			img.SetGray(x, y, color.Gray{Y: 30})
		}
	}
	return img
}

func TestPreprocess_OutputIsBinary(t *testing.T) {
	out := Preprocess(syntheticText())
	for i, p := range out.Pix {
		if p != 0 && p != 255 {
			t.Fatalf("pixel %d is %d, expected binary output", i, p)
		}
	}
}

func TestPreprocess_PreservesDimensions(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 37, 21))
	out := Preprocess(src)
	b := out.Bounds()
	if b.Dx() != 37 || b.Dy() != 21 {
		t.Fatalf("expected 37x21 output, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPreprocess_KeepsTextContrast(t *testing.T) {
	out := Preprocess(syntheticText())

	// Stroke interiors end up black, quiet background ends up white.
	if got := out.Pix[30*out.Stride+21]; got != 0 {
		t.Fatalf("expected black stroke pixel, got %d", got)
	}
	if got := out.Pix[5*out.Stride+55]; got != 255 {
		t.Fatalf("expected white background pixel, got %d", got)
	}
}

func TestPreprocess_StableOnOwnOutput(t *testing.T) {
	first := Preprocess(syntheticText())
	second := Preprocess(first)

	if len(first.Pix) != len(second.Pix) {
		t.Fatalf("size changed: %d vs %d", len(first.Pix), len(second.Pix))
	}
	same := 0
	for i := range first.Pix {
		if first.Pix[i] == second.Pix[i] {
			same++
		}
	}
	if ratio := float64(same) / float64(len(first.Pix)); ratio < 0.98 {
		t.Fatalf("second pass changed %.1f%% of pixels", (1-ratio)*100)
	}
}

func TestToGray_RGBAPathMatchesGenericPath(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			rgba.Set(x, y, color.RGBA{R: byte(x * 16), G: byte(y * 16), B: 128, A: 255})
		}
	}
	fast := toGray(rgba)

	// Force the generic path by wrapping in a plain image.Image.
	generic := toGray(subImageView{rgba})
	for i := range fast.Pix {
		if fast.Pix[i] != generic.Pix[i] {
			t.Fatalf("pixel %d differs: fast=%d generic=%d", i, fast.Pix[i], generic.Pix[i])
		}
	}
}

// subImageView hides the concrete type so toGray takes its generic branch.
type subImageView struct{ img *image.RGBA }

func (v subImageView) ColorModel() color.Model { return v.img.ColorModel() }
func (v subImageView) Bounds() image.Rectangle { return v.img.Bounds() }
func (v subImageView) At(x, y int) color.Color { return v.img.At(x, y) }
