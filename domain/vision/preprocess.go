package vision

import (
	"image"
	"sort"
)

// Preprocessing constants tuned against SMITE 2 loading-screen captures.
const (
	adaptiveWindow = 11 // local mean window (odd)
	adaptiveC      = 2  // threshold offset below the local mean
	closeKernel    = 2  // morphological closing structuring element
)

// Preprocess normalizes a captured region for text recognition: grayscale,
// adaptive local thresholding, median denoise and a morphological closing pass
// to reconnect broken glyph strokes. Output is a binary image consumable by
// any recognition backend. Re-running it on its own output does not
// materially change the result.
func Preprocess(src image.Image) *image.Gray {
	gray := toGray(src)
	bin := adaptiveThreshold(gray, adaptiveWindow, adaptiveC)
	den := median3x3(bin)
	return closeBinary(den, closeKernel)
}

// toGray converts to single-channel intensity using integer luma weights.
func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		out := image.NewGray(g.Bounds())
		copy(out.Pix, g.Pix)
		return out
	}
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if rgba, ok := src.(*image.RGBA); ok {
		w, h := b.Dx(), b.Dy()
		idx := 0
		for y := 0; y < h; y++ {
			row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
			for x := 0; x < w; x++ {
				i := x * 4
				r, g, bb := row[i], row[i+1], row[i+2]
				out.Pix[idx] = byte((77*uint32(r) + 150*uint32(g) + 29*uint32(bb)) >> 8)
				idx++
			}
		}
		return out
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := src.At(x, y).RGBA()
			v := (77*(r>>8) + 150*(g>>8) + 29*(bb>>8)) >> 8
			out.Pix[(y-b.Min.Y)*out.Stride+(x-b.Min.X)] = byte(v)
		}
	}
	return out
}

// adaptiveThreshold binarizes against the local mean so text survives variable
// backgrounds. A pixel becomes white when it exceeds the window mean minus c.
func adaptiveThreshold(src *image.Gray, window, c int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	// Summed-area table, one row/column of padding.
	integral := make([]uint64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(src.Pix[y*src.Stride+x])
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	half := window / 2
	for y := 0; y < h; y++ {
		y0, y1 := y-half, y+half+1
		if y0 < 0 {
			y0 = 0
		}
		if y1 > h {
			y1 = h
		}
		for x := 0; x < w; x++ {
			x0, x1 := x-half, x+half+1
			if x0 < 0 {
				x0 = 0
			}
			if x1 > w {
				x1 = w
			}
			sum := integral[y1*(w+1)+x1] - integral[y0*(w+1)+x1] - integral[y1*(w+1)+x0] + integral[y0*(w+1)+x0]
			area := uint64((y1 - y0) * (x1 - x0))
			mean := float64(sum) / float64(area)
			if float64(src.Pix[y*src.Stride+x]) > mean-float64(c) {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// median3x3 applies a 3x3 median filter. On binary input this removes
// salt-and-pepper speckle without eroding glyph strokes.
func median3x3(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	var win [9]byte
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					win[n] = src.Pix[yy*src.Stride+xx]
					n++
				}
			}
			s := win[:n]
			sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
			out.Pix[y*out.Stride+x] = s[n/2]
		}
	}
	return out
}

// closeBinary performs a morphological closing (dilate then erode) with a
// k x k structuring element, reconnecting broken glyph strokes.
func closeBinary(src *image.Gray, k int) *image.Gray {
	return erode(dilate(src, k), k)
}

func dilate(src *image.Gray, k int) *image.Gray {
	return morph(src, k, func(cur, v byte) bool { return v > cur })
}

func erode(src *image.Gray, k int) *image.Gray {
	return morph(src, k, func(cur, v byte) bool { return v < cur })
}

func morph(src *image.Gray, k int, take func(cur, v byte) bool) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cur := src.Pix[y*src.Stride+x]
			for dy := 0; dy < k; dy++ {
				yy := y + dy
				if yy >= h {
					continue
				}
				for dx := 0; dx < k; dx++ {
					xx := x + dx
					if xx >= w {
						continue
					}
					if v := src.Pix[yy*src.Stride+xx]; take(cur, v) {
						cur = v
					}
				}
			}
			out.Pix[y*out.Stride+x] = cur
		}
	}
	return out
}
