//go:build windows

package vision

// Windows screen capture using per-frame GDI allocations. osGrab creates a
// temporary DIB, BitBlt's the requested rect into it, converts BGRA->RGBA into
// a heap-owned *image.RGBA, and frees the GDI resources.

import (
	"fmt"
	"image"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	smCxScreen   = 0
	smCyScreen   = 1
	srccopy      = 0x00CC0020
	dibRGBColors = 0
	biRgb        = 0
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	gdi32                  = windows.NewLazySystemDLL("gdi32.dll")
	procGetDC              = user32.NewProc("GetDC")
	procReleaseDC          = user32.NewProc("ReleaseDC")
	procGetSystemMetrics   = user32.NewProc("GetSystemMetrics")
	procCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC           = gdi32.NewProc("DeleteDC")
	procSelectObject       = gdi32.NewProc("SelectObject")
	procBitBlt             = gdi32.NewProc("BitBlt")
	procCreateDIBSection   = gdi32.NewProc("CreateDIBSection")
	procDeleteObject       = gdi32.NewProc("DeleteObject")
)

type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	_      [4]byte // one RGBQUAD placeholder (unused for 32-bit)
}

// osScreenRect reports the primary monitor bounds.
func osScreenRect() (image.Rectangle, error) {
	w, _, _ := procGetSystemMetrics.Call(uintptr(smCxScreen))
	h, _, _ := procGetSystemMetrics.Call(uintptr(smCyScreen))
	if int(w) <= 0 || int(h) <= 0 {
		return image.Rectangle{}, fmt.Errorf("capture: invalid screen size w=%d h=%d", w, h)
	}
	return image.Rect(0, 0, int(w), int(h)), nil
}

// osGrab BitBlt's rect into a top-down DIB section and returns a newly
// allocated *image.RGBA with the captured pixels.
func osGrab(r image.Rectangle) (*image.RGBA, error) {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("capture: invalid rect %v", r)
	}

	screenDC, _, _ := procGetDC.Call(0)
	if screenDC == 0 {
		return nil, fmt.Errorf("capture: GetDC failed winerr=%d", windows.GetLastError())
	}
	defer procReleaseDC.Call(0, screenDC)

	memDC, _, _ := procCreateCompatibleDC.Call(screenDC)
	if memDC == 0 {
		return nil, fmt.Errorf("capture: CreateCompatibleDC failed winerr=%d", windows.GetLastError())
	}
	defer procDeleteDC.Call(memDC)

	var bi bitmapInfo
	bi.Header.BiSize = uint32(unsafe.Sizeof(bi.Header))
	bi.Header.BiWidth = int32(w)
	bi.Header.BiHeight = -int32(h) // top-down
	bi.Header.BiPlanes = 1
	bi.Header.BiBitCount = 32
	bi.Header.BiCompression = biRgb
	bi.Header.BiSizeImage = uint32(w * h * 4)

	var bitsPtr unsafe.Pointer
	bmp, _, _ := procCreateDIBSection.Call(memDC, uintptr(unsafe.Pointer(&bi)), dibRGBColors, uintptr(unsafe.Pointer(&bitsPtr)), 0, 0)
	if bmp == 0 {
		return nil, fmt.Errorf("capture: CreateDIBSection failed winerr=%d", windows.GetLastError())
	}
	defer procDeleteObject.Call(bmp)

	prev, _, _ := procSelectObject.Call(memDC, bmp)
	if prev == 0 || prev == ^uintptr(0) { // failure or GDI_ERROR
		return nil, fmt.Errorf("capture: SelectObject failed winerr=%d", windows.GetLastError())
	}

	ok, _, _ := procBitBlt.Call(memDC, 0, 0, uintptr(w), uintptr(h), screenDC, uintptr(r.Min.X), uintptr(r.Min.Y), srccopy)
	if ok == 0 {
		return nil, fmt.Errorf("capture: BitBlt failed rect=%v winerr=%d", r, windows.GetLastError())
	}

	// Copy & convert BGRA in the DIB to RGBA on the Go heap.
	pixLen := w * h * 4
	src := unsafe.Slice((*byte)(bitsPtr), pixLen)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < pixLen; i += 4 {
		b := src[i+0]
		g := src[i+1]
		r8 := src[i+2]
		// src[i+3] alpha is undefined; force opaque
		dst.Pix[i+0] = r8
		dst.Pix[i+1] = g
		dst.Pix[i+2] = b
		dst.Pix[i+3] = 0xFF
	}
	return dst, nil
}
