//go:build !windows

package vision

import (
	"image"

	"github.com/vova616/screenshot"
)

// osScreenRect reports the primary monitor bounds.
func osScreenRect() (image.Rectangle, error) {
	return screenshot.ScreenRect()
}

// osGrab captures the given absolute screen rectangle.
func osGrab(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}
