package vision

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
)

// SaveDebugFrame writes the frame as a PNG under dir for offline inspection
// of what the recognition backends actually saw. Creates dir when missing.
func SaveDebugFrame(frame Frame, dir string) (string, error) {
	if frame.Img == nil {
		return "", fmt.Errorf("vision: cannot dump empty frame %q", frame.Region)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("vision: create dump dir: %w", err)
	}
	name := fmt.Sprintf("%s-%d.png", frame.Region, frame.CapturedAt.UnixMilli())
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("vision: create dump file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, frame.Img); err != nil {
		return "", fmt.Errorf("vision: encode dump: %w", err)
	}
	return path, nil
}
