package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"
)

const (
	healthPath    = "/healthz"
	recognizePath = "/recognize"
)

// RemoteBackend is the advanced backend: a local recognizer sidecar serving a
// neural OCR model, optionally GPU-accelerated. Higher accuracy on stylized
// fonts, higher startup cost while the sidecar loads its model.
type RemoteBackend struct {
	baseURL string
	gpu     bool
	client  *http.Client
	logger  *slog.Logger
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

type recognizeRequest struct {
	ImagePNG string `json:"image_png"` // base64
	GPU      bool   `json:"gpu"`
}

type recognizeResponse struct {
	Results []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"results"`
}

// NewRemoteBackend points at the recognizer sidecar base URL.
func NewRemoteBackend(baseURL string, gpu bool, logger *slog.Logger) *RemoteBackend {
	return &RemoteBackend{
		baseURL: baseURL,
		gpu:     gpu,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (b *RemoteBackend) Name() string { return "recognizer-sidecar" }

// Available reports whether the sidecar is reachable and its model loaded.
// A reachable but unhealthy sidecar counts as unavailable.
func (b *RemoteBackend) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := b.client.Do(req)
	if err != nil {
		if b.logger != nil {
			b.logger.Debug("recognizer sidecar unreachable", "url", b.baseURL, "error", err)
		}
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false
	}
	return health.Status == "ok" && health.ModelLoaded
}

// ReadText posts the image to the sidecar and returns its fragments.
func (b *RemoteBackend) ReadText(ctx context.Context, img image.Image) ([]RecognizedText, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("recognizer: encode image: %w", err)
	}
	payload, err := json.Marshal(recognizeRequest{
		ImagePNG: base64.StdEncoding.EncodeToString(data),
		GPU:      b.gpu,
	})
	if err != nil {
		return nil, fmt.Errorf("recognizer: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+recognizePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("recognizer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognizer: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognizer: unexpected status %d", resp.StatusCode)
	}

	var decoded recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("recognizer: decode response: %w", err)
	}
	out := make([]RecognizedText, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		out = append(out, RecognizedText{Text: r.Text, Confidence: r.Confidence})
	}
	return out, nil
}
