// Package analysis calls the match analysis service with an extracted roster
// and returns advice for the overlay.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/liam5322/smite-assault-advisor/domain/state"
	"github.com/liam5322/smite-assault-advisor/fault"
)

// Result is the advice payload returned by the analysis service.
type Result struct {
	WinProbability float64  `json:"win_probability"`
	ItemPriorities []string `json:"item_priorities"`
	KeyAdvice      string   `json:"key_advice"`
}

// Client posts rosters to the analysis endpoint. One request per trigger pass,
// no retries; the orchestrator's backoff governs retry pacing.
type Client struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewClient targets the analysis endpoint with a per-request timeout.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Analyze posts the roster and decodes the advice. All failures come back as
// a fault.BoundaryError with code AnalysisFailed.
func (c *Client) Analyze(ctx context.Context, ext state.Extraction) (Result, error) {
	payload, err := json.Marshal(ext)
	if err != nil {
		return Result{}, fault.New(fault.AnalysisFailed, "marshal roster", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fault.New(fault.AnalysisFailed, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fault.New(fault.AnalysisFailed, "analysis request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fault.New(fault.AnalysisFailed,
			fmt.Sprintf("analysis service returned status %d", resp.StatusCode), nil)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fault.New(fault.AnalysisFailed, "decode analysis response", err)
	}
	if c.logger != nil {
		c.logger.Debug("analysis completed", "elapsed", time.Since(start),
			"win_probability", result.WinProbability)
	}
	return result, nil
}
