package visits

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable means the counter has no total to report.
var ErrUnavailable = errors.New("visit counter unavailable")

// HTTPCounter talks to a web-hosted counter: a GET on HitURL records a
// visit, and TotalURL serves a CSV export with a header line whose first
// data row holds the total in column B (cell B2).
type HTTPCounter struct {
	HitURL   string
	TotalURL string
	Client   *http.Client
}

// NewHTTPCounter returns a counter with a 5 second client timeout.
func NewHTTPCounter(hitURL, totalURL string) *HTTPCounter {
	return &HTTPCounter{
		HitURL:   hitURL,
		TotalURL: totalURL,
		Client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *HTTPCounter) Hit(ctx context.Context, sessionID string) error {
	if c.HitURL == "" {
		return nil
	}
	resp, err := c.get(ctx, c.HitURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *HTTPCounter) Total(ctx context.Context) (int64, error) {
	if c.TotalURL == "" {
		return 0, ErrUnavailable
	}
	resp, err := c.get(ctx, c.TotalURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	cr := csv.NewReader(resp.Body)
	cr.FieldsPerRecord = -1
	if _, err := cr.Read(); err != nil {
		return 0, fmt.Errorf("read total csv header: %w", err)
	}
	row, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read total csv: %w", err)
	}
	if len(row) < 2 {
		return 0, fmt.Errorf("total csv: first data row has %d cells, want 2", len(row))
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("total csv: %w", err)
	}
	return int64(f), nil
}

func (c *HTTPCounter) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("counter %s: status %d", url, resp.StatusCode)
	}
	return resp, nil
}
