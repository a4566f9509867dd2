package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fieldops-service/internal/config"
	"fieldops-service/internal/location"
)

type locationPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FieldClient talks to the fieldops API on behalf of a technician device.
type FieldClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

func NewFieldClient(cfg *config.AgentConfig) *FieldClient {
	return &FieldClient{
		baseURL:    cfg.APIURL,
		token:      cfg.Token,
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PushLocation reports a GPS fix for an open clock entry.
func (c *FieldClient) PushLocation(ctx context.Context, clockEntryID string, fix location.Fix) error {
	if c.baseURL == "" {
		return fmt.Errorf("fieldops API URL is not configured")
	}

	u, err := url.Parse(c.baseURL + "/technician/clock/" + url.PathEscape(clockEntryID) + "/location")
	if err != nil {
		return fmt.Errorf("invalid fieldops API URL: %w", err)
	}

	body, err := json.Marshal(locationPayload{Lat: fix.Lat, Lng: fix.Lng})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPut, u.String(), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("fieldops API returned status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}

// do retries network failures with a linear backoff. HTTP error statuses are
// returned to the caller untouched.
func (c *FieldClient) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.backoff):
		}
	}
	return nil, fmt.Errorf("failed to execute request after %d attempts: %w", c.maxRetries, lastErr)
}
