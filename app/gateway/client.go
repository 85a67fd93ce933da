// Package gateway submits clips for human review through an external
// approval service and relays its opaque responses back to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrGateway marks failures of the approval service. A clip that fails
// to submit stays pending, so callers log and move on.
var ErrGateway = errors.New("approval gateway unavailable")

// Submission is the review request sent for one clip.
type Submission struct {
	ClipID    string   `json:"clip_id"`
	VideoPath string   `json:"video_path"`
	Caption   string   `json:"caption"`
	Metadata  Metadata `json:"metadata"`
}

type Metadata struct {
	CreatorName string `json:"creator_name"`
	VideoTitle  string `json:"video_title"`
	PaymentLink string `json:"payment_link,omitempty"`
}

// Client posts review requests to the approval gateway.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
}

func NewClient(url, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		url:        url,
		token:      token,
	}
}

// Submit sends one clip for review and returns the gateway's response
// body verbatim. The response schema belongs to the gateway, it is
// stored but never interpreted here.
func (c *Client) Submit(ctx context.Context, sub Submission) (json.RawMessage, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrGateway, resp.StatusCode)
	}

	return json.RawMessage(data), nil
}
