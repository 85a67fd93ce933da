// Package clipapi integrates an external clipping service that analyzes
// a source video and proposes segments worth clipping. When the service
// is not configured the pipeline falls back to local motion scoring.
package clipapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cliprelay/cliprelay/app/clip"
)

// ErrClipAPI marks failures of the clipping service. Callers fall back
// to local segment detection when they see it.
var ErrClipAPI = errors.New("clipping service unavailable")

// Client uploads videos to the clipping service for segment analysis.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

func NewClient(url, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		url:        url,
		apiKey:     apiKey,
	}
}

// Enabled reports whether a clipping service is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Analyze uploads the video and returns the segments the service
// proposes, constrained to the given duration bounds.
func (c *Client) Analyze(ctx context.Context, videoPath string, targetDuration, minDuration, maxDuration float64) ([]clip.Segment, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClipAPI, err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("video", filepath.Base(videoPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		fields := map[string]string{
			"target_duration": strconv.FormatFloat(targetDuration, 'f', -1, 64),
			"min_duration":    strconv.FormatFloat(minDuration, 'f', -1, 64),
			"max_duration":    strconv.FormatFloat(maxDuration, 'f', -1, 64),
		}
		for name, value := range fields {
			if err := writer.WriteField(name, value); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, pr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClipAPI, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClipAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrClipAPI, resp.StatusCode)
	}

	var result struct {
		Segments []struct {
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Score      float64 `json:"score"`
			Confidence float64 `json:"confidence"`
		} `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrClipAPI, err)
	}

	segments := make([]clip.Segment, 0, len(result.Segments))
	for _, s := range result.Segments {
		if s.End <= s.Start {
			continue
		}
		confidence := s.Confidence
		if confidence == 0 {
			confidence = s.Score
		}
		segments = append(segments, clip.Segment{
			Start:      s.Start,
			End:        s.End,
			Score:      s.Score,
			Confidence: confidence,
		})
	}

	return segments, nil
}
