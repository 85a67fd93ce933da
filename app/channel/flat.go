package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FlatLister lists channel uploads by shelling out to yt-dlp in
// flat-playlist mode. It handles vanity channel URLs the RSS endpoint
// cannot.
type FlatLister struct {
	binary string
}

func NewFlatLister() *FlatLister {
	return &FlatLister{binary: "yt-dlp"}
}

type flatPlaylist struct {
	Entries []flatEntry `json:"entries"`
}

type flatEntry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	UploadDate string `json:"upload_date"`
}

func (l *FlatLister) Latest(ctx context.Context, channelURL string, limit int) ([]Video, error) {
	if strings.TrimSpace(channelURL) == "" {
		return nil, fmt.Errorf("channel URL is required")
	}
	if limit <= 0 {
		limit = 5
	}

	listURL := channelURL
	if strings.Contains(listURL, "/channel/") || strings.Contains(listURL, "/c/") ||
		strings.Contains(listURL, "/user/") || strings.Contains(listURL, "/@") {
		listURL = strings.TrimSuffix(listURL, "/") + "/videos"
	}

	args := []string{
		"--flat-playlist",
		"--playlist-end", strconv.Itoa(limit),
		"-J",
		listURL,
	}

	cmd := exec.CommandContext(ctx, l.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("yt-dlp returned empty output")
	}

	return parseFlatPlaylist(stdout.Bytes(), limit)
}

func parseFlatPlaylist(data []byte, limit int) ([]Video, error) {
	var playlist flatPlaylist
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp playlist output: %w", err)
	}

	videos := make([]Video, 0, len(playlist.Entries))
	for _, e := range playlist.Entries {
		if limit > 0 && len(videos) == limit {
			break
		}
		if e.ID == "" {
			continue
		}

		v := Video{
			ID:    e.ID,
			URL:   e.URL,
			Title: e.Title,
		}
		if v.URL == "" {
			v.URL = "https://www.youtube.com/watch?v=" + e.ID
		}
		if ts, err := time.Parse("20060102", e.UploadDate); err == nil {
			v.PublishedAt = ts
		}
		videos = append(videos, v)
	}

	return videos, nil
}
