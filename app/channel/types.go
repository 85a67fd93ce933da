package channel

import (
	"context"
	"time"
)

// Video is one entry from a creator's channel listing, newest first.
type Video struct {
	ID          string    `json:"video_id"`
	URL         string    `json:"video_url"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
}

// Lister fetches the latest video identifiers for a channel URL.
type Lister interface {
	Latest(ctx context.Context, channelURL string, limit int) ([]Video, error)
}
