package channel

import (
	"context"
	"log/slog"
)

var _ Lister = (*Service)(nil)

// Service prefers the RSS feed and falls back to the yt-dlp flat playlist
// when the feed cannot serve the channel URL.
type Service struct {
	primary  Lister
	fallback Lister
}

func NewService(primary, fallback Lister) *Service {
	return &Service{primary: primary, fallback: fallback}
}

func (s *Service) Latest(ctx context.Context, channelURL string, limit int) ([]Video, error) {
	videos, err := s.primary.Latest(ctx, channelURL, limit)
	if err == nil {
		return videos, nil
	}

	if s.fallback == nil {
		return nil, err
	}

	slog.Debug("Channel feed unavailable, using flat-playlist fallback", "channel", channelURL, "error", err)
	return s.fallback.Latest(ctx, channelURL, limit)
}
