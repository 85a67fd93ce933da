package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

var channelIDPattern = regexp.MustCompile(`(?:/channel/)?(UC[0-9A-Za-z_-]{22})`)

// RSSLister reads a channel's upload feed via the platform's RSS endpoint.
// It only handles URLs carrying an explicit channel identifier; vanity URLs
// go through the flat-playlist fallback instead.
type RSSLister struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
}

func NewRSSLister(httpClient *http.Client, userAgent string) *RSSLister {
	return &RSSLister{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
	}
}

func (l *RSSLister) Latest(ctx context.Context, channelURL string, limit int) ([]Video, error) {
	feedURL, err := FeedURLFor(channelURL)
	if err != nil {
		return nil, err
	}

	data, err := l.fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel feed: %w", err)
	}

	return l.parseVideos(data, limit)
}

func (l *RSSLister) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func (l *RSSLister) parseVideos(data []byte, limit int) ([]Video, error) {
	feed, err := l.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel feed: %w", err)
	}

	videos := make([]Video, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(videos) == limit {
			break
		}

		id := videoIDFromItem(item)
		if id == "" {
			continue
		}

		v := Video{
			ID:    id,
			URL:   item.Link,
			Title: item.Title,
		}
		if v.URL == "" {
			v.URL = "https://www.youtube.com/watch?v=" + id
		}
		if item.PublishedParsed != nil {
			v.PublishedAt = *item.PublishedParsed
		}
		videos = append(videos, v)
	}

	return videos, nil
}

// videoIDFromItem extracts the video identifier from a feed entry. Upload
// feeds use GUIDs of the form "yt:video:<id>"; the watch link query is the
// fallback.
func videoIDFromItem(item *gofeed.Item) string {
	if strings.HasPrefix(item.GUID, "yt:video:") {
		return strings.TrimPrefix(item.GUID, "yt:video:")
	}
	if item.Link != "" {
		if u, err := url.Parse(item.Link); err == nil {
			if v := u.Query().Get("v"); v != "" {
				return v
			}
		}
	}
	return ""
}

// FeedURLFor maps a channel URL (or bare channel identifier) to the
// uploads RSS feed. Vanity URLs without a channel identifier are not
// resolvable here.
func FeedURLFor(channelURL string) (string, error) {
	m := channelIDPattern.FindStringSubmatch(channelURL)
	if m == nil {
		return "", fmt.Errorf("no channel identifier in %q", channelURL)
	}
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + m[1], nil
}
