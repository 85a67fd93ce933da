package clip

import (
	"encoding/json"
	"fmt"
	"time"
)

// Segment is a time interval of a source video selected to become a clip.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// WindowScore is one motion/action score for a fixed-size window of the
// source video, as produced by a scoring collaborator.
type WindowScore struct {
	Start float64 `json:"start"`
	Score float64 `json:"score"`
}

type Caption struct {
	Text     string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

// Instagram returns the caption formatted for posting, hashtags on a
// separate block below the text.
func (c Caption) Instagram() string {
	if len(c.Hashtags) == 0 {
		return c.Text
	}
	tags := ""
	for i, h := range c.Hashtags {
		if i > 0 {
			tags += " "
		}
		tags += h
	}
	return c.Text + "\n\n" + tags
}

type Metadata struct {
	SourceURL   string    `json:"source_url"`
	SourceTitle string    `json:"source_title"`
	CreatorName string    `json:"creator_name"`
	PaymentLink string    `json:"payment_link,omitempty"`
	ClipIndex   int       `json:"clip_index"`
	StartTime   float64   `json:"start_time"`
	EndTime     float64   `json:"end_time"`
	Duration    float64   `json:"duration"`
	MotionScore float64   `json:"motion_score"`
	Confidence  float64   `json:"confidence"`
	AspectRatio string    `json:"aspect_ratio"`
	Resolution  string    `json:"resolution"`
	CreatedAt   time.Time `json:"created_at"`
}

// Bundle is one clip plus its captions, metadata, and approval state.
type Bundle struct {
	ClipID           string          `json:"clip_id"`
	VideoPath        string          `json:"video_path"`
	Captions         []Caption       `json:"captions"`
	Metadata         Metadata        `json:"metadata"`
	ApprovalStatus   string          `json:"approval_status"`
	ApprovalResponse json.RawMessage `json:"approval_response,omitempty"`
	Posted           bool            `json:"posted,omitempty"`
	PostedAt         *time.Time      `json:"posted_at,omitempty"`
}

// BundleID derives a clip identifier from the source video, the clip
// ordinal and its selection score. Scoping by video keeps IDs unique
// across a whole day's manifest: ordinal and score alone repeat whenever
// two videos fall back to the same default-scored segment.
func BundleID(videoID string, index int, score float64) string {
	return fmt.Sprintf("%s_clip_%02d_%.2f", videoID, index, score)
}
