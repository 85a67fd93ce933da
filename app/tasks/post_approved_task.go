package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cliprelay/cliprelay/app/clip"
	"github.com/cliprelay/cliprelay/app/store"
)

// PostApprovedTask publishes approved, not yet posted clips and marks
// them posted in their manifests. Publish failures leave the clip
// approved so the next pass retries it.
type PostApprovedTask struct {
	Task
	manifests *store.ManifestStore
	publisher Publisher
	maxPosts  int
}

func NewPostApprovedTask(manifests *store.ManifestStore, publisher Publisher, maxPosts int) *PostApprovedTask {
	return &PostApprovedTask{
		Task:      NewTask(TaskTypePostApproved, ""),
		manifests: manifests,
		publisher: publisher,
		maxPosts:  maxPosts,
	}
}

func (t *PostApprovedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dates, err := t.manifests.Dates()
	if err != nil {
		return fmt.Errorf("failed to list manifests: %w", err)
	}

	postedCount := 0
	failedCount := 0

	// Newest day first, so fresh clips go out before the backlog.
	for i := len(dates) - 1; i >= 0 && postedCount < t.maxPosts; i-- {
		manifest, err := t.manifests.Read(dates[i])
		if err != nil {
			return fmt.Errorf("failed to read manifest %s: %w", dates[i], err)
		}

		for _, bundle := range manifest.Clips {
			if postedCount >= t.maxPosts {
				break
			}
			if bundle.ApprovalStatus != clip.StatusApproved || bundle.Posted {
				continue
			}

			caption := ""
			if len(bundle.Captions) > 0 {
				caption = bundle.Captions[0].Instagram()
			}

			postID, err := t.publisher.Post(ctx, bundle.VideoPath, caption)
			if err != nil {
				slog.Warn("Failed to post clip", "clip_id", bundle.ClipID, "error", err)
				failedCount++
				continue
			}

			now := time.Now().UTC()
			err = t.manifests.UpdateBundle(dates[i], bundle.ClipID, func(b *clip.Bundle) error {
				b.Posted = true
				b.PostedAt = &now
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to mark clip %s posted: %w", bundle.ClipID, err)
			}

			slog.Info("Posted clip", "clip_id", bundle.ClipID, "post_id", postID)
			postedCount++
		}
	}

	slog.Info("Task completed",
		"type", "PostApproved",
		"duration", t.GetDuration(),
		"posted", postedCount,
		"failed", failedCount)

	return nil
}
