package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cliprelay/cliprelay/app/channel"
	"github.com/cliprelay/cliprelay/app/store"
)

// CheckCreatorTask polls one creator's channel for new uploads and runs
// every unseen video through the clip pipeline.
type CheckCreatorTask struct {
	Task
	Creator        store.Creator
	lister         channel.Lister
	ledger         *store.ProcessedLedger
	registry       *store.CreatorRegistry
	processor      VideoProcessor
	videosPerCheck int
}

func NewCheckCreatorTask(creator store.Creator, lister channel.Lister, ledger *store.ProcessedLedger,
	registry *store.CreatorRegistry, processor VideoProcessor, videosPerCheck int) *CheckCreatorTask {
	return &CheckCreatorTask{
		Task:           NewTask(TaskTypeCheckCreator, creator.Name),
		Creator:        creator,
		lister:         lister,
		ledger:         ledger,
		registry:       registry,
		processor:      processor,
		videosPerCheck: videosPerCheck,
	}
}

func (t *CheckCreatorTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	videos, err := t.lister.Latest(ctx, t.Creator.ChannelURL, t.videosPerCheck)
	if err != nil {
		return fmt.Errorf("failed to list videos for %s: %w", t.Creator.Name, err)
	}

	skippedCount := 0
	processedCount := 0
	failedCount := 0
	clipCount := 0

	for _, video := range videos {
		key := store.VideoKey("youtube", video.ID)

		if t.ledger.Has(key) {
			skippedCount++
			continue
		}

		bundles, err := t.processor.ProcessVideo(ctx, video, t.Creator)
		if err != nil {
			slog.Warn("Failed to process video",
				"creator", t.Creator.Name, "video_id", video.ID, "error", err)
			failedCount++
			continue
		}

		if err := t.ledger.MarkProcessed(key, t.Creator.Name, len(bundles)); err != nil {
			if errors.Is(err, store.ErrAlreadyProcessed) {
				skippedCount++
				continue
			}
			return fmt.Errorf("failed to record processed video %s: %w", key, err)
		}

		processedCount++
		clipCount += len(bundles)
	}

	if err := t.registry.Touch(t.Creator.Name, time.Now().UTC()); err != nil {
		slog.Warn("Failed to update last checked time", "creator", t.Creator.Name, "error", err)
	}

	slog.Info("Task completed",
		"type", "CheckCreator",
		"creator", t.Creator.Name,
		"duration", t.GetDuration(),
		"total", len(videos),
		"skipped", skippedCount,
		"processed", processedCount,
		"failed", failedCount,
		"clips", clipCount)

	return nil
}
