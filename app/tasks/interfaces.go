package tasks

import (
	"context"

	"github.com/cliprelay/cliprelay/app/channel"
	"github.com/cliprelay/cliprelay/app/clip"
	"github.com/cliprelay/cliprelay/app/store"
)

// TaskSchedulerInterface defines the interface for background task
// scheduling. The main application uses it to run the periodic
// creator checks and posting passes.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// VideoProcessor turns one source video into recorded clip bundles.
type VideoProcessor interface {
	ProcessVideo(ctx context.Context, video channel.Video, creator store.Creator) ([]clip.Bundle, error)
}

// Publisher posts a finished clip and returns the platform post ID.
type Publisher interface {
	Post(ctx context.Context, videoPath, caption string) (string, error)
}
