package api

import (
	"encoding/json"

	"github.com/cliprelay/cliprelay/app/channel"
	"github.com/cliprelay/cliprelay/app/store"
	"github.com/cliprelay/cliprelay/app/tasks"
)

// DecisionRecorder applies reviewer decisions to stored clips.
type DecisionRecorder interface {
	RecordDecision(clipID, decision string, response json.RawMessage) error
}

type Handler struct {
	registry       *store.CreatorRegistry
	ledger         *store.ProcessedLedger
	manifests      *store.ManifestStore
	recorder       DecisionRecorder
	scheduler      tasks.TaskSchedulerInterface
	lister         channel.Lister
	processor      tasks.VideoProcessor
	videosPerCheck int
}

type decisionRequest struct {
	Decision string          `json:"decision" binding:"required"`
	Response json.RawMessage `json:"response"`
}
