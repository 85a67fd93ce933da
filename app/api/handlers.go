package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cliprelay/cliprelay/app/channel"
	"github.com/cliprelay/cliprelay/app/clip"
	"github.com/cliprelay/cliprelay/app/store"
	"github.com/cliprelay/cliprelay/app/tasks"
)

func NewHandler(registry *store.CreatorRegistry, ledger *store.ProcessedLedger,
	manifests *store.ManifestStore, recorder DecisionRecorder,
	scheduler tasks.TaskSchedulerInterface, lister channel.Lister,
	processor tasks.VideoProcessor, videosPerCheck int) *Handler {
	return &Handler{
		registry:       registry,
		ledger:         ledger,
		manifests:      manifests,
		recorder:       recorder,
		scheduler:      scheduler,
		lister:         lister,
		processor:      processor,
		videosPerCheck: videosPerCheck,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":        time.Now().In(time.Local).Format(time.RFC3339),
		"creators":         h.registry.Count(),
		"processed_videos": h.ledger.Count(),
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListCreators(c *gin.Context) {
	creators := make([]map[string]interface{}, 0)

	for creator := range h.registry.All() {
		info := map[string]interface{}{
			"name":               creator.Name,
			"channel_url":        creator.ChannelURL,
			"destination_handle": creator.DestinationHandle,
			"active":             creator.Active,
			"added_at":           creator.AddedAt,
		}
		if creator.LastCheckedAt != nil {
			info["last_checked_at"] = creator.LastCheckedAt
		}
		if creator.ClipsPerVideo > 0 {
			info["clips_per_video"] = creator.ClipsPerVideo
		}
		creators = append(creators, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"creators": creators,
		"count":    len(creators),
	})
}

func (h *Handler) APICheckCreator(c *gin.Context) {
	name := c.Param("name")

	creator, err := h.registry.Get(name)
	if err != nil {
		slog.Error("Creator not found", "creator", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Creator not found"})
		return
	}

	task := tasks.NewCheckCreatorTask(creator, h.lister, h.ledger, h.registry, h.processor, h.videosPerCheck)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue check", "creator", name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to schedule check"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Check scheduled",
		"creator": name,
		"task_id": task.GetID(),
	})
}

func (h *Handler) APIRecordDecision(c *gin.Context) {
	clipID := c.Param("clip_id")

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.recorder.RecordDecision(clipID, req.Decision, req.Response); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Clip not found"})
		case errors.Is(err, clip.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "Clip already resolved"})
		default:
			slog.Error("Failed to record decision", "clip_id", clipID, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clip_id":  clipID,
		"decision": req.Decision,
	})
}

func (h *Handler) APIGetManifest(c *gin.Context) {
	date := c.Param("date")

	manifest, err := h.manifests.Read(date)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No manifest for date"})
			return
		}
		slog.Error("Failed to read manifest", "date", date, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, manifest)
}
