// Package approval routes clips through human review: it submits
// freshly produced clips to the gateway and applies the decisions that
// come back to the day manifests.
package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cliprelay/cliprelay/app/clip"
	"github.com/cliprelay/cliprelay/app/gateway"
	"github.com/cliprelay/cliprelay/app/store"
)

type Submitter interface {
	Submit(ctx context.Context, sub gateway.Submission) (json.RawMessage, error)
}

type Tracker struct {
	gateway   Submitter
	manifests *store.ManifestStore
}

func NewTracker(gw Submitter, manifests *store.ManifestStore) *Tracker {
	return &Tracker{gateway: gw, manifests: manifests}
}

// Submit sends a pending bundle for review. The bundle keeps its
// pending status either way: a gateway failure is reported but must not
// lose the clip, and an acceptance only means the reviewer has it.
func (t *Tracker) Submit(ctx context.Context, bundle *clip.Bundle, creator store.Creator) error {
	caption := ""
	if len(bundle.Captions) > 0 {
		caption = bundle.Captions[0].Instagram()
	}

	response, err := t.gateway.Submit(ctx, gateway.Submission{
		ClipID:    bundle.ClipID,
		VideoPath: bundle.VideoPath,
		Caption:   caption,
		Metadata: gateway.Metadata{
			CreatorName: creator.Name,
			VideoTitle:  bundle.Metadata.SourceTitle,
			PaymentLink: creator.PaymentLink,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to submit clip %s for review: %w", bundle.ClipID, err)
	}

	bundle.ApprovalResponse = response

	slog.Debug("Submitted clip for review", "clip_id", bundle.ClipID, "creator", creator.Name)

	return nil
}

// RecordDecision applies a reviewer decision to the stored bundle.
// Decisions on clips that already reached a terminal status return
// clip.ErrInvalidTransition, unknown clips return store.ErrNotFound.
func (t *Tracker) RecordDecision(clipID, decision string, response json.RawMessage) error {
	if !clip.IsKnownStatus(decision) {
		return fmt.Errorf("unknown approval decision %q", decision)
	}

	date, _, err := t.manifests.FindBundle(clipID)
	if err != nil {
		return fmt.Errorf("failed to locate clip %s: %w", clipID, err)
	}

	err = t.manifests.UpdateBundle(date, clipID, func(b *clip.Bundle) error {
		if err := clip.TransitionStatus(b, decision); err != nil {
			return err
		}
		if len(response) > 0 {
			b.ApprovalResponse = response
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record decision for clip %s: %w", clipID, err)
	}

	slog.Info("Recorded approval decision", "clip_id", clipID, "decision", decision)

	return nil
}
