// Package pipeline turns one source video into a set of captioned,
// vertically framed clip bundles recorded in the day manifest.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cliprelay/cliprelay/app/channel"
	"github.com/cliprelay/cliprelay/app/clip"
	"github.com/cliprelay/cliprelay/app/media"
	"github.com/cliprelay/cliprelay/app/store"
)

type Downloader interface {
	Download(ctx context.Context, videoURL string) (*media.DownloadResult, error)
}

type Transcoder interface {
	CutVertical(ctx context.Context, src, dst string, start, end float64) error
}

type Scorer interface {
	Score(ctx context.Context, path string) ([]clip.WindowScore, error)
}

// SegmentAnalyzer is the external clipping service. Enabled reports
// whether one is configured at all.
type SegmentAnalyzer interface {
	Enabled() bool
	Analyze(ctx context.Context, videoPath string, targetDuration, minDuration, maxDuration float64) ([]clip.Segment, error)
}

type CaptionSource interface {
	Generate(ctx context.Context, description, contextInfo string) ([]clip.Caption, error)
	Fallback(description string) []clip.Caption
}

// ReviewSubmitter hands finished bundles to the approval flow. A nil
// submitter means approval is disabled and bundles skip review.
type ReviewSubmitter interface {
	Submit(ctx context.Context, bundle *clip.Bundle, creator store.Creator) error
}

// Options carries the clip selection and output settings the bundler
// applies to every video.
type Options struct {
	ClipsDir        string
	ClipsPerVideo   int
	TargetClipLen   float64
	MinClipLen      float64
	MaxClipLen      float64
	MinStartSpacing float64
	MotionThreshold float64
	OutputWidth     int
	OutputHeight    int
	KeepSource      bool
}

// Bundler runs the per-video flow: download, segment selection,
// transcode, captioning, review submission and manifest append.
type Bundler struct {
	downloader Downloader
	transcoder Transcoder
	scorer     Scorer
	analyzer   SegmentAnalyzer
	captions   CaptionSource
	review     ReviewSubmitter
	manifests  *store.ManifestStore
	opts       Options
}

func NewBundler(
	downloader Downloader,
	transcoder Transcoder,
	scorer Scorer,
	analyzer SegmentAnalyzer,
	captions CaptionSource,
	review ReviewSubmitter,
	manifests *store.ManifestStore,
	opts Options,
) *Bundler {
	return &Bundler{
		downloader: downloader,
		transcoder: transcoder,
		scorer:     scorer,
		analyzer:   analyzer,
		captions:   captions,
		review:     review,
		manifests:  manifests,
		opts:       opts,
	}
}

// ProcessVideo produces up to ClipsPerVideo bundles from one source
// video. Individual clips that fail to transcode are skipped, caption
// failures fall back to canned captions, and review submission
// failures leave the bundle pending. A manifest write failure is fatal
// because it would lose finished work.
func (b *Bundler) ProcessVideo(ctx context.Context, video channel.Video, creator store.Creator) ([]clip.Bundle, error) {
	source, err := b.downloader.Download(ctx, video.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source video %s: %w", video.ID, err)
	}
	if !b.opts.KeepSource {
		defer os.Remove(source.Path)
	}

	slog.Info("Processing video",
		"video_id", source.VideoID, "title", source.Title,
		"duration", source.Duration, "creator", creator.Name)

	maxClips := b.opts.ClipsPerVideo
	if creator.ClipsPerVideo > 0 {
		maxClips = creator.ClipsPerVideo
	}

	segments := b.selectSegments(ctx, source, maxClips)
	if len(segments) > maxClips {
		segments = segments[:maxClips]
	}

	date := store.DateFor(time.Now())
	clipDir := filepath.Join(b.opts.ClipsDir, date, source.VideoID)
	if err := os.MkdirAll(clipDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create clip directory: %w", err)
	}

	var bundles []clip.Bundle
	for i, segment := range segments {
		clipID := clip.BundleID(source.VideoID, i+1, segment.Score)
		dst := filepath.Join(clipDir, clipID+".mp4")

		if err := b.transcoder.CutVertical(ctx, source.Path, dst, segment.Start, segment.End); err != nil {
			slog.Warn("Skipping clip, transcode failed",
				"clip_id", clipID, "video_id", source.VideoID, "error", err)
			continue
		}

		bundle := clip.Bundle{
			ClipID:    clipID,
			VideoPath: dst,
			Captions:  b.caption(ctx, source, segment),
			Metadata: clip.Metadata{
				SourceURL:   video.URL,
				SourceTitle: source.Title,
				CreatorName: creator.Name,
				PaymentLink: creator.PaymentLink,
				ClipIndex:   i + 1,
				StartTime:   segment.Start,
				EndTime:     segment.End,
				Duration:    segment.Duration(),
				MotionScore: segment.Score,
				Confidence:  segment.Confidence,
				AspectRatio: "9:16",
				Resolution:  fmt.Sprintf("%dx%d", b.opts.OutputWidth, b.opts.OutputHeight),
				CreatedAt:   time.Now().UTC(),
			},
			ApprovalStatus: clip.StatusNotRequired,
		}

		if b.review != nil {
			bundle.ApprovalStatus = clip.StatusPending
			if err := b.review.Submit(ctx, &bundle, creator); err != nil {
				slog.Warn("Review submission failed, clip stays pending",
					"clip_id", clipID, "error", err)
			}
		}

		if err := b.manifests.Append(date, bundle); err != nil {
			return bundles, fmt.Errorf("failed to record clip %s in manifest: %w", clipID, err)
		}

		bundles = append(bundles, bundle)
	}

	slog.Info("Produced clips", "video_id", source.VideoID, "count", len(bundles))

	return bundles, nil
}

// selectSegments prefers the external clipping service and falls back
// to local motion scoring when it is absent, failing, or empty-handed.
func (b *Bundler) selectSegments(ctx context.Context, source *media.DownloadResult, maxClips int) []clip.Segment {
	if b.analyzer != nil && b.analyzer.Enabled() {
		segments, err := b.analyzer.Analyze(ctx, source.Path,
			b.opts.TargetClipLen, b.opts.MinClipLen, b.opts.MaxClipLen)
		switch {
		case err != nil:
			slog.Warn("Clipping service failed, using local detection",
				"video_id", source.VideoID, "error", err)
		case len(segments) == 0:
			slog.Debug("Clipping service returned no segments, using local detection",
				"video_id", source.VideoID)
		default:
			return segments
		}
	}

	scores, err := b.scorer.Score(ctx, source.Path)
	if err != nil {
		slog.Warn("Motion scoring failed, using fallback segment",
			"video_id", source.VideoID, "error", err)
		scores = nil
	}

	return clip.SelectSegments(scores, source.Duration, clip.SelectorConfig{
		ClipLength:      b.opts.TargetClipLen,
		MaxClips:        maxClips,
		MinStartSpacing: b.opts.MinStartSpacing,
		MotionThreshold: b.opts.MotionThreshold,
	})
}

func (b *Bundler) caption(ctx context.Context, source *media.DownloadResult, segment clip.Segment) []clip.Caption {
	description := source.Title
	contextInfo := fmt.Sprintf("motion score %.2f, duration %.0fs", segment.Score, segment.Duration())

	captions, err := b.captions.Generate(ctx, description, contextInfo)
	if err != nil {
		slog.Warn("Caption generation failed, using fallbacks", "error", err)
		return b.captions.Fallback(description)
	}
	return captions
}
