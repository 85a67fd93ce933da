package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cliprelay/cliprelay/app/channel"
	"github.com/cliprelay/cliprelay/app/clip"
	"github.com/cliprelay/cliprelay/app/media"
	"github.com/cliprelay/cliprelay/app/store"
)

type fakeDownloader struct {
	result *media.DownloadResult
	err    error
}

func (f *fakeDownloader) Download(ctx context.Context, videoURL string) (*media.DownloadResult, error) {
	return f.result, f.err
}

type fakeTranscoder struct {
	calls   int
	failOn  int
	written []string
}

func (f *fakeTranscoder) CutVertical(ctx context.Context, src, dst string, start, end float64) error {
	f.calls++
	if f.failOn > 0 && f.calls == f.failOn {
		return errors.New("encoder exploded")
	}
	f.written = append(f.written, dst)
	return nil
}

type fakeScorer struct {
	scores []clip.WindowScore
	err    error
}

func (f *fakeScorer) Score(ctx context.Context, path string) ([]clip.WindowScore, error) {
	return f.scores, f.err
}

type fakeAnalyzer struct {
	enabled  bool
	segments []clip.Segment
	err      error
	calls    int
}

func (f *fakeAnalyzer) Enabled() bool { return f.enabled }

func (f *fakeAnalyzer) Analyze(ctx context.Context, path string, target, min, max float64) ([]clip.Segment, error) {
	f.calls++
	return f.segments, f.err
}

type fakeCaptions struct {
	err error
}

func (f *fakeCaptions) Generate(ctx context.Context, description, contextInfo string) ([]clip.Caption, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []clip.Caption{{Text: "Generated for " + description, Hashtags: []string{"#viral"}}}, nil
}

func (f *fakeCaptions) Fallback(description string) []clip.Caption {
	return []clip.Caption{{Text: "Fallback caption", Hashtags: []string{"#fyp"}}}
}

type fakeReview struct {
	clipIDs []string
	err     error
}

func (f *fakeReview) Submit(ctx context.Context, bundle *clip.Bundle, creator store.Creator) error {
	f.clipIDs = append(f.clipIDs, bundle.ClipID)
	return f.err
}

func testOptions(dir string) Options {
	return Options{
		ClipsDir:        dir,
		ClipsPerVideo:   2,
		TargetClipLen:   30,
		MinClipLen:      15,
		MaxClipLen:      60,
		MinStartSpacing: 20,
		MotionThreshold: 0.3,
		OutputWidth:     1080,
		OutputHeight:    1920,
		KeepSource:      true,
	}
}

func testSource() *media.DownloadResult {
	return &media.DownloadResult{
		Path:     "/tmp/source.mp4",
		VideoID:  "v1",
		Title:    "Ranked grind",
		Duration: 300,
	}
}

func testScores() []clip.WindowScore {
	return []clip.WindowScore{
		{Start: 0, Score: 0.9},
		{Start: 100, Score: 0.8},
		{Start: 200, Score: 0.7},
	}
}

func newTestBundler(t *testing.T, transcoder *fakeTranscoder, captions *fakeCaptions, review ReviewSubmitter, analyzer *fakeAnalyzer) (*Bundler, *store.ManifestStore) {
	t.Helper()

	dir := t.TempDir()
	manifests, err := store.NewManifestStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	var a SegmentAnalyzer
	if analyzer != nil {
		a = analyzer
	}

	b := NewBundler(
		&fakeDownloader{result: testSource()},
		transcoder,
		&fakeScorer{scores: testScores()},
		a,
		captions,
		review,
		manifests,
		testOptions(filepath.Join(dir, "clips")),
	)
	return b, manifests
}

func TestProcessVideo(t *testing.T) {
	transcoder := &fakeTranscoder{}
	review := &fakeReview{}
	b, manifests := newTestBundler(t, transcoder, &fakeCaptions{}, review, nil)

	video := channel.Video{ID: "v1", URL: "https://www.youtube.com/watch?v=v1"}
	creator := store.Creator{Name: "Acme Gaming"}

	bundles, err := b.ProcessVideo(context.Background(), video, creator)
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) != 2 {
		t.Fatalf("Expected 2 bundles, got %d", len(bundles))
	}

	for _, bundle := range bundles {
		if bundle.ApprovalStatus != clip.StatusPending {
			t.Errorf("Expected pending status with review enabled, got %s", bundle.ApprovalStatus)
		}
		if bundle.Metadata.CreatorName != "Acme Gaming" {
			t.Errorf("Unexpected creator %q", bundle.Metadata.CreatorName)
		}
		if bundle.Metadata.Resolution != "1080x1920" {
			t.Errorf("Unexpected resolution %q", bundle.Metadata.Resolution)
		}
	}

	if len(review.clipIDs) != 2 {
		t.Errorf("Expected 2 review submissions, got %d", len(review.clipIDs))
	}

	manifest, err := manifests.Read(store.DateFor(time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if manifest.TotalCount != 2 {
		t.Errorf("Expected 2 manifest entries, got %d", manifest.TotalCount)
	}
}

func TestProcessVideoNoReview(t *testing.T) {
	b, _ := newTestBundler(t, &fakeTranscoder{}, &fakeCaptions{}, nil, nil)

	bundles, err := b.ProcessVideo(context.Background(), channel.Video{ID: "v1"}, store.Creator{Name: "Acme Gaming"})
	if err != nil {
		t.Fatal(err)
	}
	for _, bundle := range bundles {
		if bundle.ApprovalStatus != clip.StatusNotRequired {
			t.Errorf("Expected not_required without review, got %s", bundle.ApprovalStatus)
		}
	}
}

func TestProcessVideoSkipsFailedTranscode(t *testing.T) {
	transcoder := &fakeTranscoder{failOn: 1}
	b, manifests := newTestBundler(t, transcoder, &fakeCaptions{}, nil, nil)

	bundles, err := b.ProcessVideo(context.Background(), channel.Video{ID: "v1"}, store.Creator{Name: "Acme Gaming"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) != 1 {
		t.Fatalf("Expected 1 bundle after one transcode failure, got %d", len(bundles))
	}

	manifest, err := manifests.Read(store.DateFor(time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if manifest.TotalCount != 1 {
		t.Errorf("Skipped clip must not reach the manifest, got %d entries", manifest.TotalCount)
	}
}

func TestProcessVideoCaptionFallback(t *testing.T) {
	b, _ := newTestBundler(t, &fakeTranscoder{}, &fakeCaptions{err: errors.New("model down")}, nil, nil)

	bundles, err := b.ProcessVideo(context.Background(), channel.Video{ID: "v1"}, store.Creator{Name: "Acme Gaming"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) == 0 {
		t.Fatal("Expected bundles despite caption failure")
	}
	for _, bundle := range bundles {
		if len(bundle.Captions) == 0 || bundle.Captions[0].Text != "Fallback caption" {
			t.Errorf("Expected fallback captions, got %v", bundle.Captions)
		}
	}
}

func TestProcessVideoReviewFailureKeepsPending(t *testing.T) {
	review := &fakeReview{err: errors.New("gateway down")}
	b, manifests := newTestBundler(t, &fakeTranscoder{}, &fakeCaptions{}, review, nil)

	bundles, err := b.ProcessVideo(context.Background(), channel.Video{ID: "v1"}, store.Creator{Name: "Acme Gaming"})
	if err != nil {
		t.Fatal(err)
	}
	for _, bundle := range bundles {
		if bundle.ApprovalStatus != clip.StatusPending {
			t.Errorf("Expected pending after review failure, got %s", bundle.ApprovalStatus)
		}
	}

	manifest, err := manifests.Read(store.DateFor(time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if manifest.TotalCount != len(bundles) {
		t.Errorf("Clips must reach the manifest despite review failure")
	}
}

func TestProcessVideoAnalyzerPreferred(t *testing.T) {
	analyzer := &fakeAnalyzer{
		enabled: true,
		segments: []clip.Segment{
			{Start: 42, End: 72, Score: 0.99, Confidence: 0.9},
		},
	}
	b, _ := newTestBundler(t, &fakeTranscoder{}, &fakeCaptions{}, nil, analyzer)

	bundles, err := b.ProcessVideo(context.Background(), channel.Video{ID: "v1"}, store.Creator{Name: "Acme Gaming"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) != 1 {
		t.Fatalf("Expected 1 bundle from analyzer, got %d", len(bundles))
	}
	if bundles[0].Metadata.StartTime != 42 {
		t.Errorf("Expected analyzer segment, got start %f", bundles[0].Metadata.StartTime)
	}
	if analyzer.calls != 1 {
		t.Errorf("Expected 1 analyzer call, got %d", analyzer.calls)
	}
}

func TestProcessVideoAnalyzerFallsBackToLocal(t *testing.T) {
	analyzer := &fakeAnalyzer{enabled: true, err: errors.New("service down")}
	b, _ := newTestBundler(t, &fakeTranscoder{}, &fakeCaptions{}, nil, analyzer)

	bundles, err := b.ProcessVideo(context.Background(), channel.Video{ID: "v1"}, store.Creator{Name: "Acme Gaming"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) != 2 {
		t.Fatalf("Expected 2 bundles from local detection, got %d", len(bundles))
	}
}

func TestProcessVideoClipsPerVideoOverride(t *testing.T) {
	b, _ := newTestBundler(t, &fakeTranscoder{}, &fakeCaptions{}, nil, nil)

	creator := store.Creator{Name: "Acme Gaming", ClipsPerVideo: 1}
	bundles, err := b.ProcessVideo(context.Background(), channel.Video{ID: "v1"}, creator)
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) != 1 {
		t.Fatalf("Expected creator override of 1 clip, got %d", len(bundles))
	}
}

func TestProcessVideoClipsPerVideoOverrideRaises(t *testing.T) {
	// The default allows 2 clips; a creator configured for 3 must get 3
	// when the video has that many viable windows.
	b, _ := newTestBundler(t, &fakeTranscoder{}, &fakeCaptions{}, nil, nil)

	creator := store.Creator{Name: "Acme Gaming", ClipsPerVideo: 3}
	bundles, err := b.ProcessVideo(context.Background(), channel.Video{ID: "v1"}, creator)
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) != 3 {
		t.Fatalf("Expected creator override of 3 clips, got %d", len(bundles))
	}
}

func TestProcessVideoAnalyzerEmptyFallsBackToLocal(t *testing.T) {
	analyzer := &fakeAnalyzer{enabled: true}
	b, _ := newTestBundler(t, &fakeTranscoder{}, &fakeCaptions{}, nil, analyzer)

	bundles, err := b.ProcessVideo(context.Background(), channel.Video{ID: "v1"}, store.Creator{Name: "Acme Gaming"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) != 2 {
		t.Fatalf("Expected 2 bundles from local detection, got %d", len(bundles))
	}
	if analyzer.calls != 1 {
		t.Errorf("Expected 1 analyzer call, got %d", analyzer.calls)
	}
}

func TestProcessVideoClipIDsScopedByVideo(t *testing.T) {
	b, _ := newTestBundler(t, &fakeTranscoder{}, &fakeCaptions{}, nil, nil)

	bundles, err := b.ProcessVideo(context.Background(), channel.Video{ID: "v1"}, store.Creator{Name: "Acme Gaming"})
	if err != nil {
		t.Fatal(err)
	}
	for _, bundle := range bundles {
		if !strings.HasPrefix(bundle.ClipID, "v1_clip_") {
			t.Errorf("Expected video-scoped clip ID, got %q", bundle.ClipID)
		}
	}
}
