package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cliprelay/cliprelay/app/channel"
	"github.com/cliprelay/cliprelay/app/clip"
	"github.com/cliprelay/cliprelay/app/store"
)

type fakeLister struct {
	videos []channel.Video
	err    error
}

func (f *fakeLister) Latest(ctx context.Context, channelURL string, limit int) ([]channel.Video, error) {
	return f.videos, f.err
}

type fakeProcessor struct {
	processed []string
	failFor   map[string]bool
	clipCount int
}

func (f *fakeProcessor) ProcessVideo(ctx context.Context, video channel.Video, creator store.Creator) ([]clip.Bundle, error) {
	if f.failFor[video.ID] {
		return nil, errors.New("pipeline failed")
	}
	f.processed = append(f.processed, video.ID)
	bundles := make([]clip.Bundle, f.clipCount)
	for i := range bundles {
		bundles[i] = clip.Bundle{ClipID: clip.BundleID(video.ID, i+1, 0.8)}
	}
	return bundles, nil
}

func newStores(t *testing.T) (*store.CreatorRegistry, *store.ProcessedLedger) {
	t.Helper()
	dir := t.TempDir()

	registry, err := store.NewCreatorRegistry(filepath.Join(dir, "creators.json"), 60)
	if err != nil {
		t.Fatal(err)
	}
	ledger, err := store.NewProcessedLedger(filepath.Join(dir, "processed.json"))
	if err != nil {
		t.Fatal(err)
	}
	return registry, ledger
}

func TestCheckCreatorTask(t *testing.T) {
	registry, ledger := newStores(t)

	creator := store.Creator{Name: "Acme Gaming", ChannelURL: "UCabcdefghijklmnopqrstuv", Active: true}
	if err := registry.Add(creator); err != nil {
		t.Fatal(err)
	}

	lister := &fakeLister{videos: []channel.Video{
		{ID: "v1", URL: "https://www.youtube.com/watch?v=v1"},
		{ID: "v2", URL: "https://www.youtube.com/watch?v=v2"},
	}}
	processor := &fakeProcessor{clipCount: 3}

	task := NewCheckCreatorTask(creator, lister, ledger, registry, processor, 5)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(processor.processed) != 2 {
		t.Fatalf("Expected 2 processed videos, got %v", processor.processed)
	}
	if !ledger.Has(store.VideoKey("youtube", "v1")) || !ledger.Has(store.VideoKey("youtube", "v2")) {
		t.Error("Expected both videos in the ledger")
	}

	updated, err := registry.Get("Acme Gaming")
	if err != nil {
		t.Fatal(err)
	}
	if updated.LastCheckedAt == nil {
		t.Error("Expected last checked time to be set")
	}
}

func TestCheckCreatorTaskSkipsProcessed(t *testing.T) {
	registry, ledger := newStores(t)

	creator := store.Creator{Name: "Acme Gaming", ChannelURL: "UCabcdefghijklmnopqrstuv", Active: true}
	if err := registry.Add(creator); err != nil {
		t.Fatal(err)
	}
	if err := ledger.MarkProcessed(store.VideoKey("youtube", "v1"), "Acme Gaming", 3); err != nil {
		t.Fatal(err)
	}

	lister := &fakeLister{videos: []channel.Video{{ID: "v1"}, {ID: "v2"}}}
	processor := &fakeProcessor{clipCount: 1}

	task := NewCheckCreatorTask(creator, lister, ledger, registry, processor, 5)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(processor.processed) != 1 || processor.processed[0] != "v2" {
		t.Errorf("Expected only v2 processed, got %v", processor.processed)
	}
}

func TestCheckCreatorTaskFailedVideoNotMarked(t *testing.T) {
	registry, ledger := newStores(t)

	creator := store.Creator{Name: "Acme Gaming", ChannelURL: "UCabcdefghijklmnopqrstuv", Active: true}
	if err := registry.Add(creator); err != nil {
		t.Fatal(err)
	}

	lister := &fakeLister{videos: []channel.Video{{ID: "v1"}, {ID: "v2"}}}
	processor := &fakeProcessor{clipCount: 1, failFor: map[string]bool{"v1": true}}

	task := NewCheckCreatorTask(creator, lister, ledger, registry, processor, 5)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	if ledger.Has(store.VideoKey("youtube", "v1")) {
		t.Error("Failed video must not enter the ledger")
	}
	if !ledger.Has(store.VideoKey("youtube", "v2")) {
		t.Error("Expected v2 in the ledger")
	}
}

func TestCheckCreatorTaskListerError(t *testing.T) {
	registry, ledger := newStores(t)

	creator := store.Creator{Name: "Acme Gaming", ChannelURL: "UCabcdefghijklmnopqrstuv", Active: true}
	lister := &fakeLister{err: errors.New("channel unreachable")}

	task := NewCheckCreatorTask(creator, lister, ledger, registry, &fakeProcessor{}, 5)
	if err := task.Execute(context.Background()); err == nil {
		t.Error("Expected error when listing fails")
	}
}
