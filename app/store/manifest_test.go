package store

import (
	"errors"
	"testing"

	"github.com/cliprelay/cliprelay/app/clip"
)

func newTestManifestStore(t *testing.T) *ManifestStore {
	t.Helper()
	m, err := NewManifestStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestManifestAppendOrderPreserving(t *testing.T) {
	m := newTestManifestStore(t)
	date := "2026-08-29"

	b1 := clip.Bundle{ClipID: "clip_01_0.90", ApprovalStatus: clip.StatusPending}
	b2 := clip.Bundle{ClipID: "clip_02_0.70", ApprovalStatus: clip.StatusPending}

	if err := m.Append(date, b1); err != nil {
		t.Fatal(err)
	}
	if err := m.Append(date, b2); err != nil {
		t.Fatal(err)
	}

	manifest, err := m.Read(date)
	if err != nil {
		t.Fatal(err)
	}
	if manifest.TotalCount != 2 {
		t.Errorf("Expected total_count 2, got %d", manifest.TotalCount)
	}
	if len(manifest.Clips) != 2 {
		t.Fatalf("Expected 2 clips, got %d", len(manifest.Clips))
	}
	if manifest.Clips[0].ClipID != "clip_01_0.90" || manifest.Clips[1].ClipID != "clip_02_0.70" {
		t.Errorf("Clips out of order: %s, %s", manifest.Clips[0].ClipID, manifest.Clips[1].ClipID)
	}
}

func TestManifestReadMissing(t *testing.T) {
	m := newTestManifestStore(t)

	_, err := m.Read("2026-01-01")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestManifestUpdateBundle(t *testing.T) {
	m := newTestManifestStore(t)
	date := "2026-08-29"

	if err := m.Append(date, clip.Bundle{ClipID: "clip_01_0.90", ApprovalStatus: clip.StatusPending}); err != nil {
		t.Fatal(err)
	}

	err := m.UpdateBundle(date, "clip_01_0.90", func(b *clip.Bundle) error {
		return clip.TransitionStatus(b, clip.StatusApproved)
	})
	if err != nil {
		t.Fatal(err)
	}

	manifest, err := m.Read(date)
	if err != nil {
		t.Fatal(err)
	}
	if manifest.Clips[0].ApprovalStatus != clip.StatusApproved {
		t.Errorf("Expected approved, got %s", manifest.Clips[0].ApprovalStatus)
	}

	err = m.UpdateBundle(date, "clip_99_0.00", func(b *clip.Bundle) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown clip, got %v", err)
	}
}

func TestManifestFindBundleNewestFirst(t *testing.T) {
	m := newTestManifestStore(t)

	if err := m.Append("2026-08-28", clip.Bundle{ClipID: "clip_01_0.50"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Append("2026-08-29", clip.Bundle{ClipID: "clip_01_0.80"}); err != nil {
		t.Fatal(err)
	}

	date, bundle, err := m.FindBundle("clip_01_0.50")
	if err != nil {
		t.Fatal(err)
	}
	if date != "2026-08-28" {
		t.Errorf("Expected date 2026-08-28, got %s", date)
	}
	if bundle.ClipID != "clip_01_0.50" {
		t.Errorf("Expected clip_01_0.50, got %s", bundle.ClipID)
	}

	_, _, err = m.FindBundle("clip_77_0.00")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestManifestDates(t *testing.T) {
	m := newTestManifestStore(t)

	for _, d := range []string{"2026-08-29", "2026-08-27", "2026-08-28"} {
		if err := m.Append(d, clip.Bundle{ClipID: "clip_01_0.50"}); err != nil {
			t.Fatal(err)
		}
	}

	dates, err := m.Dates()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2026-08-27", "2026-08-28", "2026-08-29"}
	if len(dates) != len(want) {
		t.Fatalf("Expected %d dates, got %d", len(want), len(dates))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], dates[i])
		}
	}
}
