package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) *CreatorRegistry {
	t.Helper()
	r, err := NewCreatorRegistry(filepath.Join(t.TempDir(), "creators.json"), 60)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRegistryAddAndGet(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Add(Creator{Name: "acme", ChannelURL: "chan/acme", DestinationHandle: "acme.clips", PaymentLink: "https://whop.com/acme"})
	if err != nil {
		t.Fatal(err)
	}

	c, err := r.Get("acme")
	if err != nil {
		t.Fatal(err)
	}
	if c.ChannelURL != "chan/acme" {
		t.Errorf("Expected channel URL chan/acme, got %s", c.ChannelURL)
	}
	if c.CheckIntervalMinutes != 60 {
		t.Errorf("Expected defaulted check interval 60, got %d", c.CheckIntervalMinutes)
	}
	if c.LastCheckedAt != nil {
		t.Error("New creator must have nil last-checked timestamp")
	}
	if !c.Active {
		t.Error("New creator should be active")
	}
}

func TestRegistryAddDuplicate(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Add(Creator{Name: "acme", ChannelURL: "chan/acme"}); err != nil {
		t.Fatal(err)
	}

	err := r.Add(Creator{Name: "acme", ChannelURL: "chan/other"})
	if !errors.Is(err, ErrDuplicateCreator) {
		t.Fatalf("Expected ErrDuplicateCreator, got %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Registry size must be unchanged after failed add, got %d", r.Count())
	}
}

func TestRegistryRemoveNotFound(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Remove("ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestRegistryListInsertionOrder(t *testing.T) {
	r := newTestRegistry(t)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Add(Creator{Name: name, ChannelURL: "chan/" + name}); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	for c := range r.All() {
		got = append(got, c.Name)
	}

	want := []string{"zeta", "alpha", "mid"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d creators, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// The sequence is restartable.
	count := 0
	for range r.All() {
		count++
	}
	if count != 3 {
		t.Errorf("Expected restartable sequence to yield 3 creators, got %d", count)
	}
}

func TestRegistryTouch(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Add(Creator{Name: "acme", ChannelURL: "chan/acme"}); err != nil {
		t.Fatal(err)
	}

	ts := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	if err := r.Touch("acme", ts); err != nil {
		t.Fatal(err)
	}

	c, err := r.Get("acme")
	if err != nil {
		t.Fatal(err)
	}
	if c.LastCheckedAt == nil || !c.LastCheckedAt.Equal(ts) {
		t.Errorf("Expected last-checked %v, got %v", ts, c.LastCheckedAt)
	}

	if err := r.Touch("ghost", ts); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown creator, got %v", err)
	}
}

func TestRegistryPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "creators.json")

	r, err := NewCreatorRegistry(path, 60)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Add(Creator{Name: "acme", ChannelURL: "chan/acme", CheckIntervalMinutes: 15}); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewCreatorRegistry(path, 60)
	if err != nil {
		t.Fatal(err)
	}
	c, err := reloaded.Get("acme")
	if err != nil {
		t.Fatal(err)
	}
	if c.CheckIntervalMinutes != 15 {
		t.Errorf("Expected persisted interval 15, got %d", c.CheckIntervalMinutes)
	}
}

func TestCreatorDue(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	c := Creator{Name: "acme", CheckIntervalMinutes: 30}
	if !c.Due(now) {
		t.Error("Never-checked creator must be due")
	}

	recent := now.Add(-10 * time.Minute)
	c.LastCheckedAt = &recent
	if c.Due(now) {
		t.Error("Creator checked 10m ago with 30m interval must not be due")
	}

	old := now.Add(-30 * time.Minute)
	c.LastCheckedAt = &old
	if !c.Due(now) {
		t.Error("Creator checked exactly one interval ago must be due")
	}
}

func TestRegistryMinCheckInterval(t *testing.T) {
	r := newTestRegistry(t)

	if r.MinCheckInterval() != 60*time.Minute {
		t.Errorf("Empty registry should fall back to default interval, got %v", r.MinCheckInterval())
	}

	_ = r.Add(Creator{Name: "a", ChannelURL: "chan/a", CheckIntervalMinutes: 45})
	_ = r.Add(Creator{Name: "b", ChannelURL: "chan/b", CheckIntervalMinutes: 15})

	if r.MinCheckInterval() != 15*time.Minute {
		t.Errorf("Expected min interval 15m, got %v", r.MinCheckInterval())
	}
}
