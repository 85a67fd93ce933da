package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cliprelay/cliprelay/app/clip"
)

const manifestDateLayout = "2006-01-02"

// Manifest is the per-day ordered list of clip bundles handed to the
// posting consumer. total_count always equals the number of bundles listed.
type Manifest struct {
	Date       string        `json:"date"`
	UpdatedAt  time.Time     `json:"timestamp"`
	TotalCount int           `json:"total_count"`
	Clips      []clip.Bundle `json:"clips"`
}

// ManifestStore holds one append-only manifest JSON file per calendar day.
type ManifestStore struct {
	dir string
	mu  sync.Mutex
}

func NewManifestStore(dir string) (*ManifestStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create manifest directory: %w", err)
	}
	return &ManifestStore{dir: dir}, nil
}

// DateFor formats a timestamp as a manifest date key.
func DateFor(t time.Time) string {
	return t.UTC().Format(manifestDateLayout)
}

// Append adds a bundle to the day's manifest, creating the manifest on the
// first bundle of the day. The file is rewritten atomically.
func (m *ManifestStore) Append(date string, bundle clip.Bundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	manifest, err := m.load(date)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		manifest = &Manifest{Date: date}
	}

	manifest.Clips = append(manifest.Clips, bundle)
	manifest.TotalCount = len(manifest.Clips)
	manifest.UpdatedAt = time.Now().UTC()

	return writeJSON(m.path(date), manifest)
}

// Read returns the manifest for a date, or ErrNotFound when no manifest
// exists for it.
func (m *ManifestStore) Read(date string) (*Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	manifest, err := m.load(date)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: manifest for %s", ErrNotFound, date)
		}
		return nil, err
	}
	return manifest, nil
}

// UpdateBundle rewrites one bundle in a day's manifest through fn. The
// whole manifest file is rewritten atomically on success.
func (m *ManifestStore) UpdateBundle(date, clipID string, fn func(*clip.Bundle) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	manifest, err := m.load(date)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: manifest for %s", ErrNotFound, date)
		}
		return err
	}

	for i := range manifest.Clips {
		if manifest.Clips[i].ClipID != clipID {
			continue
		}
		if err := fn(&manifest.Clips[i]); err != nil {
			return err
		}
		manifest.TotalCount = len(manifest.Clips)
		manifest.UpdatedAt = time.Now().UTC()
		return writeJSON(m.path(date), manifest)
	}

	return fmt.Errorf("%w: clip %s in manifest %s", ErrNotFound, clipID, date)
}

// FindBundle locates a clip across manifests, newest date first, and
// returns the date it was found under.
func (m *ManifestStore) FindBundle(clipID string) (string, *clip.Bundle, error) {
	dates, err := m.Dates()
	if err != nil {
		return "", nil, err
	}

	for i := len(dates) - 1; i >= 0; i-- {
		manifest, err := m.Read(dates[i])
		if err != nil {
			return "", nil, err
		}
		for j := range manifest.Clips {
			if manifest.Clips[j].ClipID == clipID {
				b := manifest.Clips[j]
				return dates[i], &b, nil
			}
		}
	}

	return "", nil, fmt.Errorf("%w: clip %s", ErrNotFound, clipID)
}

// Dates lists every date with a manifest, ascending.
func (m *ManifestStore) Dates() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	dates := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "manifest_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(name, "manifest_"), ".json")
		if _, err := time.Parse(manifestDateLayout, date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

func (m *ManifestStore) load(date string) (*Manifest, error) {
	var manifest Manifest
	if err := readJSON(m.path(date), &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func (m *ManifestStore) path(date string) string {
	return filepath.Join(m.dir, "manifest_"+date+".json")
}
