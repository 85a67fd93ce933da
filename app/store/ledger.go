package store

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// ProcessedVideoRecord marks one source video as already turned into clips.
type ProcessedVideoRecord struct {
	VideoID     string    `json:"video_id"`
	CreatorName string    `json:"creator_name"`
	ProcessedAt time.Time `json:"timestamp"`
	ClipCount   int       `json:"clip_count"`
}

// VideoKey scopes a video identifier by platform so identical identifiers
// from different platforms never collide in the ledger.
func VideoKey(platform, videoID string) string {
	return platform + ":" + videoID
}

// ProcessedLedger is the persisted set of video identifiers already turned
// into clips. Presence implies "do not reprocess".
type ProcessedLedger struct {
	path    string
	mu      sync.RWMutex
	records []ProcessedVideoRecord
	index   map[string]int
}

func NewProcessedLedger(path string) (*ProcessedLedger, error) {
	l := &ProcessedLedger{path: path, index: make(map[string]int)}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to stat ledger file: %w", err)
	}

	if err := readJSON(path, &l.records); err != nil {
		return nil, fmt.Errorf("failed to load processed-video ledger: %w", err)
	}
	for i, rec := range l.records {
		l.index[rec.VideoID] = i
	}
	return l, nil
}

func (l *ProcessedLedger) Has(videoID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[videoID]
	return ok
}

// MarkProcessed inserts a record and persists the ledger. Marking a video
// twice fails with ErrAlreadyProcessed; this is the idempotency guard the
// monitoring loop relies on.
func (l *ProcessedLedger) MarkProcessed(videoID, creatorName string, clipCount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[videoID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, videoID)
	}

	l.records = append(l.records, ProcessedVideoRecord{
		VideoID:     videoID,
		CreatorName: creatorName,
		ProcessedAt: time.Now().UTC(),
		ClipCount:   clipCount,
	})
	if err := writeJSON(l.path, l.records); err != nil {
		l.records = l.records[:len(l.records)-1]
		return err
	}
	l.index[videoID] = len(l.records) - 1
	return nil
}

func (l *ProcessedLedger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
