package store

import (
	"fmt"
	"iter"
	"os"
	"sync"
	"time"
)

// Creator is one monitored channel with its destination account and
// payment link.
type Creator struct {
	Name                 string     `json:"name"`
	ChannelURL           string     `json:"channel_url"`
	DestinationHandle    string     `json:"destination_handle"`
	PaymentLink          string     `json:"payment_link,omitempty"`
	ClipsPerVideo        int        `json:"clips_per_video,omitempty"`
	CheckIntervalMinutes int        `json:"check_interval_minutes"`
	Active               bool       `json:"active"`
	AddedAt              time.Time  `json:"added_at"`
	LastCheckedAt        *time.Time `json:"last_checked_at,omitempty"`
}

// Due reports whether the creator's check interval has elapsed since the
// last check. A never-checked creator is always due.
func (c Creator) Due(now time.Time) bool {
	if c.LastCheckedAt == nil {
		return true
	}
	interval := time.Duration(c.CheckIntervalMinutes) * time.Minute
	return !now.Before(c.LastCheckedAt.Add(interval))
}

// CreatorRegistry is the persisted creator list, kept in insertion order.
// Every mutation rewrites the backing JSON file atomically.
type CreatorRegistry struct {
	path            string
	defaultInterval int
	mu              sync.RWMutex
	creators        []Creator
}

func NewCreatorRegistry(path string, defaultIntervalMinutes int) (*CreatorRegistry, error) {
	r := &CreatorRegistry{path: path, defaultInterval: defaultIntervalMinutes}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to stat registry file: %w", err)
	}

	if err := readJSON(path, &r.creators); err != nil {
		return nil, fmt.Errorf("failed to load creator registry: %w", err)
	}
	return r, nil
}

func (r *CreatorRegistry) Add(c Creator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(c.Name) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateCreator, c.Name)
	}

	if c.CheckIntervalMinutes <= 0 {
		c.CheckIntervalMinutes = r.defaultInterval
	}
	if c.AddedAt.IsZero() {
		c.AddedAt = time.Now().UTC()
	}
	c.Active = true
	c.LastCheckedAt = nil

	r.creators = append(r.creators, c)
	if err := r.persist(); err != nil {
		r.creators = r.creators[:len(r.creators)-1]
		return err
	}
	return nil
}

func (r *CreatorRegistry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: creator %s", ErrNotFound, name)
	}

	removed := r.creators[i]
	r.creators = append(r.creators[:i], r.creators[i+1:]...)
	if err := r.persist(); err != nil {
		r.creators = append(r.creators[:i], append([]Creator{removed}, r.creators[i:]...)...)
		return err
	}
	return nil
}

// Update replaces an existing creator record, keyed by name.
func (r *CreatorRegistry) Update(c Creator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(c.Name)
	if i < 0 {
		return fmt.Errorf("%w: creator %s", ErrNotFound, c.Name)
	}

	prev := r.creators[i]
	r.creators[i] = c
	if err := r.persist(); err != nil {
		r.creators[i] = prev
		return err
	}
	return nil
}

func (r *CreatorRegistry) Get(name string) (Creator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(name)
	if i < 0 {
		return Creator{}, fmt.Errorf("%w: creator %s", ErrNotFound, name)
	}
	return r.creators[i], nil
}

// Touch updates the creator's last-checked timestamp.
func (r *CreatorRegistry) Touch(name string, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: creator %s", ErrNotFound, name)
	}

	prev := r.creators[i].LastCheckedAt
	r.creators[i].LastCheckedAt = &ts
	if err := r.persist(); err != nil {
		r.creators[i].LastCheckedAt = prev
		return err
	}
	return nil
}

// All yields creators in insertion order. The sequence is restartable and
// operates on a snapshot, so registry mutations during iteration are safe.
func (r *CreatorRegistry) All() iter.Seq[Creator] {
	return func(yield func(Creator) bool) {
		r.mu.RLock()
		snapshot := make([]Creator, len(r.creators))
		copy(snapshot, r.creators)
		r.mu.RUnlock()

		for _, c := range snapshot {
			if !yield(c) {
				return
			}
		}
	}
}

func (r *CreatorRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.creators)
}

// MinCheckInterval returns the shortest check interval among creators, or
// the default when the registry is empty.
func (r *CreatorRegistry) MinCheckInterval() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	min := r.defaultInterval
	for _, c := range r.creators {
		if c.CheckIntervalMinutes > 0 && c.CheckIntervalMinutes < min {
			min = c.CheckIntervalMinutes
		}
	}
	if min <= 0 {
		min = 60
	}
	return time.Duration(min) * time.Minute
}

func (r *CreatorRegistry) indexOf(name string) int {
	for i, c := range r.creators {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (r *CreatorRegistry) persist() error {
	return writeJSON(r.path, r.creators)
}
