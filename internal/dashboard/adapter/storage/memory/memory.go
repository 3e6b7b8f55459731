package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/langowen/fxdash/internal/entities"
)

// Storage is a process-local cache of payloads keyed by request fingerprint.
// Entries are superseded in place and never evicted.
type Storage struct {
	mu      sync.RWMutex
	entries map[string]entities.CacheEntry
	now     func() time.Time
}

type Option func(*Storage)

// WithClock replaces time.Now, used by tests to simulate elapsed TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func NewStorage(opts ...Option) *Storage {
	s := &Storage{
		entries: make(map[string]entities.CacheEntry),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get returns the payload only while now - StoredAt < ttl.
func (s *Storage) Get(_ context.Context, key string, ttl time.Duration) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}

	if s.now().Sub(entry.StoredAt) >= ttl {
		return nil, false, nil
	}

	return bytes.Clone(entry.Payload), true, nil
}

// GetStale returns the payload regardless of its age.
func (s *Storage) GetStale(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}

	return bytes.Clone(entry.Payload), true, nil
}

func (s *Storage) Set(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entities.CacheEntry{
		StoredAt: s.now(),
		Payload:  bytes.Clone(payload),
	}

	return nil
}
