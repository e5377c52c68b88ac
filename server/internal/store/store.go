package store

import (
	"context"
	"sync"
	"time"

	"github.com/processdash/processdash/server/internal/records"
)

// Source loads a fresh record set.
type Source interface {
	Load(ctx context.Context) (records.Set, error)
}

// Store is a thread-safe cache of one record set.
type Store struct {
	src Source
	ttl time.Duration // 0 means no expiry
	now func() time.Time

	// loadMu serialises reloads so concurrent misses share one file read.
	loadMu sync.Mutex

	mu       sync.RWMutex
	set      records.Set
	loadedAt time.Time
	valid    bool
	gen      uint64 // bumped by Invalidate
}

// New creates a Store in front of src. A ttl of 0 keeps the set until it is
// invalidated.
func New(src Source, ttl time.Duration) *Store {
	return &Store{
		src: src,
		ttl: ttl,
		now: time.Now,
	}
}

// Load returns the cached set if it is still valid, otherwise reloads it from
// the source.
func (s *Store) Load(ctx context.Context) (records.Set, error) {
	if set, ok := s.cached(); ok {
		return set, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	// Another caller may have reloaded while we waited.
	if set, ok := s.cached(); ok {
		return set, nil
	}

	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	set, err := s.src.Load(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// An invalidation during the load means the file changed under us; serve
	// what was read but do not keep it.
	if s.gen == gen {
		s.set = set
		s.loadedAt = s.now()
		s.valid = true
	}
	s.mu.Unlock()
	return set, nil
}

// Invalidate drops the cached set; the next Load reads the source again.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = nil
	s.valid = false
	s.gen++
}

// LoadedAt returns when the cached set was loaded and whether one is held.
func (s *Store) LoadedAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt, s.valid
}

func (s *Store) cached() (records.Set, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.valid {
		return nil, false
	}
	if s.ttl > 0 && !s.now().Before(s.loadedAt.Add(s.ttl)) {
		return nil, false
	}
	return s.set, true
}
