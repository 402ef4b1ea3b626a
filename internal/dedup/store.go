// Package dedup keeps the keys of events that have already been announced.
//
// Keys are remembered together with their candle time. When a retention
// window is set, keys whose candle time falls outside it are evicted lazily
// on Add. The retention must exceed the widest poll window, otherwise an
// evicted key could be polled again and announced twice.
package dedup

import (
	"sync"
	"time"

	"liqwatch/internal/model"
)

const defaultSweepInterval = time.Minute

// Store is a time-windowed set of announced keys. It is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	keys       map[model.Key]struct{}
	retention  time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	evicted    int64
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock used for eviction.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithSweepInterval sets how often Add may scan for expired keys.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) {
		s.sweepEvery = d
	}
}

// NewStore creates a store. A retention of zero keeps every key for the
// life of the process.
func NewStore(retention time.Duration, opts ...Option) *Store {
	s := &Store{
		keys:       make(map[model.Key]struct{}),
		retention:  retention,
		sweepEvery: defaultSweepInterval,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastSweep = s.now()
	return s
}

// Contains reports whether key has been added and not yet evicted.
func (s *Store) Contains(key model.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

// Add remembers key.
func (s *Store) Add(key model.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key] = struct{}{}
	if s.retention <= 0 {
		return
	}
	now := s.now()
	if now.Sub(s.lastSweep) < s.sweepEvery {
		return
	}
	s.sweep(now)
}

// Len returns the number of remembered keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Evicted returns how many keys have been dropped by retention so far.
func (s *Store) Evicted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

func (s *Store) sweep(now time.Time) {
	cutoff := now.Add(-s.retention)
	for k := range s.keys {
		if k.EventTime().Before(cutoff) {
			delete(s.keys, k)
			s.evicted++
		}
	}
	s.lastSweep = now
}
