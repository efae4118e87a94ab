// Package ratelimit provides fixed-window request limiting for the public
// endpoints, backed by Redis when configured with an in-memory fallback.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result reports the outcome of one limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Store counts requests per key inside a fixed window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

type memoryWindow struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a process-local fixed-window counter. It serves as the
// fallback when Redis is unavailable, so limits are per instance there.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*memoryWindow)}
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}

	w.count++
	res := Result{
		Allowed:   w.count <= limit,
		Limit:     limit,
		Remaining: max(limit-w.count, 0),
	}
	if !res.Allowed {
		res.RetryAfter = time.Until(w.resetAt)
	}

	// Opportunistic cleanup keeps the map bounded without a sweeper.
	if len(s.windows) > 10000 {
		for k, win := range s.windows {
			if now.After(win.resetAt) {
				delete(s.windows, k)
			}
		}
	}
	return res, nil
}
