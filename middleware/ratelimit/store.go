package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

type Store interface {
	Allow(key string) Decision
	Reset(key string)
}

// MemoryStore keeps one token bucket per key: burst of Rate, refilled evenly
// over Period.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]*entry
	limit    int
	interval time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryStore(limit int, period time.Duration) *MemoryStore {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}
	return &MemoryStore{
		data:     make(map[string]*entry),
		limit:    limit,
		interval: period / time.Duration(limit),
	}
}

func (s *MemoryStore) Allow(key string) Decision {
	now := time.Now()

	s.mu.Lock()
	e, ok := s.data[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(s.interval), s.limit)}
		s.data[key] = e
	}
	e.lastSeen = now
	s.mu.Unlock()

	allowed := e.limiter.AllowN(now, 1)
	tokens := e.limiter.TokensAt(now)
	if tokens < 0 {
		tokens = 0
	}

	missing := float64(s.limit) - tokens
	return Decision{
		Allowed:   allowed,
		Limit:     s.limit,
		Remaining: int(tokens),
		Reset:     now.Add(time.Duration(missing * float64(s.interval))),
	}
}

func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Sweep drops buckets idle for longer than idle; a full bucket carries no
// state worth keeping.
func (s *MemoryStore) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	removed := 0
	for key, e := range s.data {
		if e.lastSeen.Before(cutoff) {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) runSweeper(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(idle)
		}
	}
}
