package social

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

const stateTTL = 10 * time.Minute

// StateStore issues single-use OAuth state values.
type StateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
}

func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[string]time.Time),
		ttl:    stateTTL,
	}
}

func (s *StateStore) Issue() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(s.ttl)

	return state, nil
}

// Consume reports whether state was issued and unexpired, and forgets it.
func (s *StateStore) Consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return time.Now().Before(exp)
}
