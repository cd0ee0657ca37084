package session

import (
	"context"
	"sync"
)

// MemoryTokenStore keeps the token in-process. It satisfies the TokenStore
// contract for tests and ephemeral runs; it is not durable across restarts.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

// NewMemoryTokenStore will create a new MemoryTokenStore
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Get(_ context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set || s.token == "" {
		return "", false
	}
	return s.token, true
}

func (s *MemoryTokenStore) Set(_ context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = token != ""
}

func (s *MemoryTokenStore) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.set = false
}
