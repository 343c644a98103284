package token

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-memory value.
// Thread-safe for concurrent access. For tests and ephemeral sessions.
type MemoryStore struct {
	mu  sync.RWMutex
	tok string
	set bool
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the stored token or ErrNoToken.
func (s *MemoryStore) Get(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return "", ErrNoToken
	}
	return s.tok, nil
}

// Set stores the token.
func (s *MemoryStore) Set(_ context.Context, tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = tok
	s.set = true
	return nil
}

// Clear removes the stored token.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = ""
	s.set = false
	return nil
}
