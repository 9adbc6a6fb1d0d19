package session

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps sessions in an in-process map, ideal for local development or tests.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]Session
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]Session)}
}

// Save stores the session, replacing any record with the same token hash.
func (s *InMemoryStore) Save(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[sess.TokenHash] = sess
	return nil
}

// Get returns the session for the token hash, or nil when absent or expired.
func (s *InMemoryStore) Get(_ context.Context, tokenHash string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[tokenHash]
	if !ok || time.Now().After(sess.ExpiresAt) {
		return nil, nil
	}
	return &sess, nil
}

// Delete removes the session for the token hash.
func (s *InMemoryStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, tokenHash)
	return nil
}

// DeleteExpired removes all expired sessions and reports how many were evicted.
func (s *InMemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed int64
	for hash, sess := range s.data {
		if now.After(sess.ExpiresAt) {
			delete(s.data, hash)
			removed++
		}
	}
	return removed, nil
}
