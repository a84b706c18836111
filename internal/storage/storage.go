// Package storage keeps live review sessions in memory and optionally
// persists their snapshots to SQLite.
package storage

import (
	"sync"

	"github.com/lehigh-university-libraries/manuscript/internal/review"
)

type SessionStore struct {
	sessions map[string]*review.Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*review.Session),
	}
}

func (s *SessionStore) Get(sessionID string) (*review.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *review.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

func (s *SessionStore) GetAll() map[string]*review.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*review.Session, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
