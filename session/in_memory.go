// Package session provides the in-memory SessionStore implementation used
// for process-lifetime conversational state.
package session

import (
	"fmt"
	"sync"

	"github.com/voxelbird/scenesmith/core"
)

// InMemoryStore is a volatile SessionStore implementation storing sessions
// in a process local map keyed by the (app, user, session) triple. It is
// safe for concurrent access. Each returned session is cloned to prevent
// external mutation of internal state.
//
// Sessions must be created explicitly through Create before first use; Get
// on an unknown key is an error rather than a lazy create.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[core.SessionKey]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[core.SessionKey]*core.Session)}
}

// Create allocates a fresh session for the given key. Creating a key that
// already exists is an error; an established transcript is never silently
// replaced.
func (s *InMemoryStore) Create(key core.SessionKey) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; ok {
		return nil, fmt.Errorf("session %s already exists", key)
	}
	sess := core.NewSession(key)
	s.sessions[key] = sess
	return sess.Clone(), nil
}

// Get returns a clone of an existing session.
func (s *InMemoryStore) Get(key core.SessionKey) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key]
	if !ok {
		return nil, fmt.Errorf("session %s not found", key)
	}
	return sess.Clone(), nil
}

// AppendTurn commits a turn to an existing session's transcript.
func (s *InMemoryStore) AppendTurn(key core.SessionKey, t core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return fmt.Errorf("session %s not found", key)
	}
	sess.AddTurn(t)
	return nil
}
