package core

import (
	"fmt"
	"sync"
	"time"
)

// SessionKey identifies a session by the (application, user, session) triple.
type SessionKey struct {
	AppID     string `json:"app_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// String renders the key in app/user/session form, usable as a map key or
// log field.
func (k SessionKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.AppID, k.UserID, k.SessionID)
}

// Session is a process-lifetime conversational container exclusively owning
// one transcript. It is safe for concurrent access, though the orchestration
// layer guarantees a single writer per session at any time.
//
// Contract:
//   - The transcript is append-only and monotonic; committed turns are
//     never edited or removed
//   - Transcript returns a defensive copy to avoid external mutation
//   - Clone performs a deep copy for safe divergence
type Session struct {
	Key        SessionKey `json:"key"`
	Transcript []Turn     `json:"transcript"`
	Created    time.Time  `json:"created"`
	Updated    time.Time  `json:"updated"`
	mu         sync.RWMutex
}

// NewSession creates an empty session for the given key.
func NewSession(key SessionKey) *Session {
	now := time.Now()
	return &Session{Key: key, Transcript: []Turn{}, Created: now, Updated: now}
}

// AddTurn appends a turn to the transcript updating the Updated timestamp.
func (s *Session) AddTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Transcript = append(s.Transcript, t)
	s.Updated = time.Now()
}

// Turns returns a defensive copy of the full transcript.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]Turn, len(s.Transcript))
	copy(turns, s.Transcript)
	return turns
}

// Len returns the current transcript length.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Transcript)
}

// Conversation returns the transcript filtered to conversational roles,
// suitable as model context.
func (s *Session) Conversation() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := map[string]bool{RoleUser: true, RoleAssistant: true, RoleTool: true}
	res := make([]Turn, 0, len(s.Transcript))
	for _, t := range s.Transcript {
		if !allowed[t.Content.Role] {
			continue
		}
		res = append(res, t)
	}
	return res
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{Key: s.Key, Transcript: make([]Turn, len(s.Transcript)), Created: s.Created, Updated: s.Updated}
	copy(clone.Transcript, s.Transcript)
	return clone
}

// SessionStore persists sessions and their transcripts for the lifetime of
// the process. Sessions must be created explicitly before first use; Get on
// an unknown key is an error, not a lazy create, and Create on an existing
// key is an error, not an overwrite.
type SessionStore interface {
	Create(key SessionKey) (*Session, error)
	Get(key SessionKey) (*Session, error)
	AppendTurn(key SessionKey, t Turn) error
}
