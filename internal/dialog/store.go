// Package dialog keeps the rolling per-user conversation history that is
// replayed to the language model on every call.
package dialog

import "sync"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one recorded message. Immutable once appended.
type Turn struct {
	Role    Role
	Content string
}

const DefaultLimit = 10

// Store holds per-user histories capped at a fixed number of turns; the
// oldest turns are evicted first. Sessions are created lazily and never
// expire on their own.
type Store struct {
	mu       sync.RWMutex
	limit    int
	sessions map[string][]Turn
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		limit:    limit,
		sessions: make(map[string][]Turn),
	}
}

// Append records a turn and enforces the cap by truncating from the front.
func (s *Store) Append(userID string, role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.sessions[userID], Turn{Role: role, Content: content})
	if len(turns) > s.limit {
		turns = turns[len(turns)-s.limit:]
	}
	s.sessions[userID] = turns
}

// Context returns the user's turns in chronological order. The returned slice
// is a copy.
func (s *Store) Context(userID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[userID]
	if len(turns) == 0 {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Clear removes the user's session entirely and reports whether one existed,
// so the caller can tell "cleared" apart from "nothing to clear".
func (s *Store) Clear(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; !ok {
		return false
	}
	delete(s.sessions, userID)
	return true
}
