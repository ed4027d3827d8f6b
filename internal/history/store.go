// Package history stores ordered prior turns per session. The pipeline
// consumes it read-only; only the HTTP surface appends.
package history

import (
	"strings"
	"sync"

	"compforge/internal/llmclient"
)

// Reader is the pipeline's view of a session's prior turns.
type Reader interface {
	Turns(sessionID string) []llmclient.Turn
}

// MemoryStore keeps per-session turn logs in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]llmclient.Turn
	maxTurns int
}

// NewMemoryStore creates a store that retains at most maxTurns turns per
// session (0 means unlimited).
func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]llmclient.Turn),
		maxTurns: maxTurns,
	}
}

// Append records a turn at the end of the session's log.
func (s *MemoryStore) Append(sessionID string, turn llmclient.Turn) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.sessions[sessionID], turn)
	if s.maxTurns > 0 && len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.sessions[sessionID] = turns
}

// Turns returns a copy of the session's ordered turns, oldest first.
// Unknown sessions yield nil.
func (s *MemoryStore) Turns(sessionID string) []llmclient.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return nil
	}
	return append([]llmclient.Turn(nil), turns...)
}
