package conversation

import "sync"

// Session holds one independent conversation transcript. The first turn is
// always the seed system turn; Clear resets back to exactly that turn.
// All methods are safe for concurrent use.
type Session struct {
	mu    sync.Mutex
	seed  Turn
	turns []Turn
}

// NewSession creates a session seeded with a single system turn.
func NewSession(systemPrompt string) *Session {
	seed := Turn{Role: RoleSystem, Content: systemPrompt}
	return &Session{
		seed:  seed,
		turns: []Turn{seed},
	}
}

// Append adds a turn to the end of the transcript.
func (s *Session) Append(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
}

// Snapshot returns a copy of the transcript in chronological order.
func (s *Session) Snapshot() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]Turn, len(s.turns))
	copy(turns, s.turns)
	return turns
}

// Clear resets the transcript to the single seed system turn.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = []Turn{s.seed}
}

// Len returns the current number of turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}
