package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrAIResponseFailed wraps any completion-engine failure.
var ErrAIResponseFailed = errors.New("failed to get AI response")

// DefaultSessionID is used when the caller supplies no session identifier.
// All such callers share one transcript.
const DefaultSessionID = "default"

// Completer produces a single assistant reply from an ordered turn
// sequence.
type Completer interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
}

// Searcher returns a formatted block of recent web results for a query.
// ok is false when nothing useful was found; a Searcher never errors.
type Searcher interface {
	Search(ctx context.Context, query string) (block string, ok bool)
}

// Engine generates replies while maintaining per-session transcripts.
// Sessions are keyed by caller-supplied identifiers and created lazily;
// each owns an independent locked transcript, so concurrent requests for
// different sessions never interleave.
type Engine struct {
	completer    Completer
	searcher     Searcher // nil disables search augmentation
	systemPrompt string
	logger       *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewEngine creates a conversation engine. searcher may be nil, in which
// case replies are generated from the transcript alone.
func NewEngine(completer Completer, searcher Searcher, systemPrompt string, logger *slog.Logger) *Engine {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Engine{
		completer:    completer,
		searcher:     searcher,
		systemPrompt: systemPrompt,
		logger:       logger,
		sessions:     make(map[string]*Session),
	}
}

// session returns the session for id, creating it on first use.
func (e *Engine) session(id string) *Session {
	if id == "" {
		id = DefaultSessionID
	}

	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if ok {
		return sess
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if sess, ok = e.sessions[id]; ok {
		return sess
	}
	sess = NewSession(e.systemPrompt)
	e.sessions[id] = sess
	return sess
}

// Respond appends userText as a user turn, runs one completion over the
// accumulated transcript, appends the reply as an assistant turn, and
// returns it.
//
// Search context is transient: when the searcher finds recent results they
// are passed to the completion call as a trailing system message but never
// stored in the transcript, so stale search blocks cannot accumulate
// across the session.
//
// On completion failure the already-appended user turn is NOT rolled back.
// A retry of the same request therefore sees the earlier attempt's user
// message in history.
func (e *Engine) Respond(ctx context.Context, sessionID, userText string) (string, error) {
	sess := e.session(sessionID)

	sess.Append(Turn{Role: RoleUser, Content: userText})

	turns := sess.Snapshot()

	if e.searcher != nil {
		if block, ok := e.searcher.Search(ctx, userText); ok {
			turns = append(turns, Turn{
				Role:    RoleSystem,
				Content: fmt.Sprintf("Here are relevant search results for the query:\n%s", block),
			})
			e.logger.Debug("Search context injected",
				slog.String("session_id", sessionID),
				slog.Int("block_length", len(block)),
			)
		}
	}

	reply, err := e.completer.Complete(ctx, turns)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIResponseFailed, err)
	}

	sess.Append(Turn{Role: RoleAssistant, Content: reply})

	e.logger.Debug("Conversation turn completed",
		slog.String("session_id", sessionID),
		slog.Int("history_length", sess.Len()),
	)

	return reply, nil
}

// ClearHistory resets the session's transcript to the single seed system
// turn. Clearing an unknown session is a no-op.
func (e *Engine) ClearHistory(sessionID string) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	e.mu.RLock()
	sess, ok := e.sessions[sessionID]
	e.mu.RUnlock()
	if !ok {
		return
	}
	sess.Clear()
}

// History returns a copy of the session's ordered transcript. An unknown
// session yields just the seed turn it would start with.
func (e *Engine) History(sessionID string) []Turn {
	return e.session(sessionID).Snapshot()
}

// ActiveSessions returns the number of sessions created so far.
func (e *Engine) ActiveSessions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}
