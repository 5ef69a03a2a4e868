package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubCompleter records the turn sequences it receives and returns canned
// replies or an error.
type stubCompleter struct {
	reply string
	err   error
	calls [][]Turn
}

func (s *stubCompleter) Complete(_ context.Context, turns []Turn) (string, error) {
	snapshot := make([]Turn, len(turns))
	copy(snapshot, turns)
	s.calls = append(s.calls, snapshot)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubSearcher struct {
	block string
	ok    bool
	calls int
}

func (s *stubSearcher) Search(_ context.Context, _ string) (string, bool) {
	s.calls++
	return s.block, s.ok
}

func TestRespondAppendsTurns(t *testing.T) {
	completer := &stubCompleter{reply: "hi there"}
	engine := NewEngine(completer, nil, "seed prompt", testLogger())

	reply, err := engine.Respond(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if reply != "hi there" {
		t.Errorf("expected reply 'hi there', got %q", reply)
	}

	history := engine.History("")
	want := []Turn{
		{Role: RoleSystem, Content: "seed prompt"},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi there"},
	}
	if len(history) != len(want) {
		t.Fatalf("expected %d turns, got %d: %+v", len(want), len(history), history)
	}
	for i, turn := range want {
		if history[i] != turn {
			t.Errorf("turn %d: expected %+v, got %+v", i, turn, history[i])
		}
	}
}

func TestSearchContextIsTransient(t *testing.T) {
	completer := &stubCompleter{reply: "according to the results, 42"}
	searcher := &stubSearcher{block: "Source: Example\nDetails: 42 votes\n", ok: true}
	engine := NewEngine(completer, searcher, "", testLogger())

	if _, err := engine.Respond(context.Background(), "", "what happened"); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	if searcher.calls != 1 {
		t.Fatalf("expected one search call, got %d", searcher.calls)
	}

	// The completion call must have seen the search block as a trailing
	// system message.
	if len(completer.calls) != 1 {
		t.Fatalf("expected one completion call, got %d", len(completer.calls))
	}
	sent := completer.calls[0]
	last := sent[len(sent)-1]
	if last.Role != RoleSystem || !strings.Contains(last.Content, "Source: Example") {
		t.Errorf("search context not injected into completion call: %+v", last)
	}

	// The stored transcript must not retain the search block.
	for _, turn := range engine.History("") {
		if strings.Contains(turn.Content, "Source: Example") {
			t.Errorf("search context leaked into stored transcript: %+v", turn)
		}
	}
}

func TestSearchAbsentSkipsInjection(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	searcher := &stubSearcher{ok: false}
	engine := NewEngine(completer, searcher, "", testLogger())

	if _, err := engine.Respond(context.Background(), "", "hello"); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	sent := completer.calls[0]
	// seed + user only
	if len(sent) != 2 {
		t.Errorf("expected 2 turns sent to completer, got %d: %+v", len(sent), sent)
	}
}

func TestRespondFailureLeavesUserTurn(t *testing.T) {
	completer := &stubCompleter{err: fmt.Errorf("rate limited")}
	engine := NewEngine(completer, nil, "", testLogger())

	_, err := engine.Respond(context.Background(), "", "hello")
	if !errors.Is(err, ErrAIResponseFailed) {
		t.Fatalf("expected ErrAIResponseFailed, got %v", err)
	}

	history := engine.History("")
	if len(history) != 2 {
		t.Fatalf("expected seed + user turn, got %d turns: %+v", len(history), history)
	}
	if history[1].Role != RoleUser || history[1].Content != "hello" {
		t.Errorf("user turn missing after failure: %+v", history[1])
	}
	for _, turn := range history {
		if turn.Role == RoleAssistant {
			t.Errorf("unexpected assistant turn after failure: %+v", turn)
		}
	}
}

func TestClearHistoryLeavesSeedOnly(t *testing.T) {
	completer := &stubCompleter{reply: "reply"}
	engine := NewEngine(completer, nil, "seed prompt", testLogger())

	for i := 0; i < 5; i++ {
		if _, err := engine.Respond(context.Background(), "s1", fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("Respond failed: %v", err)
		}
	}

	engine.ClearHistory("s1")

	history := engine.History("s1")
	if len(history) != 1 {
		t.Fatalf("expected exactly one turn after clear, got %d", len(history))
	}
	if history[0].Role != RoleSystem || history[0].Content != "seed prompt" {
		t.Errorf("remaining turn is not the seed: %+v", history[0])
	}
}

func TestClearUnknownSessionIsNoop(t *testing.T) {
	engine := NewEngine(&stubCompleter{}, nil, "", testLogger())
	engine.ClearHistory("never-seen")

	if engine.ActiveSessions() != 0 {
		t.Errorf("clear of unknown session created a session")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	engine := NewEngine(completer, nil, "", testLogger())

	if _, err := engine.Respond(context.Background(), "alice", "from alice"); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if _, err := engine.Respond(context.Background(), "bob", "from bob"); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	for _, turn := range engine.History("alice") {
		if strings.Contains(turn.Content, "from bob") {
			t.Errorf("bob's turn leaked into alice's session: %+v", turn)
		}
	}

	if engine.ActiveSessions() != 2 {
		t.Errorf("expected 2 sessions, got %d", engine.ActiveSessions())
	}
}

func TestEmptySessionIDUsesDefault(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	engine := NewEngine(completer, nil, "", testLogger())

	if _, err := engine.Respond(context.Background(), "", "hello"); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	history := engine.History(DefaultSessionID)
	if len(history) != 3 {
		t.Errorf("empty session ID did not map to default session: %d turns", len(history))
	}
}

func TestDefaultSystemPromptApplied(t *testing.T) {
	engine := NewEngine(&stubCompleter{reply: "ok"}, nil, "", testLogger())

	history := engine.History("fresh")
	if len(history) != 1 || history[0].Content != DefaultSystemPrompt {
		t.Errorf("fresh session not seeded with default prompt")
	}
}
