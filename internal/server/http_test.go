package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/omarzubair3093/voice-assistant/internal/config"
	"github.com/omarzubair3093/voice-assistant/internal/conversation"
	"github.com/omarzubair3093/voice-assistant/internal/metrics"
)

// Registered once; promauto metrics cannot be registered twice per process.
var testMetrics = metrics.NewMetrics()

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubCompleter struct{ reply string }

func (s *stubCompleter) Complete(_ context.Context, _ []conversation.Turn) (string, error) {
	return s.reply, nil
}

type stubProcessor struct {
	replyPath string
	err       error
	gotBytes  []byte
	gotSessID string
}

func (s *stubProcessor) ProcessUserAudio(_ context.Context, sessionID string, rawAudio []byte) (string, error) {
	s.gotSessID = sessionID
	s.gotBytes = rawAudio
	if s.err != nil {
		return "", s.err
	}
	return s.replyPath, nil
}

func newTestServer(t *testing.T, processor AudioProcessor) *HTTPServer {
	t.Helper()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{Address: "127.0.0.1", Port: 0},
	}
	engine := conversation.NewEngine(&stubCompleter{reply: "ok"}, nil, "seed", testLogger())
	return NewHTTPServer(cfg, testLogger(), processor, engine, testMetrics)
}

func uploadRequest(t *testing.T, payload []byte, sessionID string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "clip.wav")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/voice-assistant/audio-message", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	return req
}

func TestAudioMessageSuccess(t *testing.T) {
	replyAudio := []byte("ID3...mp3bytes")
	replyPath := filepath.Join(t.TempDir(), "reply.mp3")
	if err := os.WriteFile(replyPath, replyAudio, 0o644); err != nil {
		t.Fatalf("writing reply file: %v", err)
	}

	processor := &stubProcessor{replyPath: replyPath}
	h := newTestServer(t, processor)

	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, uploadRequest(t, []byte("wav-bytes"), "sess-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %s", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), replyAudio) {
		t.Errorf("response body mismatch: %q", rec.Body.Bytes())
	}
	if processor.gotSessID != "sess-1" {
		t.Errorf("session ID not forwarded: %q", processor.gotSessID)
	}
	if !bytes.Equal(processor.gotBytes, []byte("wav-bytes")) {
		t.Errorf("uploaded bytes not forwarded: %q", processor.gotBytes)
	}
}

func TestAudioMessagePipelineError(t *testing.T) {
	processor := &stubProcessor{err: fmt.Errorf("stage transcribe: transcription failed: bad audio")}
	h := newTestServer(t, processor)

	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, uploadRequest(t, []byte("wav-bytes"), ""))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error response is not JSON: %v", err)
	}
	if !strings.Contains(resp["error"], "stage transcribe") {
		t.Errorf("error message missing stage context: %q", resp["error"])
	}
}

func TestAudioMessageMissingFile(t *testing.T) {
	h := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodPost, "/voice-assistant/audio-message", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAudioMessageMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/voice-assistant/audio-message", nil)
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	h := newTestServer(t, &stubProcessor{})

	// Fresh session history holds only the seed turn.
	req := httptest.NewRequest(http.MethodGet, "/voice-assistant/history", nil)
	req.Header.Set(sessionHeader, "hist-test")
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Length int                 `json:"length"`
		Turns  []conversation.Turn `json:"turns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("history response is not JSON: %v", err)
	}
	if resp.Length != 1 || resp.Turns[0].Role != conversation.RoleSystem {
		t.Errorf("unexpected fresh history: %+v", resp)
	}

	// Clear succeeds even on a fresh session.
	clearReq := httptest.NewRequest(http.MethodPost, "/voice-assistant/history/clear", nil)
	clearReq.Header.Set(sessionHeader, "hist-test")
	clearRec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(clearRec, clearReq)

	if clearRec.Code != http.StatusOK {
		t.Errorf("expected 200 from clear, got %d", clearRec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("health response is not JSON: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("unexpected health status: %v", health["status"])
	}
}

func TestConfigEndpointOmitsCredentials(t *testing.T) {
	processor := &stubProcessor{}
	cfg := &config.Config{
		HTTP:   config.HTTPConfig{Address: "127.0.0.1", Port: 0},
		OpenAI: config.OpenAIConfig{APIKey: "sk-secret", OrgID: "org-secret"},
		Search: config.SearchConfig{APIKey: "google-secret", CSEID: "cse-id"},
	}
	engine := conversation.NewEngine(&stubCompleter{reply: "ok"}, nil, "seed", testLogger())
	h := NewHTTPServer(cfg, testLogger(), processor, engine, testMetrics)

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, "sk-secret") || strings.Contains(body, "google-secret") {
		t.Errorf("config endpoint leaked credentials: %s", body)
	}
}
