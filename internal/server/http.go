package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omarzubair3093/voice-assistant/internal/config"
	"github.com/omarzubair3093/voice-assistant/internal/conversation"
	"github.com/omarzubair3093/voice-assistant/internal/metrics"
)

const (
	serviceName    = "voice-assistant"
	serviceVersion = "1.0.0"

	// sessionHeader carries the caller's session identifier. Requests
	// without it share the default session.
	sessionHeader = "X-Session-ID"

	maxUploadBytes = 32 << 20 // 32 MiB
)

// AudioProcessor runs one uploaded clip through the assistant pipeline.
type AudioProcessor interface {
	ProcessUserAudio(ctx context.Context, sessionID string, rawAudio []byte) (string, error)
}

// HTTPServer provides the inbound HTTP API.
type HTTPServer struct {
	server    *http.Server
	logger    *slog.Logger
	config    *config.Config
	pipeline  AudioProcessor
	engine    *conversation.Engine
	metrics   *metrics.Metrics
	startTime time.Time
}

// NewHTTPServer creates the HTTP API server.
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, pipeline AudioProcessor,
	engine *conversation.Engine, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		pipeline:  pipeline,
		engine:    engine,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Minute, // uploads plus four external calls take a while
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Voice assistant endpoints
	mux.HandleFunc("/voice-assistant/audio-message", h.withMetrics("/voice-assistant/audio-message", h.handleAudioMessage))
	mux.HandleFunc("/voice-assistant/history", h.withMetrics("/voice-assistant/history", h.handleHistory))
	mux.HandleFunc("/voice-assistant/history/clear", h.withMetrics("/voice-assistant/history/clear", h.handleHistoryClear))

	// Monitoring endpoints
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleAudioMessage implements POST /voice-assistant/audio-message. It
// accepts a multipart upload (field "file"), runs the pipeline, and streams
// the synthesized reply back as MPEG audio. Any escaping pipeline error
// becomes a 500 with the error message; no error-code taxonomy is exposed.
func (h *HTTPServer) handleAudioMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("missing file upload: %s", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %s", err))
		return
	}

	sessionID := r.Header.Get(sessionHeader)

	h.logger.Info("Received audio file",
		slog.String("filename", header.Filename),
		slog.String("content_type", header.Header.Get("Content-Type")),
		slog.Int("size_bytes", len(data)),
		slog.String("session_id", sessionID),
	)

	replyPath, err := h.pipeline.ProcessUserAudio(r.Context(), sessionID, data)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing audio: %s", err))
		return
	}

	replyFile, err := os.Open(replyPath)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error opening reply audio: %s", err))
		return
	}
	defer replyFile.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `attachment; filename="ai_output.mp3"`)
	if _, err := io.Copy(w, replyFile); err != nil {
		h.logger.Warn("Failed to stream reply audio", slog.String("error", err.Error()))
	}
}

// handleHistory implements GET /voice-assistant/history
func (h *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	turns := h.engine.History(sessionID)

	response := map[string]interface{}{
		"session_id": sessionID,
		"length":     len(turns),
		"turns":      turns,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleHistoryClear implements POST /voice-assistant/history/clear
func (h *HTTPServer) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	h.engine.ClearHistory(sessionID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"components": map[string]interface{}{
			"conversation": map[string]interface{}{
				"status":          "running",
				"active_sessions": h.engine.ActiveSessions(),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Sanitized configuration: credentials are intentionally omitted
	sanitizedConfig := map[string]interface{}{
		"http": map[string]interface{}{
			"address": h.config.HTTP.Address,
			"port":    h.config.HTTP.Port,
		},
		"transcription": map[string]interface{}{
			"timeout":        h.config.Transcription.Timeout,
			"max_retries":    h.config.Transcription.MaxRetries,
			"max_concurrent": h.config.Transcription.MaxConcurrent,
		},
		"conversation": map[string]interface{}{
			"model":       h.config.Conversation.Model,
			"temperature": h.config.Conversation.Temperature,
			"max_tokens":  h.config.Conversation.MaxTokens,
			"timeout":     h.config.Conversation.Timeout,
		},
		"search": map[string]interface{}{
			"enabled": h.config.Search.Enabled(),
			"timeout": h.config.Search.Timeout,
		},
		"synthesis": map[string]interface{}{
			"region":  h.config.Synthesis.Region,
			"timeout": h.config.Synthesis.Timeout,
		},
		"transcode": map[string]interface{}{
			"ffmpeg_path": h.config.Transcode.FFmpegPath,
			"timeout":     h.config.Transcode.Timeout,
		},
		"scratch": map[string]interface{}{
			"dir":            h.config.Scratch.Dir,
			"max_age":        h.config.Scratch.MaxAge,
			"sweep_interval": h.config.Scratch.SweepInterval,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	activeSessions := h.engine.ActiveSessions()
	h.metrics.SetActiveSessions(activeSessions)

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"conversation": map[string]interface{}{
			"active_sessions": activeSessions,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Voice Assistant Service",
		"version": serviceVersion,
		"endpoints": map[string]interface{}{
			"POST /voice-assistant/audio-message":  "Upload an audio clip, receive a spoken reply (multipart field 'file')",
			"GET /voice-assistant/history":         "Get the conversation transcript",
			"POST /voice-assistant/history/clear":  "Reset the conversation to its seed prompt",
			"GET /health":                          "Service health check",
			"GET /config":                          "Get sanitized service configuration",
			"GET /stats":                           "Get service statistics",
			"GET /metrics":                         "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}

// writeError sends a structured JSON error response.
func (h *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
