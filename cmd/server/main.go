package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omarzubair3093/voice-assistant/internal/assistant"
	"github.com/omarzubair3093/voice-assistant/internal/config"
	"github.com/omarzubair3093/voice-assistant/internal/conversation"
	"github.com/omarzubair3093/voice-assistant/internal/metrics"
	"github.com/omarzubair3093/voice-assistant/internal/scratch"
	"github.com/omarzubair3093/voice-assistant/internal/search"
	"github.com/omarzubair3093/voice-assistant/internal/server"
	"github.com/omarzubair3093/voice-assistant/internal/synthesis"
	"github.com/omarzubair3093/voice-assistant/internal/transcode"
	"github.com/omarzubair3093/voice-assistant/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voice-assistant"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration; missing OpenAI credentials fail here, before any
	// adapter is constructed
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		slog.String("chat_model", cfg.Conversation.Model),
		slog.Bool("search_enabled", cfg.Search.Enabled()),
		slog.Int("scratch_max_age", cfg.Scratch.MaxAge),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Scratch file store plus optional retention sweeper
	scratchCfg := scratch.Config{
		Dir:           cfg.Scratch.Dir,
		MaxAge:        cfg.Scratch.GetMaxAgeDuration(),
		SweepInterval: cfg.Scratch.GetSweepIntervalDuration(),
	}
	store := scratch.NewStore(scratchCfg, logger)
	if _, err := store.EnsureDir(); err != nil {
		logger.Error("Failed to create scratch directory", slog.String("error", err.Error()))
		os.Exit(1)
	}
	go store.RunSweeper(ctx, scratchCfg)
	logger.Info("Scratch store initialized", slog.String("dir", store.Dir()))

	// Transcoder; resolve ffmpeg eagerly so a missing tool is reported at
	// startup rather than on the first request
	transcoder := transcode.NewTranscoder(transcode.Config{
		FFmpegPath: cfg.Transcode.FFmpegPath,
		Timeout:    cfg.Transcode.GetTimeoutDuration(),
	}, logger)
	if ffmpegPath, err := transcode.ResolveFFmpeg(cfg.Transcode.FFmpegPath); err != nil {
		logger.Warn("ffmpeg not found at startup; audio requests will fail until it is installed",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("Transcoder initialized", slog.String("ffmpeg", ffmpegPath))
	}

	// Whisper transcription client
	transcriber, err := transcription.NewClient(transcription.Config{
		APIKey:        cfg.OpenAI.APIKey,
		OrgID:         cfg.OpenAI.OrgID,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	}, logger)
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Transcription client initialized")

	// Optional search augmentation
	var searcher conversation.Searcher
	if cfg.Search.Enabled() {
		googleSearcher, err := search.NewGoogleSearcher(ctx, search.Config{
			APIKey:  cfg.Search.APIKey,
			CSEID:   cfg.Search.CSEID,
			Timeout: cfg.Search.GetTimeoutDuration(),
		}, logger)
		if err != nil {
			logger.Error("Failed to create search client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		searcher = &instrumentedSearcher{inner: googleSearcher, metrics: appMetrics}
		logger.Info("Search client initialized")
	} else {
		logger.Info("Search augmentation disabled (no credentials configured)")
	}

	// Conversation engine backed by OpenAI chat completions
	completer, err := conversation.NewOpenAICompleter(conversation.CompleterConfig{
		APIKey:      cfg.OpenAI.APIKey,
		OrgID:       cfg.OpenAI.OrgID,
		Model:       cfg.Conversation.Model,
		Temperature: cfg.Conversation.Temperature,
		MaxTokens:   cfg.Conversation.MaxTokens,
		Timeout:     cfg.Conversation.GetTimeoutDuration(),
		MaxRetries:  cfg.Conversation.MaxRetries,
	}, logger)
	if err != nil {
		logger.Error("Failed to create completion client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	engine := conversation.NewEngine(completer, searcher, cfg.Conversation.SystemPrompt, logger)
	logger.Info("Conversation engine initialized")

	// Polly synthesis client
	synthesizer, err := synthesis.NewClient(ctx, synthesis.Config{
		Region:  cfg.Synthesis.Region,
		Timeout: cfg.Synthesis.GetTimeoutDuration(),
	}, logger)
	if err != nil {
		logger.Error("Failed to create synthesis client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Synthesis client initialized")

	// Assemble the pipeline
	pipeline := assistant.NewPipeline(store, transcoder, transcriber, engine, synthesizer, logger, appMetrics)
	logger.Info("Pipeline assembled")

	// Start HTTP server
	httpServer := server.NewHTTPServer(cfg, logger, pipeline, engine, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop the scratch sweeper
	cancel()

	logger.Info("Service stopped",
		slog.Int("active_sessions", engine.ActiveSessions()),
	)
}

// instrumentedSearcher counts search hits and misses around the real
// searcher.
type instrumentedSearcher struct {
	inner   conversation.Searcher
	metrics *metrics.Metrics
}

func (s *instrumentedSearcher) Search(ctx context.Context, query string) (string, bool) {
	block, ok := s.inner.Search(ctx, query)
	s.metrics.RecordSearch(ok)
	return block, ok
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
