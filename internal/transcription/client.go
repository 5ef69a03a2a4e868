package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrTranscriptionFailed wraps any engine-side failure (auth, quota,
// malformed audio). The underlying error is surfaced verbatim and not
// classified further.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Model is the fixed speech-to-text model identifier.
const Model = openai.AudioModelWhisper1

// Config contains transcription client configuration
type Config struct {
	APIKey        string
	OrgID         string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
}

// Client submits whole audio files to the Whisper API. No chunking or
// streaming: the clip is sent in one request.
type Client struct {
	api       openai.Client
	semaphore chan struct{}
	logger    *slog.Logger
}

// NewClient creates a Whisper-backed transcription client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.OrgID != "" {
		opts = append(opts, option.WithOrganization(cfg.OrgID))
	}

	return &Client{
		api:       openai.NewClient(opts...),
		semaphore: make(chan struct{}, cfg.MaxConcurrent),
		logger:    logger,
	}, nil
}

// Transcribe opens the audio file at path and returns its plain-text
// transcript. Concurrent calls are capped by the client's semaphore.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open audio file: %v", ErrTranscriptionFailed, err)
	}
	defer file.Close()

	start := time.Now()

	resp, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: Model,
		File:  file,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	c.logger.Debug("Audio transcribed",
		slog.String("path", path),
		slog.Int("transcript_length", len(resp.Text)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return resp.Text, nil
}
