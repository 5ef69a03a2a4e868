package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// ErrSynthesisFailed wraps any Polly-side failure.
var ErrSynthesisFailed = errors.New("failed to convert text to audio")

// Fixed synthesis parameters. The service always speaks with the same
// voice in the same format.
const (
	engine       = types.EngineStandard
	languageCode = types.LanguageCodeEnUs
	outputFormat = types.OutputFormatMp3
	voiceID      = types.VoiceIdRaveena
)

// Config contains speech synthesis configuration
type Config struct {
	Region  string        // AWS region override; empty uses the SDK default chain
	Timeout time.Duration // per-request limit; 0 disables the deadline
}

// Client synthesizes speech through AWS Polly.
type Client struct {
	api     *polly.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a Polly-backed synthesis client. Credentials and region
// come from the standard AWS environment/config chain unless overridden.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &Client{
		api:     polly.NewFromConfig(awsCfg),
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Synthesize converts text to MP3 audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()

	out, err := c.api.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       engine,
		LanguageCode: languageCode,
		OutputFormat: outputFormat,
		Text:         aws.String(text),
		VoiceId:      voiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer out.AudioStream.Close()

	data, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio stream: %v", ErrSynthesisFailed, err)
	}

	c.logger.Debug("Speech synthesized",
		slog.Int("text_length", len(text)),
		slog.Int("audio_bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return data, nil
}
