package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrFFmpegNotFound indicates that no ffmpeg executable could be resolved
// from the configured override, PATH, or the known fallback locations.
var ErrFFmpegNotFound = errors.New("ffmpeg not found")

// fallbackLocations are checked after PATH. Homebrew installs land here on
// macOS; Linux package managers put ffmpeg on PATH already.
var fallbackLocations = []string{
	"/opt/homebrew/bin/ffmpeg",
	"/usr/local/bin/ffmpeg",
}

// ConversionError reports a non-zero ffmpeg exit together with the tool's
// diagnostic output.
type ConversionError struct {
	ExitErr error
	Stderr  string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("ffmpeg conversion failed: %s: %s", e.ExitErr, e.Stderr)
}

func (e *ConversionError) Unwrap() error {
	return e.ExitErr
}

// Config contains transcoder configuration
type Config struct {
	FFmpegPath string        // explicit executable override; empty means resolve automatically
	Timeout    time.Duration // per-invocation limit; 0 disables the deadline
}

// Transcoder invokes ffmpeg to convert audio files to MP3.
type Transcoder struct {
	config Config
	logger *slog.Logger
}

// NewTranscoder creates an ffmpeg-backed transcoder.
func NewTranscoder(cfg Config, logger *slog.Logger) *Transcoder {
	return &Transcoder{
		config: cfg,
		logger: logger,
	}
}

// ResolveFFmpeg locates the ffmpeg executable. The configured override wins
// when set; otherwise PATH is searched, then the fixed fallback locations.
// This is the single resolution point for external tools in the service.
func ResolveFFmpeg(override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("%w: configured path %s: %v", ErrFFmpegNotFound, override, err)
		}
		return override, nil
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path, nil
	}

	for _, location := range fallbackLocations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	return "", fmt.Errorf("%w: not on PATH and no fallback location exists", ErrFFmpegNotFound)
}

// ToMP3 converts inputPath into an MP3 written at outputPath, using the
// libmp3lame codec at quality 2. Tool resolution happens before the
// subprocess starts, so a missing executable fails fast with
// ErrFFmpegNotFound. A non-zero exit is reported as a ConversionError
// carrying ffmpeg's stderr.
func (t *Transcoder) ToMP3(ctx context.Context, inputPath, outputPath string) error {
	ffmpegPath, err := ResolveFFmpeg(t.config.FFmpegPath)
	if err != nil {
		return err
	}

	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-i", inputPath,
		"-acodec", "libmp3lame",
		"-q:a", "2",
		outputPath,
	)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg conversion aborted: %w", ctxErr)
		}
		return &ConversionError{
			ExitErr: err,
			Stderr:  strings.TrimSpace(stderr.String()),
		}
	}

	t.logger.Debug("Audio converted to MP3",
		slog.String("ffmpeg", ffmpegPath),
		slog.String("input", inputPath),
		slog.String("output", outputPath),
		slog.Duration("elapsed", time.Since(start)),
	)

	return nil
}
