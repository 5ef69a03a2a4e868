package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/omarzubair3093/voice-assistant/internal/metrics"
)

// Pipeline stage labels, attached to errors and metrics.
const (
	StagePersistInput = "persist_input"
	StageTranscode    = "transcode"
	StageTranscribe   = "transcribe"
	StageRespond      = "respond"
	StageSynthesize   = "synthesize"
	StagePersistReply = "persist_reply"
)

// Scratch file suffixes marking each artifact's origin.
const (
	suffixUserAudio  = "user_audio.mp3"
	suffixTranscoded = "transcoded_user_audio.mp3"
	suffixReplyAudio = "ai_audio_reply.mp3"
)

// Store persists binary payloads as uniquely-named scratch files.
type Store interface {
	WriteFile(data []byte, suffix string) (string, error)
	UniquePath(suffix string) (string, error)
}

// Transcoder normalizes arbitrary audio into decodable MP3.
type Transcoder interface {
	ToMP3(ctx context.Context, inputPath, outputPath string) error
}

// Transcriber converts an audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Responder produces a reply for a user's transcribed message.
type Responder interface {
	Respond(ctx context.Context, sessionID, userText string) (string, error)
}

// Synthesizer converts reply text to audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Pipeline drives the five processing stages strictly in order. The first
// failing stage aborts the request; no stage is retried here.
type Pipeline struct {
	store       Store
	transcoder  Transcoder
	transcriber Transcriber
	responder   Responder
	synthesizer Synthesizer
	logger      *slog.Logger
	metrics     *metrics.Metrics // nil disables metric recording
}

// NewPipeline assembles the orchestrator from its stage adapters.
func NewPipeline(
	store Store,
	transcoder Transcoder,
	transcriber Transcriber,
	responder Responder,
	synthesizer Synthesizer,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		store:       store,
		transcoder:  transcoder,
		transcriber: transcriber,
		responder:   responder,
		synthesizer: synthesizer,
		logger:      logger,
		metrics:     m,
	}
}

// ProcessUserAudio runs one request through the full pipeline and returns
// the path of the synthesized reply file. Intermediate scratch files are
// left on disk; retention is the scratch sweeper's concern.
func (p *Pipeline) ProcessUserAudio(ctx context.Context, sessionID string, rawAudio []byte) (string, error) {
	p.recordRequest()
	requestStart := time.Now()

	inputPath, err := p.persistInput(rawAudio)
	if err != nil {
		return "", p.fail(StagePersistInput, err)
	}

	transcodedPath, err := p.transcode(ctx, inputPath)
	if err != nil {
		return "", p.fail(StageTranscode, err)
	}

	transcript, err := p.transcribe(ctx, transcodedPath)
	if err != nil {
		return "", p.fail(StageTranscribe, err)
	}

	reply, err := p.respond(ctx, sessionID, transcript)
	if err != nil {
		return "", p.fail(StageRespond, err)
	}

	replyPath, err := p.synthesizeAndPersist(ctx, reply)
	if err != nil {
		return "", err
	}

	p.recordSuccess()
	p.logger.Info("Pipeline request completed",
		slog.String("session_id", sessionID),
		slog.String("reply_path", replyPath),
		slog.Duration("elapsed", time.Since(requestStart)),
	)

	return replyPath, nil
}

func (p *Pipeline) persistInput(rawAudio []byte) (string, error) {
	start := time.Now()
	path, err := p.store.WriteFile(rawAudio, suffixUserAudio)
	if err != nil {
		return "", err
	}
	p.recordScratchWrite(len(rawAudio))
	p.observeStage(StagePersistInput, start)

	p.logger.Debug("Saved original audio",
		slog.String("path", path),
		slog.Int("size_bytes", len(rawAudio)),
	)
	return path, nil
}

func (p *Pipeline) transcode(ctx context.Context, inputPath string) (string, error) {
	start := time.Now()
	outputPath, err := p.store.UniquePath(suffixTranscoded)
	if err != nil {
		return "", err
	}
	if err := p.transcoder.ToMP3(ctx, inputPath, outputPath); err != nil {
		return "", err
	}
	p.observeStage(StageTranscode, start)

	p.logger.Debug("Audio transcoded", slog.String("path", outputPath))
	return outputPath, nil
}

func (p *Pipeline) transcribe(ctx context.Context, path string) (string, error) {
	start := time.Now()
	transcript, err := p.transcriber.Transcribe(ctx, path)
	if err != nil {
		return "", err
	}
	p.observeStage(StageTranscribe, start)

	p.logger.Debug("Audio transcribed", slog.Int("transcript_length", len(transcript)))
	return transcript, nil
}

func (p *Pipeline) respond(ctx context.Context, sessionID, transcript string) (string, error) {
	start := time.Now()
	reply, err := p.responder.Respond(ctx, sessionID, transcript)
	if err != nil {
		return "", err
	}
	p.observeStage(StageRespond, start)

	p.logger.Debug("Reply generated", slog.Int("reply_length", len(reply)))
	return reply, nil
}

func (p *Pipeline) synthesizeAndPersist(ctx context.Context, reply string) (string, error) {
	start := time.Now()
	audio, err := p.synthesizer.Synthesize(ctx, reply)
	if err != nil {
		return "", p.fail(StageSynthesize, err)
	}
	if len(audio) == 0 {
		return "", p.fail(StageSynthesize, fmt.Errorf("synthesis returned no audio"))
	}
	p.observeStage(StageSynthesize, start)

	persistStart := time.Now()
	path, err := p.store.WriteFile(audio, suffixReplyAudio)
	if err != nil {
		return "", p.fail(StagePersistReply, err)
	}
	p.recordScratchWrite(len(audio))
	p.observeStage(StagePersistReply, persistStart)

	return path, nil
}

// fail logs the stage failure, records it, and wraps the error with the
// stage label before it propagates to the caller.
func (p *Pipeline) fail(stage string, err error) error {
	p.logger.Error("Pipeline stage failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
	if p.metrics != nil {
		p.metrics.RecordPipelineFailure(stage)
	}
	return fmt.Errorf("stage %s: %w", stage, err)
}

func (p *Pipeline) recordRequest() {
	if p.metrics != nil {
		p.metrics.RecordPipelineRequest()
	}
}

func (p *Pipeline) recordSuccess() {
	if p.metrics != nil {
		p.metrics.RecordPipelineSuccess()
	}
}

func (p *Pipeline) recordScratchWrite(size int) {
	if p.metrics != nil {
		p.metrics.RecordScratchWrite(size)
	}
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordStageDuration(stage, time.Since(start).Seconds())
	}
}
