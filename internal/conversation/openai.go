package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultModel is the fixed chat completion model.
	DefaultModel = "gpt-4-1106-preview"

	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

// CompleterConfig contains OpenAI chat completion configuration
type CompleterConfig struct {
	APIKey      string
	OrgID       string
	Model       string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
	MaxRetries  int
}

// OpenAICompleter implements Completer against the OpenAI chat completions
// API.
type OpenAICompleter struct {
	api         openai.Client
	model       string
	temperature float64
	maxTokens   int64
	logger      *slog.Logger
}

// NewOpenAICompleter creates a chat-completion backed Completer.
func NewOpenAICompleter(cfg CompleterConfig, logger *slog.Logger) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.OrgID != "" {
		opts = append(opts, option.WithOrganization(cfg.OrgID))
	}

	return &OpenAICompleter{
		api:         openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}, nil
}

// Complete runs one chat completion over the ordered turn sequence and
// returns the reply text.
func (c *OpenAICompleter) Complete(ctx context.Context, turns []Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case RoleUser:
			messages = append(messages, openai.UserMessage(turn.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			return "", fmt.Errorf("unknown turn role %q", turn.Role)
		}
	}

	start := time.Now()

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", err
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	c.logger.Debug("Chat completion finished",
		slog.String("model", c.model),
		slog.Int("turns", len(turns)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return completion.Choices[0].Message.Content, nil
}
