package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Conversation  ConversationConfig  `yaml:"conversation"`
	Search        SearchConfig        `yaml:"search"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Transcode     TranscodeConfig     `yaml:"transcode"`
	Scratch       ScratchConfig       `yaml:"scratch"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// OpenAIConfig contains shared OpenAI credentials. Both fields are
// required; startup fails without them.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	OrgID  string `yaml:"org_id"`
}

// TranscriptionConfig contains speech-to-text configuration
type TranscriptionConfig struct {
	Timeout       int `yaml:"timeout"` // seconds
	MaxRetries    int `yaml:"max_retries"`
	MaxConcurrent int `yaml:"max_concurrent"`
}

// ConversationConfig contains language-model completion configuration
type ConversationConfig struct {
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int64   `yaml:"max_tokens"`
	Timeout      int     `yaml:"timeout"` // seconds
	MaxRetries   int     `yaml:"max_retries"`
	SystemPrompt string  `yaml:"system_prompt"` // empty uses the built-in default
}

// SearchConfig contains Google Custom Search configuration. Both
// credentials empty disables search augmentation entirely.
type SearchConfig struct {
	APIKey  string `yaml:"api_key"`
	CSEID   string `yaml:"cse_id"`
	Timeout int    `yaml:"timeout"` // seconds
}

// SynthesisConfig contains AWS Polly configuration
type SynthesisConfig struct {
	Region  string `yaml:"region"`
	Timeout int    `yaml:"timeout"` // seconds
}

// TranscodeConfig contains ffmpeg invocation configuration
type TranscodeConfig struct {
	FFmpegPath string `yaml:"ffmpeg_path"` // explicit executable override
	Timeout    int    `yaml:"timeout"`     // seconds
}

// ScratchConfig contains temporary file retention configuration
type ScratchConfig struct {
	Dir           string `yaml:"dir"`            // empty uses <tmp>/oz_voice_assistant
	MaxAge        int    `yaml:"max_age"`        // seconds; 0 keeps files forever
	SweepInterval int    `yaml:"sweep_interval"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the configuration file, expands ${ENV} references, applies
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyDefaults fills unset fields with working defaults.
func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = "0.0.0.0"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Transcription.Timeout == 0 {
		c.Transcription.Timeout = 60
	}
	if c.Transcription.MaxConcurrent == 0 {
		c.Transcription.MaxConcurrent = 10
	}
	if c.Conversation.Timeout == 0 {
		c.Conversation.Timeout = 120
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = 10
	}
	if c.Synthesis.Timeout == 0 {
		c.Synthesis.Timeout = 30
	}
	if c.Transcode.Timeout == 0 {
		c.Transcode.Timeout = 60
	}
	if c.Scratch.SweepInterval == 0 {
		c.Scratch.SweepInterval = 600
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.OpenAI.Validate(); err != nil {
		return fmt.Errorf("openai config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Conversation.Validate(); err != nil {
		return fmt.Errorf("conversation config: %w", err)
	}

	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search config: %w", err)
	}

	if err := c.Scratch.Validate(); err != nil {
		return fmt.Errorf("scratch config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates OpenAI credentials. Both the API key and the
// organization ID must be present at startup.
func (o *OpenAIConfig) Validate() error {
	if o.APIKey == "" {
		return fmt.Errorf("api_key is required (set OPENAI_API_KEY)")
	}

	if o.OrgID == "" {
		return fmt.Errorf("org_id is required (set OPENAI_ORG_ID)")
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates conversation configuration
func (v *ConversationConfig) Validate() error {
	if v.Temperature < 0 || v.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", v.Temperature)
	}

	if v.MaxTokens < 0 {
		return fmt.Errorf("max_tokens cannot be negative, got %d", v.MaxTokens)
	}

	if v.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", v.Timeout)
	}

	if v.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", v.MaxRetries)
	}

	return nil
}

// Validate validates search configuration. The credentials are optional as
// a pair: either both set or both empty.
func (s *SearchConfig) Validate() error {
	if (s.APIKey == "") != (s.CSEID == "") {
		return fmt.Errorf("api_key and cse_id must be set together")
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	return nil
}

// Validate validates scratch configuration
func (s *ScratchConfig) Validate() error {
	if s.MaxAge < 0 {
		return fmt.Errorf("max_age cannot be negative, got %d", s.MaxAge)
	}

	if s.SweepInterval < 1 {
		return fmt.Errorf("sweep_interval must be at least 1 second, got %d", s.SweepInterval)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// Enabled reports whether search augmentation is configured.
func (s *SearchConfig) Enabled() bool {
	return s.APIKey != "" && s.CSEID != ""
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the conversation timeout as a time.Duration
func (v *ConversationConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(v.Timeout) * time.Second
}

// GetTimeoutDuration returns the search timeout as a time.Duration
func (s *SearchConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetTimeoutDuration returns the synthesis timeout as a time.Duration
func (s *SynthesisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetTimeoutDuration returns the transcode timeout as a time.Duration
func (t *TranscodeConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetMaxAgeDuration returns the scratch retention age as a time.Duration
func (s *ScratchConfig) GetMaxAgeDuration() time.Duration {
	return time.Duration(s.MaxAge) * time.Second
}

// GetSweepIntervalDuration returns the sweep interval as a time.Duration
func (s *ScratchConfig) GetSweepIntervalDuration() time.Duration {
	return time.Duration(s.SweepInterval) * time.Second
}
