// Package tts synthesizes spoken audio from assistant replies.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds text-to-speech configuration.
type Config struct {
	// Enabled toggles synthesis. When false the session driver skips TTS.
	Enabled bool `yaml:"enabled"`

	// APIKey is the OpenAI API key. Falls back to the LLM key when empty.
	APIKey string `yaml:"api_key"`

	// Model is the speech model. Default: "tts-1".
	Model string `yaml:"model"`

	// Voice is the synthesis voice. Default: "alloy".
	Voice string `yaml:"voice"`

	// ResponseFormat is the audio container. Default: "mp3".
	ResponseFormat string `yaml:"response_format"`

	// Speed is the speech rate (0.25 to 4.0). Default: 1.0.
	Speed float64 `yaml:"speed"`

	// MaxTextLength truncates overly long replies before synthesis.
	// Default: 4096.
	MaxTextLength int `yaml:"max_text_length"`

	// BaseURL overrides the API base URL (optional).
	BaseURL string `yaml:"base_url"`
}

// ApplyDefaults applies default values to empty config fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = "tts-1"
	}
	if c.Voice == "" {
		c.Voice = "alloy"
	}
	if c.ResponseFormat == "" {
		c.ResponseFormat = "mp3"
	}
	if c.Speed == 0 {
		c.Speed = 1.0
	}
	if c.MaxTextLength <= 0 {
		c.MaxTextLength = 4096
	}
}

// Synthesizer converts assistant text into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// OpenAISynthesizer implements Synthesizer over the OpenAI speech API.
type OpenAISynthesizer struct {
	client *openai.Client
	cfg    Config
	logger *slog.Logger
}

// NewOpenAISynthesizer creates a synthesizer from the given config.
func NewOpenAISynthesizer(cfg Config, logger *slog.Logger) (*OpenAISynthesizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("tts: API key is required")
	}
	cfg.ApplyDefaults()
	if cfg.Speed < 0.25 || cfg.Speed > 4.0 {
		return nil, fmt.Errorf("tts: speed %v out of range [0.25, 4.0]", cfg.Speed)
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAISynthesizer{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger.With("component", "tts"),
	}, nil
}

// Synthesize renders text as audio in the configured format.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("tts: text is empty")
	}
	if len(text) > s.cfg.MaxTextLength {
		text = text[:s.cfg.MaxTextLength]
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.cfg.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.cfg.Voice),
		ResponseFormat: openai.SpeechResponseFormat(s.cfg.ResponseFormat),
		Speed:          s.cfg.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("tts: synthesis failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("tts: failed to read audio: %w", err)
	}
	s.logger.Debug("synthesized speech", "chars", len(text), "bytes", len(audio), "format", s.cfg.ResponseFormat)
	return audio, nil
}
