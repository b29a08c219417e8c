// Package stt transcribes caller audio into text.
package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds speech-to-text configuration.
type Config struct {
	// APIKey is the OpenAI API key. Falls back to the LLM key when empty.
	APIKey string `yaml:"api_key"`

	// Model is the transcription model. Default: whisper-1.
	Model string `yaml:"model"`

	// Language hints the input language (ISO-639-1), optional.
	Language string `yaml:"language"`

	// BaseURL overrides the API base URL (optional).
	BaseURL string `yaml:"base_url"`
}

// ApplyDefaults applies default values to empty config fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = openai.Whisper1
	}
}

// Transcriber converts caller audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// OpenAITranscriber implements Transcriber over the OpenAI audio API.
type OpenAITranscriber struct {
	client *openai.Client
	cfg    Config
	logger *slog.Logger
}

// NewOpenAITranscriber creates a transcriber from the given config.
func NewOpenAITranscriber(cfg Config, logger *slog.Logger) (*OpenAITranscriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("stt: API key is required")
	}
	cfg.ApplyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAITranscriber{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger.With("component", "stt"),
	}, nil
}

// Transcribe turns one audio payload into a transcript string.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("stt: audio is empty")
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.cfg.Model,
		Reader:   bytes.NewReader(audio),
		FilePath: "audio.wav",
		Language: t.cfg.Language,
	})
	if err != nil {
		return "", fmt.Errorf("stt: transcription failed: %w", err)
	}
	t.logger.Debug("transcribed audio", "bytes", len(audio), "chars", len(resp.Text))
	return resp.Text, nil
}
