// Package config loads and validates the application configuration.
//
// Configuration is YAML with environment variable expansion: ${VAR} and $VAR
// references are substituted before parsing, so secrets stay out of the
// file. Unknown fields are rejected.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/concierge/internal/stt"
	"github.com/haasonsaas/concierge/internal/tts"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Mail    MailConfig    `yaml:"mail"`
	Store   StoreConfig   `yaml:"store"`
	Verify  VerifyConfig  `yaml:"verify"`
	Voice   VoiceConfig   `yaml:"voice"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP/websocket gateway.
type ServerConfig struct {
	// ListenAddr is the address the gateway binds to. Default: ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// ShutdownTimeoutSeconds bounds graceful shutdown. Default: 10.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`
}

// LLMConfig configures the model provider and session driver.
type LLMConfig struct {
	// Provider selects the backend: "openai" or "anthropic".
	// Default: "openai".
	Provider string `yaml:"provider"`

	// APIKey authenticates with the provider.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier. Default: "gpt-4.1".
	Model string `yaml:"model"`

	// MaxTokens limits each completion. 0 uses the provider default.
	MaxTokens int `yaml:"max_tokens"`

	// MaxTurns limits stream/execute iterations per user turn. Default: 8.
	MaxTurns int `yaml:"max_turns"`

	// SystemPrompt overrides the built-in standing policy when set.
	SystemPrompt string `yaml:"system_prompt"`

	// BaseURL overrides the API base URL (optional).
	BaseURL string `yaml:"base_url"`
}

// MailConfig configures the notifier.
type MailConfig struct {
	// Endpoint is the HTTP mail relay URL. When empty, mail is logged
	// instead of delivered.
	Endpoint string `yaml:"endpoint"`

	// APIKey authenticates with the relay (optional).
	APIKey string `yaml:"api_key"`

	// TimeoutSeconds bounds one delivery attempt. Default: 15.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// StoreConfig configures the user record store.
type StoreConfig struct {
	// Driver selects the backend: "memory" or "sqlite".
	// Default: "memory".
	Driver string `yaml:"driver"`

	// Path is the SQLite database path. Default: ":memory:".
	Path string `yaml:"path"`
}

// VerifyConfig configures the verification cache.
type VerifyConfig struct {
	// TTLHours is how long issued codes stay valid. Default: 24.
	TTLHours int `yaml:"ttl_hours"`

	// MaxEntries caps the cache size. 0 means unbounded.
	MaxEntries int `yaml:"max_entries"`

	// SweepSchedule is a cron expression for expired-entry sweeps.
	// Default: "@hourly". Empty disables the sweeper.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// VoiceConfig configures speech-to-text and text-to-speech.
type VoiceConfig struct {
	STT stt.Config `yaml:"stt"`
	TTS tts.Config `yaml:"tts"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: "info".
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, expands, and strictly parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse parses config bytes with env expansion and strict field checking.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4.1"
	}
	if c.LLM.MaxTurns <= 0 {
		c.LLM.MaxTurns = 8
	}
	if c.Mail.TimeoutSeconds <= 0 {
		c.Mail.TimeoutSeconds = 15
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Path == "" {
		c.Store.Path = ":memory:"
	}
	if c.Verify.TTLHours <= 0 {
		c.Verify.TTLHours = 24
	}
	if c.Verify.SweepSchedule == "" {
		c.Verify.SweepSchedule = "@hourly"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	// Voice keys fall back to the LLM key so one key configures all three
	// OpenAI surfaces.
	if c.Voice.STT.APIKey == "" {
		c.Voice.STT.APIKey = c.LLM.APIKey
	}
	if c.Voice.TTS.APIKey == "" {
		c.Voice.TTS.APIKey = c.LLM.APIKey
	}
	c.Voice.STT.ApplyDefaults()
	c.Voice.TTS.ApplyDefaults()
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}
	return nil
}

// VerifyTTL returns the verification code lifetime as a duration.
func (c *Config) VerifyTTL() time.Duration {
	return time.Duration(c.Verify.TTLHours) * time.Hour
}

// MailTimeout returns the mail delivery timeout as a duration.
func (c *Config) MailTimeout() time.Duration {
	return time.Duration(c.Mail.TimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown bound as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
