// Command concierge runs the conversational agent service: a websocket
// gateway that drives tool-using model sessions over text and voice.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/concierge/internal/agent"
	"github.com/haasonsaas/concierge/internal/agent/providers"
	"github.com/haasonsaas/concierge/internal/config"
	"github.com/haasonsaas/concierge/internal/gateway"
	"github.com/haasonsaas/concierge/internal/mail"
	"github.com/haasonsaas/concierge/internal/observability"
	"github.com/haasonsaas/concierge/internal/stt"
	"github.com/haasonsaas/concierge/internal/tools/profile"
	"github.com/haasonsaas/concierge/internal/tts"
	"github.com/haasonsaas/concierge/internal/users"
	"github.com/haasonsaas/concierge/internal/verify"
)

var version = "dev"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "concierge",
		Short:        "Conversational agent service with tool-driven user profiles",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildServeCmd())
	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the websocket gateway and session service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	metrics := observability.NewMetrics(nil)

	provider, err := newProvider(cfg.LLM)
	if err != nil {
		return err
	}

	store, closeStore, err := newStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	cache := verify.NewCache(verify.CacheOptions{
		TTL:     cfg.VerifyTTL(),
		MaxSize: cfg.Verify.MaxEntries,
	})
	if cfg.Verify.SweepSchedule != "" {
		sweeper, err := verify.NewSweeper(cache, cfg.Verify.SweepSchedule, logger)
		if err != nil {
			return fmt.Errorf("verify sweeper: %w", err)
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	mailer := newMailer(cfg, logger)

	registry := agent.NewToolRegistry()
	if err := profile.Register(registry, cache, mailer, store, logger, metrics); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}
	dispatcher := agent.NewDispatcher(registry, logger, metrics)

	system := cfg.LLM.SystemPrompt
	if system == "" {
		system = agent.DefaultSystemPrompt
	}
	driver := agent.NewDriver(provider, dispatcher, agent.DriverConfig{
		Model:     cfg.LLM.Model,
		System:    system,
		MaxTurns:  cfg.LLM.MaxTurns,
		MaxTokens: cfg.LLM.MaxTokens,
	}, logger, metrics)

	transcriber, synthesizer, err := newVoice(cfg.Voice, logger)
	if err != nil {
		return err
	}

	factory := func(sink agent.EventSink) (gateway.ConversationHandler, error) {
		return agent.NewSession(agent.SessionOptions{
			Driver:      driver,
			Sink:        sink,
			Transcriber: transcriber,
			Synthesizer: synthesizer,
			Logger:      logger,
			Metrics:     metrics,
		})
	}

	server, err := gateway.NewServer(gateway.Options{
		ListenAddr: cfg.Server.ListenAddr,
		NewSession: factory,
		Mailer:     mailer,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Listen(); err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve() }()

	logger.Info("concierge started",
		"version", version,
		"addr", server.Addr(),
		"provider", provider.Name(),
		"model", cfg.LLM.Model,
		"tools", registry.Names())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func newProvider(cfg config.LLMConfig) (agent.LLMProvider, error) {
	switch cfg.Provider {
	case "anthropic":
		return providers.NewAnthropicProvider(cfg.APIKey, cfg.BaseURL)
	default:
		return providers.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL)
	}
}

func newStore(cfg config.StoreConfig) (users.Store, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := users.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open user store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return users.NewMemoryStore(), func() {}, nil
	}
}

func newMailer(cfg *config.Config, logger *slog.Logger) mail.Mailer {
	if cfg.Mail.Endpoint == "" {
		logger.Warn("no mail relay configured, verification mail will be logged only")
		return mail.NewLogMailer(logger)
	}
	mailer, err := mail.NewHTTPMailer(mail.HTTPMailerConfig{
		Endpoint: cfg.Mail.Endpoint,
		APIKey:   cfg.Mail.APIKey,
		Timeout:  cfg.MailTimeout(),
		Logger:   logger,
	})
	if err != nil {
		logger.Warn("mail relay misconfigured, falling back to log mailer", "error", err)
		return mail.NewLogMailer(logger)
	}
	return mailer
}

func newVoice(cfg config.VoiceConfig, logger *slog.Logger) (stt.Transcriber, tts.Synthesizer, error) {
	var transcriber stt.Transcriber
	if cfg.STT.APIKey != "" {
		t, err := stt.NewOpenAITranscriber(cfg.STT, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("speech-to-text: %w", err)
		}
		transcriber = t
	}

	var synthesizer tts.Synthesizer
	if cfg.TTS.Enabled {
		s, err := tts.NewOpenAISynthesizer(cfg.TTS, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("text-to-speech: %w", err)
		}
		synthesizer = s
	}
	return transcriber, synthesizer, nil
}
