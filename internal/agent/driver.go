package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/concierge/internal/observability"
	"github.com/haasonsaas/concierge/pkg/models"
)

// DriverConfig configures the session driver.
type DriverConfig struct {
	// Model is the model identifier sent to the provider.
	Model string

	// System is the system prompt for every completion.
	System string

	// MaxTurns limits the stream/execute iterations within one user turn.
	// When the model keeps requesting tools past this limit the turn fails
	// closed with ErrConversationTooLong. Default: 8.
	MaxTurns int

	// MaxTokens limits each completion. If 0 the provider default is used.
	MaxTokens int
}

// DefaultMaxTurns is the iteration limit applied when DriverConfig.MaxTurns
// is unset.
const DefaultMaxTurns = 8

func sanitizeDriverConfig(cfg DriverConfig) DriverConfig {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	return cfg
}

// Driver runs the streaming conversation loop for one turn: stream a
// completion, forward deltas to the sink, execute any requested tools, and
// continue until the model answers without tool calls.
//
//	┌─────────┐     ┌──────────┐     ┌────────────────┐
//	│  Init   │────▶│  Stream  │────▶│ Dispatch Tools │
//	└─────────┘     └──────────┘     └────────────────┘
//	                      │                  │
//	                      ▼                  │
//	                ┌──────────┐             │
//	                │   Done   │◀────────────┘
//	                └──────────┘  (no tools or limit reached)
type Driver struct {
	provider   LLMProvider
	dispatcher *Dispatcher
	cfg        DriverConfig
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewDriver creates a session driver. Metrics may be nil.
func NewDriver(provider LLMProvider, dispatcher *Dispatcher, cfg DriverConfig, logger *slog.Logger, metrics *observability.Metrics) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		provider:   provider,
		dispatcher: dispatcher,
		cfg:        sanitizeDriverConfig(cfg),
		logger:     logger.With("component", "driver"),
		metrics:    metrics,
	}
}

// RunTurn drives one user turn to completion. The input transcript must end
// with the new user message. It returns the extended transcript; the input
// value is never mutated, so a failed turn leaves the caller's transcript
// exactly as it was.
//
// Events are forwarded to sink as they happen: text deltas, tool call
// notifications, and finally either a turn-done or an error event.
func (d *Driver) RunTurn(ctx context.Context, transcript models.Transcript, sink EventSink) (models.Transcript, error) {
	if d.provider == nil {
		return transcript, ErrNoProvider
	}
	if sink == nil {
		sink = DiscardSink
	}

	for iteration := 0; ; iteration++ {
		if iteration >= d.cfg.MaxTurns {
			err := fmt.Errorf("%w: %d iterations", ErrConversationTooLong, iteration)
			d.logger.Warn("turn exceeded iteration limit", "max_turns", d.cfg.MaxTurns)
			d.emit(sink, models.StreamEvent{Type: models.EventError, Err: err.Error()})
			return transcript, err
		}

		select {
		case <-ctx.Done():
			d.emit(sink, models.StreamEvent{Type: models.EventError, Err: ctx.Err().Error()})
			return transcript, ctx.Err()
		default:
		}

		text, toolCalls, err := d.streamOnce(ctx, transcript, sink)
		if err != nil {
			d.emit(sink, models.StreamEvent{Type: models.EventError, Err: err.Error()})
			return transcript, err
		}

		transcript = transcript.Append(models.Message{
			ID:        uuid.NewString(),
			Role:      models.RoleAssistant,
			Content:   text,
			ToolCalls: toolCalls,
		})

		if len(toolCalls) == 0 {
			d.emit(sink, models.StreamEvent{Type: models.EventTurnDone})
			return transcript, nil
		}

		// Tool calls run in the order the model issued them.
		for _, call := range toolCalls {
			transcript = d.dispatcher.Dispatch(ctx, call, transcript)
		}
	}
}

// streamOnce performs one streaming completion and collects the response.
func (d *Driver) streamOnce(ctx context.Context, transcript models.Transcript, sink EventSink) (string, []models.ToolCall, error) {
	req := &CompletionRequest{
		Model:     d.cfg.Model,
		System:    d.cfg.System,
		Messages:  toCompletionMessages(transcript),
		Tools:     d.dispatcher.registry.AsLLMTools(),
		MaxTokens: d.cfg.MaxTokens,
	}

	start := time.Now()
	chunks, err := d.provider.Complete(ctx, req)
	if err != nil {
		d.recordLLMRequest("error", start)
		return "", nil, err
	}

	var textBuilder strings.Builder
	var toolCalls []models.ToolCall

	for chunk := range chunks {
		if chunk.Error != nil {
			d.recordLLMRequest("error", start)
			return "", nil, chunk.Error
		}
		if chunk.Text != "" {
			textBuilder.WriteString(chunk.Text)
			d.emit(sink, models.StreamEvent{Type: models.EventTextDelta, Text: chunk.Text})
		}
		if chunk.ToolCall != nil {
			toolCalls = append(toolCalls, *chunk.ToolCall)
			d.emit(sink, models.StreamEvent{Type: models.EventToolCall, Tool: chunk.ToolCall.Name})
		}
	}

	d.recordLLMRequest("success", start)
	return textBuilder.String(), toolCalls, nil
}

func (d *Driver) emit(sink EventSink, event models.StreamEvent) {
	if err := sink.Send(event); err != nil {
		d.logger.Warn("failed to deliver stream event", "event", event.Type, "error", err)
	}
}

func (d *Driver) recordLLMRequest(status string, start time.Time) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordLLMRequest(d.provider.Name(), d.cfg.Model, status, time.Since(start).Seconds())
}

// toCompletionMessages converts a transcript into provider messages. System
// messages are skipped; the system prompt travels in the request itself.
func toCompletionMessages(transcript models.Transcript) []CompletionMessage {
	msgs := make([]CompletionMessage, 0, len(transcript))
	for _, m := range transcript {
		if m.Role == models.RoleSystem {
			continue
		}
		msgs = append(msgs, CompletionMessage{
			Role:        string(m.Role),
			Content:     m.Content,
			ToolCalls:   m.ToolCalls,
			ToolResults: m.ToolResults,
		})
	}
	return msgs
}
