package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/concierge/internal/observability"
	"github.com/haasonsaas/concierge/pkg/models"
)

// Dispatcher routes tool calls from the model to registered tools and folds
// their guidance back into the transcript.
//
// Dispatch is deliberately tolerant: a tool call that cannot be served (an
// unknown name, arguments that fail schema validation, a collaborator
// failure inside the tool) never fails the turn. The problem is logged, a
// metric is recorded, and the transcript is returned unchanged.
type Dispatcher struct {
	registry *ToolRegistry
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewDispatcher creates a dispatcher over the given registry. Metrics may be
// nil.
func NewDispatcher(registry *ToolRegistry, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger.With("component", "dispatcher"),
		metrics:  metrics,
	}
}

// Dispatch executes one tool call against the registry and returns the
// transcript with the tool's guidance appended. The input transcript is
// never mutated; callers must use the returned value.
func (d *Dispatcher) Dispatch(ctx context.Context, call models.ToolCall, transcript models.Transcript) models.Transcript {
	start := time.Now()

	tool, ok := d.registry.Get(call.Name)
	if !ok {
		d.logger.Debug("skipping unknown tool", "tool", call.Name, "tool_call_id", call.ID)
		d.recordDispatch(call.Name, "unknown", start)
		return transcript
	}

	if err := d.registry.ValidateArgs(call.Name, call.Input); err != nil {
		d.logger.Warn("tool arguments failed validation",
			"tool", call.Name,
			"tool_call_id", call.ID,
			"error", err,
		)
		d.recordDispatch(call.Name, "malformed_args", start)
		return transcript
	}

	outcome, err := tool.Execute(ctx, call.Input)
	if err != nil {
		d.logger.Error("tool execution failed",
			"tool", call.Name,
			"tool_call_id", call.ID,
			"error", err,
		)
		d.recordDispatch(call.Name, "collaborator_error", start)
		return transcript
	}
	if outcome == nil {
		d.recordDispatch(call.Name, "ok", start)
		return transcript
	}

	d.recordDispatch(call.Name, "ok", start)
	return transcript.Append(models.Message{
		ID:   uuid.NewString(),
		Role: models.RoleTool,
		ToolResults: []models.ToolResult{{
			ToolCallID: call.ID,
			Content:    outcome.Guidance,
			IsError:    outcome.IsError,
		}},
	})
}

func (d *Dispatcher) recordDispatch(name, outcome string, start time.Time) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordToolDispatch(name, outcome, time.Since(start).Seconds())
}
