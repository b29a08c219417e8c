package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/concierge/pkg/models"
)

// LLMProvider defines the interface for Large Language Model backends.
//
// Implementations handle the specifics of communicating with different LLM
// APIs (OpenAI, Anthropic) while presenting a unified streaming interface to
// the session driver.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Multiple goroutines may
// call Complete() simultaneously for different sessions.
type LLMProvider interface {
	// Complete sends a prompt and returns a streaming response. The channel
	// is closed when the stream ends. Providers do not retry failed
	// requests; errors surface on the channel and end the stream.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name returns the provider name.
	Name() string
}

// CompletionRequest contains all parameters for one streaming completion.
type CompletionRequest struct {
	// Model specifies which LLM model to use. If empty, the provider's
	// default model is used.
	Model string `json:"model"`

	// System is the system prompt that sets the assistant's behavior.
	System string `json:"system,omitempty"`

	// Messages contains the conversation history in chronological order.
	Messages []CompletionMessage `json:"messages"`

	// Tools defines the tools the model may request to execute.
	Tools []Tool `json:"tools,omitempty"`

	// MaxTokens limits the generated response length. If 0, the provider's
	// default is used.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompletionMessage represents a single message in a conversation.
//
// Role values: "system", "user", "assistant", "tool".
type CompletionMessage struct {
	Role        string              `json:"role"`
	Content     string              `json:"content,omitempty"`
	ToolCalls   []models.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []models.ToolResult `json:"tool_results,omitempty"`
}

// CompletionChunk represents a single chunk in a streaming LLM response.
//
// Each chunk may contain partial text, a complete tool call, a done signal,
// or an error. A chunk with Error set terminates the stream.
type CompletionChunk struct {
	// Text contains partial response text, streamed incrementally.
	Text string `json:"text,omitempty"`

	// ToolCall contains a complete tool execution request.
	ToolCall *models.ToolCall `json:"tool_call,omitempty"`

	// Done is true when the stream has completed successfully.
	Done bool `json:"done,omitempty"`

	// Error contains any error that occurred; streaming is terminated.
	Error error `json:"-"`
}

// Tool defines the interface for tools the model may call.
//
// Execute receives the raw JSON arguments from the model, already validated
// against Schema() by the dispatcher. Tools report domain failures through
// guidance text in the ToolResult, not through the error return; the error
// return is reserved for collaborator failures the model should not see.
type Tool interface {
	// Name returns the tool name for LLM function calling.
	Name() string

	// Description returns a natural language description of the tool.
	Description() string

	// Schema returns the JSON Schema defining the tool's parameters.
	Schema() json.RawMessage

	// Execute runs the tool with the given JSON arguments.
	Execute(ctx context.Context, params json.RawMessage) (*ToolOutcome, error)
}

// ToolOutcome is the result of a tool execution.
//
// Guidance carries instructions for the model ("Email Verified.", "tell the
// user the code does not match") that are appended to the transcript as the
// tool's output.
type ToolOutcome struct {
	// Guidance is the text appended to the transcript for the model.
	Guidance string `json:"guidance"`

	// IsError indicates the outcome describes a failure the model should
	// relay to the user.
	IsError bool `json:"is_error,omitempty"`
}
