// Package providers implements agent.LLMProvider for the supported LLM
// backends.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/haasonsaas/concierge/internal/agent"
	"github.com/haasonsaas/concierge/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements agent.LLMProvider for OpenAI chat models.
//
// Responsibilities:
//   - Converting between internal message formats and OpenAI's API format
//   - Managing streaming responses with real-time token delivery
//   - Accumulating incrementally streamed tool calls
//
// Failed requests are not retried; the error surfaces to the caller, and
// recovery is the user's next message.
//
// Thread Safety:
// OpenAIProvider is safe for concurrent use. Each Complete() call creates an
// independent stream and goroutine.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a provider from an API key. An optional baseURL
// overrides the API endpoint.
func NewOpenAIProvider(apiKey, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg)}, nil
}

// Name returns the provider identifier used for routing and metrics.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends a completion request and returns a streaming response
// channel. Errors during streaming are delivered as chunk errors; the
// channel is closed when the stream ends.
func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	messages := p.convertMessages(req.Messages, req.System)

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = p.convertTools(req.Tools)
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai: create stream: %w", err)
	}

	chunks := make(chan *agent.CompletionChunk)
	go p.processStream(ctx, stream, chunks)
	return chunks, nil
}

// processStream converts OpenAI's streaming response into completion chunks.
//
// Tool calls stream incrementally: the first delta carries the ID and
// function name, later deltas carry argument fragments. Fragments are
// accumulated per index and the completed calls are emitted when the stream
// finishes with reason "tool_calls" (or at EOF).
func (p *OpenAIProvider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *agent.CompletionChunk) {
	defer close(chunks)
	defer stream.Close()

	toolCalls := make(map[int]*models.ToolCall)
	var toolOrder []int

	flushToolCalls := func() {
		for _, index := range toolOrder {
			tc := toolCalls[index]
			if tc != nil && tc.ID != "" && tc.Name != "" {
				chunks <- &agent.CompletionChunk{ToolCall: tc}
			}
		}
		toolCalls = make(map[int]*models.ToolCall)
		toolOrder = nil
	}

	for {
		select {
		case <-ctx.Done():
			chunks <- &agent.CompletionChunk{Error: ctx.Err(), Done: true}
			return
		default:
		}

		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				flushToolCalls()
				chunks <- &agent.CompletionChunk{Done: true}
				return
			}
			chunks <- &agent.CompletionChunk{Error: err, Done: true}
			return
		}

		if len(response.Choices) == 0 {
			continue
		}
		choice := response.Choices[0]

		if choice.Delta.Content != "" {
			chunks <- &agent.CompletionChunk{Text: choice.Delta.Content}
		}

		for _, tc := range choice.Delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			if toolCalls[index] == nil {
				toolCalls[index] = &models.ToolCall{}
				toolOrder = append(toolOrder, index)
			}
			if tc.ID != "" {
				toolCalls[index].ID = tc.ID
			}
			if tc.Function.Name != "" {
				toolCalls[index].Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				var args string
				if toolCalls[index].Input != nil {
					args = string(toolCalls[index].Input)
				}
				args += tc.Function.Arguments
				toolCalls[index].Input = json.RawMessage(args)
			}
		}

		if choice.FinishReason == openai.FinishReasonToolCalls {
			flushToolCalls()
		}
	}
}

// convertMessages converts internal messages to OpenAI's format. The system
// prompt is injected as the first message; tool results each become a
// separate message with role "tool".
func (p *OpenAIProvider) convertMessages(messages []agent.CompletionMessage, system string) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		if msg.Role == "tool" && len(msg.ToolResults) > 0 {
			for _, tr := range msg.ToolResults {
				result = append(result, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    tr.Content,
					ToolCallID: tr.ToolCallID,
				})
			}
			continue
		}

		oaiMsg := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
		if len(msg.ToolCalls) > 0 {
			oaiMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Input),
					},
				}
			}
		}
		result = append(result, oaiMsg)
	}

	return result
}

// convertTools converts tool definitions to OpenAI function definitions. A
// tool with an unparseable schema degrades to an empty object schema so one
// bad tool cannot break the whole catalog.
func (p *OpenAIProvider) convertTools(tools []agent.Tool) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(tool.Schema(), &schemaMap); err != nil {
			schemaMap = map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  schemaMap,
			},
		}
	}
	return result
}
