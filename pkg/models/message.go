package models

import (
	"encoding/json"
	"time"
)

// Role indicates the message author type.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in a conversation transcript.
type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ToolCall represents an LLM's request to execute a tool.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult represents the output of a tool execution.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Transcript is the ordered, append-only message history driving one
// conversational turn-chain. It is threaded by value through the driver and
// dispatcher: Append returns the grown transcript instead of mutating shared
// state, so no step can corrupt another through aliasing. A transcript is
// owned by exactly one turn-chain and is never shared across sessions.
type Transcript []Message

// Append returns a transcript extended with msg. Existing entries are never
// edited or removed; new information is always a new message.
func (t Transcript) Append(msg Message) Transcript {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	out := make(Transcript, len(t), len(t)+1)
	copy(out, t)
	return append(out, msg)
}

// Len returns the number of messages in the transcript.
func (t Transcript) Len() int { return len(t) }

// Last returns the most recent message and true, or a zero message and false
// for an empty transcript.
func (t Transcript) Last() (Message, bool) {
	if len(t) == 0 {
		return Message{}, false
	}
	return t[len(t)-1], true
}
