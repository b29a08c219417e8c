package models

// StreamEventType enumerates the closed set of events a session can emit.
// The forwarding boundary switches exhaustively over these values so a new
// event kind fails loudly instead of silently falling through.
type StreamEventType string

const (
	// EventTextDelta carries an incremental piece of assistant text.
	EventTextDelta StreamEventType = "text.delta"

	// EventToolCall announces that the assistant requested a tool, before
	// the tool runs, so consumers can surface progress.
	EventToolCall StreamEventType = "tool.call"

	// EventAudio carries synthesized speech for a voice-originated turn.
	EventAudio StreamEventType = "audio"

	// EventTurnDone marks the natural end of a turn-chain.
	EventTurnDone StreamEventType = "turn.done"

	// EventError reports a failed turn. The turn-chain ends after it.
	EventError StreamEventType = "error"
)

// StreamEvent is one output event of a conversational turn, delivered to the
// caller in the exact order the model stream produced it.
type StreamEvent struct {
	Type  StreamEventType `json:"type"`
	Text  string          `json:"text,omitempty"`  // EventTextDelta
	Tool  string          `json:"tool,omitempty"`  // EventToolCall
	Audio []byte          `json:"audio,omitempty"` // EventAudio, raw synthesized bytes
	Err   string          `json:"error,omitempty"` // EventError
}
