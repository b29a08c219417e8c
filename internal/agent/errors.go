package agent

import "errors"

// Common sentinel errors for the session driver.
var (
	// ErrConversationTooLong indicates a turn exceeded the iteration limit.
	ErrConversationTooLong = errors.New("conversation too long")

	// ErrNoProvider indicates no LLM provider is configured.
	ErrNoProvider = errors.New("no provider configured")

	// ErrUnknownTool indicates the model requested a tool that is not
	// registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrMalformedArgs indicates tool arguments failed schema validation.
	ErrMalformedArgs = errors.New("malformed tool arguments")
)
