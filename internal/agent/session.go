package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/haasonsaas/concierge/internal/observability"
	"github.com/haasonsaas/concierge/internal/stt"
	"github.com/haasonsaas/concierge/internal/tts"
	"github.com/haasonsaas/concierge/pkg/models"
)

// DefaultSystemPrompt is the standing policy sent with every completion.
const DefaultSystemPrompt = "if at any point the user wanted to update or add email only email they must validate it"

// SessionOptions configures a Session.
type SessionOptions struct {
	// ID identifies the session in logs. Generated when empty.
	ID string

	// Driver runs turns. Required.
	Driver *Driver

	// Sink receives stream events for this session. Required.
	Sink EventSink

	// Transcriber turns caller audio into text. Required for voice turns.
	Transcriber stt.Transcriber

	// Synthesizer turns assistant replies into audio. Optional; when set,
	// voice turns end with an audio event carrying the spoken reply.
	Synthesizer tts.Synthesizer

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Session is the entry point for one caller's conversation. It owns the
// transcript and serializes turns: concurrent HandleText/HandleVoice calls
// on the same session queue behind one another, while separate sessions
// proceed independently.
type Session struct {
	id          string
	driver      *Driver
	sink        EventSink
	transcriber stt.Transcriber
	synthesizer tts.Synthesizer
	logger      *slog.Logger
	metrics     *observability.Metrics

	mu         sync.Mutex
	transcript models.Transcript
}

// NewSession creates a session with an empty transcript.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Driver == nil {
		return nil, errors.New("agent: session driver is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("agent: event sink is required")
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:          id,
		driver:      opts.Driver,
		sink:        opts.Sink,
		transcriber: opts.Transcriber,
		synthesizer: opts.Synthesizer,
		logger:      logger.With("component", "session", "session_id", id),
		metrics:     opts.Metrics,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Transcript returns a copy of the session transcript.
func (s *Session) Transcript() models.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(models.Transcript, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// HandleText runs one text-originated turn.
func (s *Session) HandleText(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.runTurn(ctx, "text", text)
	return err
}

// HandleVoice runs one voice-originated turn: the audio is transcribed, the
// transcript drives a normal turn, and when a synthesizer is configured the
// assistant's reply is spoken back through an audio event.
func (s *Session) HandleVoice(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.transcribe(ctx, audio)
	if err != nil {
		s.recordTurn("voice", "error")
		s.emit(models.StreamEvent{Type: models.EventError, Err: err.Error()})
		return err
	}

	reply, err := s.runTurn(ctx, "voice", text)
	if err != nil {
		return err
	}
	s.speak(ctx, reply)
	return nil
}

// runTurn appends the user message and drives it to completion. On failure
// the stored transcript is left untouched, so a failed turn cannot corrupt
// session state. Returns the assistant's final reply text.
func (s *Session) runTurn(ctx context.Context, mode, text string) (string, error) {
	next := s.transcript.Append(models.Message{
		ID:      uuid.NewString(),
		Role:    models.RoleUser,
		Content: text,
	})

	result, err := s.driver.RunTurn(ctx, next, s.sink)
	if err != nil {
		s.recordTurn(mode, turnOutcome(err))
		s.logger.Warn("turn failed", "mode", mode, "error", err)
		return "", err
	}

	s.transcript = result
	s.recordTurn(mode, "done")

	if last, ok := result.Last(); ok && last.Role == models.RoleAssistant {
		return last.Content, nil
	}
	return "", nil
}

func (s *Session) transcribe(ctx context.Context, audio []byte) (string, error) {
	if s.transcriber == nil {
		return "", errors.New("agent: no transcriber configured for voice turn")
	}
	text, err := s.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return text, nil
}

// speak synthesizes the reply and delivers it as an audio event. Synthesis
// failures are logged and suppressed; the turn has already succeeded.
func (s *Session) speak(ctx context.Context, reply string) {
	if s.synthesizer == nil || reply == "" {
		return
	}
	audio, err := s.synthesizer.Synthesize(ctx, reply)
	if err != nil {
		s.logger.Warn("speech synthesis failed", "error", err)
		return
	}
	s.emit(models.StreamEvent{Type: models.EventAudio, Audio: audio})
}

func (s *Session) emit(event models.StreamEvent) {
	if err := s.sink.Send(event); err != nil {
		s.logger.Warn("failed to deliver stream event", "event", event.Type, "error", err)
	}
}

func (s *Session) recordTurn(mode, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.TurnFinished(mode, outcome)
}

func turnOutcome(err error) string {
	if errors.Is(err, ErrConversationTooLong) {
		return "too_long"
	}
	return "error"
}
