package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/haasonsaas/concierge/pkg/models"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f.text, f.err
}

type fakeSynthesizer struct {
	audio []byte
	err   error
	got   string
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.got = text
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

func newTestSession(t *testing.T, driver *Driver, sink EventSink, opts SessionOptions) *Session {
	t.Helper()
	opts.Driver = driver
	opts.Sink = sink
	session, err := NewSession(opts)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return session
}

func TestSession_HandleText(t *testing.T) {
	provider := &scriptedProvider{responses: [][]CompletionChunk{
		{{Text: "hello"}, {Done: true}},
	}}
	session := newTestSession(t, newTestDriver(t, provider), &collectorSink{}, SessionOptions{})

	if err := session.HandleText(context.Background(), "hi"); err != nil {
		t.Fatalf("HandleText() error = %v", err)
	}

	transcript := session.Transcript()
	if transcript.Len() != 2 {
		t.Fatalf("transcript has %d messages, want 2", transcript.Len())
	}
	if transcript[0].Role != models.RoleUser || transcript[0].Content != "hi" {
		t.Errorf("message[0] = %+v", transcript[0])
	}
	if transcript[1].Role != models.RoleAssistant || transcript[1].Content != "hello" {
		t.Errorf("message[1] = %+v", transcript[1])
	}
}

func TestSession_FailedTurnLeavesTranscript(t *testing.T) {
	provider := &scriptedProvider{responses: [][]CompletionChunk{
		{{Text: "ok"}, {Done: true}},
	}}
	session := newTestSession(t, newTestDriver(t, provider), &collectorSink{}, SessionOptions{})

	if err := session.HandleText(context.Background(), "first"); err != nil {
		t.Fatalf("HandleText() error = %v", err)
	}

	provider.mu.Lock()
	provider.err = errors.New("provider down")
	provider.mu.Unlock()

	if err := session.HandleText(context.Background(), "second"); err == nil {
		t.Fatal("HandleText() should surface the provider error")
	}

	// The failed turn must not leave a dangling user message behind.
	transcript := session.Transcript()
	if transcript.Len() != 2 {
		t.Errorf("transcript has %d messages after failed turn, want 2", transcript.Len())
	}
	if last, _ := transcript.Last(); last.Content != "ok" {
		t.Errorf("last message = %+v, want the first turn's reply", last)
	}
}

func TestSession_HandleVoice(t *testing.T) {
	provider := &scriptedProvider{responses: [][]CompletionChunk{
		{{Text: "spoken reply"}, {Done: true}},
	}}
	sink := &collectorSink{}
	synth := &fakeSynthesizer{audio: []byte("mp3-bytes")}
	session := newTestSession(t, newTestDriver(t, provider), sink, SessionOptions{
		Transcriber: &fakeTranscriber{text: "hello from audio"},
		Synthesizer: synth,
	})

	if err := session.HandleVoice(context.Background(), []byte("wav")); err != nil {
		t.Fatalf("HandleVoice() error = %v", err)
	}

	transcript := session.Transcript()
	if transcript[0].Content != "hello from audio" {
		t.Errorf("user message = %q, want the transcription", transcript[0].Content)
	}
	if synth.got != "spoken reply" {
		t.Errorf("synthesized %q, want the assistant reply", synth.got)
	}

	events := sink.snapshot()
	last := events[len(events)-1]
	if last.Type != models.EventAudio || string(last.Audio) != "mp3-bytes" {
		t.Errorf("last event = %+v, want the audio event", last)
	}
}

func TestSession_VoiceTranscriptionFailure(t *testing.T) {
	provider := &scriptedProvider{responses: [][]CompletionChunk{
		{{Text: "ok"}, {Done: true}},
	}}
	sink := &collectorSink{}
	session := newTestSession(t, newTestDriver(t, provider), sink, SessionOptions{
		Transcriber: &fakeTranscriber{err: errors.New("bad audio")},
	})

	if err := session.HandleVoice(context.Background(), []byte("wav")); err == nil {
		t.Fatal("HandleVoice() should surface transcription failures")
	}
	if session.Transcript().Len() != 0 {
		t.Error("failed transcription must not touch the transcript")
	}
	events := sink.snapshot()
	if len(events) == 0 || events[len(events)-1].Type != models.EventError {
		t.Errorf("events = %+v, want a trailing error event", events)
	}
}

func TestSession_SynthesisFailureSuppressed(t *testing.T) {
	provider := &scriptedProvider{responses: [][]CompletionChunk{
		{{Text: "reply"}, {Done: true}},
	}}
	session := newTestSession(t, newTestDriver(t, provider), &collectorSink{}, SessionOptions{
		Transcriber: &fakeTranscriber{text: "hi"},
		Synthesizer: &fakeSynthesizer{err: errors.New("tts down")},
	})

	if err := session.HandleVoice(context.Background(), []byte("wav")); err != nil {
		t.Fatalf("HandleVoice() error = %v, synthesis failures must not fail the turn", err)
	}
	if session.Transcript().Len() != 2 {
		t.Errorf("transcript has %d messages, want the completed turn", session.Transcript().Len())
	}
}

func TestSession_ConcurrentSessionsIsolated(t *testing.T) {
	const sessions = 8

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			reply := fmt.Sprintf("reply-%d", n)
			provider := &scriptedProvider{responses: [][]CompletionChunk{
				{{Text: reply}, {Done: true}},
			}}
			session := newTestSession(t, newTestDriver(t, provider), &collectorSink{}, SessionOptions{})

			if err := session.HandleText(context.Background(), fmt.Sprintf("msg-%d", n)); err != nil {
				t.Errorf("session %d: HandleText() error = %v", n, err)
				return
			}
			last, _ := session.Transcript().Last()
			if last.Content != reply {
				t.Errorf("session %d saw reply %q, want %q", n, last.Content, reply)
			}
		}(i)
	}
	wg.Wait()
}
