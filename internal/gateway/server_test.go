package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/haasonsaas/concierge/internal/agent"
	"github.com/haasonsaas/concierge/internal/mail"
)

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	if msg.To == "" {
		return mail.ErrNoRecipient
	}
	m.sent = append(m.sent, msg)
	return m.err
}

func newTestHTTPServer(t *testing.T, mailer mail.Mailer) *httptest.Server {
	t.Helper()
	server, err := NewServer(Options{
		NewSession: func(sink agent.EventSink) (ConversationHandler, error) {
			return &fakeSession{sink: sink}, nil
		},
		Mailer: mailer,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ts := httptest.NewServer(server.server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_MailPassthrough(t *testing.T) {
	mailer := &recordingMailer{}
	ts := newTestHTTPServer(t, mailer)

	body := `{"to":"a@b.com","subject":"hi","text":"hello"}`
	resp, err := http.Post(ts.URL+"/mail", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Post(/mail) error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "a@b.com" || mailer.sent[0].Text != "hello" {
		t.Errorf("sent = %+v, want the posted message", mailer.sent)
	}
}

func TestServer_MailRejectsBadRequests(t *testing.T) {
	ts := newTestHTTPServer(t, &recordingMailer{})

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"no recipient", http.MethodPost, `{"subject":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+"/mail", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("NewRequest() error = %v", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestServer_MailUnconfigured(t *testing.T) {
	ts := newTestHTTPServer(t, nil)

	resp, err := http.Post(ts.URL+"/mail", "application/json", strings.NewReader(`{"to":"a@b.com"}`))
	if err != nil {
		t.Fatalf("Post(/mail) error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}
