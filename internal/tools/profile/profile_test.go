package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/haasonsaas/concierge/internal/agent"
	"github.com/haasonsaas/concierge/internal/mail"
	"github.com/haasonsaas/concierge/internal/users"
	"github.com/haasonsaas/concierge/internal/verify"
	"github.com/haasonsaas/concierge/pkg/models"
)

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

func newTestRegistry(t *testing.T) *agent.ToolRegistry {
	t.Helper()
	registry := agent.NewToolRegistry()
	cache := verify.NewCache(verify.CacheOptions{})
	err := Register(registry, cache, &recordingMailer{}, users.NewMemoryStore(), nil, nil)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return registry
}

func TestValidateEmail_IssuesCode(t *testing.T) {
	cache := verify.NewCache(verify.CacheOptions{})
	mailer := &recordingMailer{}
	store := users.NewMemoryStore()
	tool := NewValidateEmail(cache, mailer, store, nil, nil)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"email":"a@b.com","phone":"1"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.IsError {
		t.Fatalf("unexpected error outcome: %q", out.Guidance)
	}
	if !strings.Contains(out.Guidance, "a@b.com") {
		t.Errorf("guidance %q should name the address", out.Guidance)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.To != "a@b.com" || msg.Subject != "no reply" {
		t.Errorf("mail = %+v", msg)
	}

	code := codePattern.FindString(msg.Text)
	if code == "" {
		t.Fatalf("mail text %q carries no 6-digit code", msg.Text)
	}
	cached, ok := cache.Get("a@b.com")
	if !ok || cached != code {
		t.Errorf("cached code = %q, %v; want the mailed code %q", cached, ok, code)
	}
}

func TestValidateEmail_CodeMatchChainsUpdate(t *testing.T) {
	cache := verify.NewCache(verify.CacheOptions{})
	store := users.NewMemoryStore()
	tool := NewValidateEmail(cache, &recordingMailer{}, store, nil, nil)
	ctx := context.Background()

	if err := store.Create(ctx, &models.UserRecord{Phone: "1", Firstname: "Ada"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	cache.Set("a@b.com", "123456")

	out, err := tool.Execute(ctx, json.RawMessage(`{"email":"a@b.com","phone":"1","code":"123456"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.Guidance, "Email Verified.") {
		t.Errorf("guidance %q should report verification", out.Guidance)
	}

	rec, err := store.FindByPhone(ctx, "1")
	if err != nil {
		t.Fatalf("FindByPhone() error = %v", err)
	}
	if rec.Email != "a@b.com" {
		t.Errorf("Email = %q, want the verified address committed", rec.Email)
	}
	if rec.Firstname != "Ada" {
		t.Errorf("Firstname = %q, want untouched", rec.Firstname)
	}

	// The code is single use.
	if _, ok := cache.Get("a@b.com"); ok {
		t.Error("code should be deleted after successful verification")
	}
}

func TestValidateEmail_CodeMismatch(t *testing.T) {
	cache := verify.NewCache(verify.CacheOptions{})
	store := users.NewMemoryStore()
	tool := NewValidateEmail(cache, &recordingMailer{}, store, nil, nil)
	ctx := context.Background()

	if err := store.Create(ctx, &models.UserRecord{Phone: "1", Email: "old@b.com"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	cache.Set("a@b.com", "123456")

	out, err := tool.Execute(ctx, json.RawMessage(`{"email":"a@b.com","phone":"1","code":"999999"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.Guidance, "Invalid code") {
		t.Errorf("guidance %q should ask for a retry", out.Guidance)
	}

	rec, err := store.FindByPhone(ctx, "1")
	if err != nil {
		t.Fatalf("FindByPhone() error = %v", err)
	}
	if rec.Email != "old@b.com" {
		t.Errorf("Email = %q, record must not change on a mismatch", rec.Email)
	}
	if cached, ok := cache.Get("a@b.com"); !ok || cached != "123456" {
		t.Errorf("code should survive a mismatch, got %q, %v", cached, ok)
	}
}

func TestValidateEmail_MailFailure(t *testing.T) {
	cache := verify.NewCache(verify.CacheOptions{})
	mailer := &recordingMailer{err: errors.New("relay down")}
	tool := NewValidateEmail(cache, mailer, users.NewMemoryStore(), nil, nil)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"email":"a@b.com","phone":"1"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !out.IsError || !strings.Contains(out.Guidance, "Failed to send email") {
		t.Errorf("outcome = %+v, want a delivery failure report", out)
	}
	if _, ok := cache.Get("a@b.com"); ok {
		t.Error("no code should be cached when the mail was not delivered")
	}
}

func TestGetUserInfo_CreatesThenFinds(t *testing.T) {
	store := users.NewMemoryStore()
	tool := NewGetUserInfo(store, nil)
	ctx := context.Background()
	args := json.RawMessage(`{"phone":"1","firstname":"Ada","lastname":"Lovelace","email":"a@b.com","input":"hi, I am Ada"}`)

	out, err := tool.Execute(ctx, args)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.Guidance, "New user created") {
		t.Errorf("guidance %q should report creation", out.Guidance)
	}

	rec, err := store.FindByPhone(ctx, "1")
	if err != nil {
		t.Fatalf("FindByPhone() error = %v", err)
	}
	if rec.Firstname != "Ada" || rec.Email != "a@b.com" || rec.Input != "hi, I am Ada" {
		t.Errorf("stored record %+v", rec)
	}

	// Second call with the same phone finds, never recreates.
	out, err = tool.Execute(ctx, json.RawMessage(`{"phone":"1"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.Guidance, "already exists") {
		t.Errorf("guidance %q should report an existing user", out.Guidance)
	}
	if !strings.Contains(out.Guidance, "Ada") {
		t.Errorf("guidance %q should carry the record for greeting by name", out.Guidance)
	}
}

func TestUpdateUserInfo_PartialPatch(t *testing.T) {
	store := users.NewMemoryStore()
	tool := NewUpdateUserInfo(store, nil)
	ctx := context.Background()

	err := store.Create(ctx, &models.UserRecord{Phone: "1", Firstname: "Ada", Lastname: "Lovelace", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	out, err := tool.Execute(ctx, json.RawMessage(`{"phone":"1","lastname":"King"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.Guidance, "User information updated") {
		t.Errorf("guidance %q should report the update", out.Guidance)
	}

	rec, err := store.FindByPhone(ctx, "1")
	if err != nil {
		t.Fatalf("FindByPhone() error = %v", err)
	}
	if rec.Lastname != "King" {
		t.Errorf("Lastname = %q, want %q", rec.Lastname, "King")
	}
	if rec.Firstname != "Ada" || rec.Email != "a@b.com" {
		t.Errorf("omitted fields changed: %+v", rec)
	}
}

func TestUpdateUserInfo_MissingRecord(t *testing.T) {
	tool := NewUpdateUserInfo(users.NewMemoryStore(), nil)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"phone":"missing","firstname":"x"}`))
	if err == nil {
		t.Fatal("expected a collaborator error for a missing record")
	}
	if !errors.Is(err, users.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound in the chain", err)
	}
}

func TestRegister_CatalogComplete(t *testing.T) {
	registry := newTestRegistry(t)

	want := []string{"get_user_info", "update_user_info", "validate_email"}
	got := registry.Names()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}
