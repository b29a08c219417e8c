// Package profile implements the tool catalog the assistant uses to manage
// caller profiles: email verification, profile lookup/creation, and partial
// updates.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/haasonsaas/concierge/internal/agent"
	"github.com/haasonsaas/concierge/internal/mail"
	"github.com/haasonsaas/concierge/internal/observability"
	"github.com/haasonsaas/concierge/internal/users"
	"github.com/haasonsaas/concierge/internal/verify"
	"github.com/haasonsaas/concierge/pkg/models"
)

// ValidateEmail verifies a caller's email address with a one-time code.
//
// Without a code it issues one: a 6-digit code is mailed to the address and
// cached for 24 hours. With a code it compares against the cached value; on a
// match the email is committed to the caller's record in the same dispatch,
// and the code is deleted so it cannot be replayed.
type ValidateEmail struct {
	cache   *verify.Cache
	mailer  mail.Mailer
	users   users.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewValidateEmail creates the validate_email tool. Metrics may be nil.
func NewValidateEmail(cache *verify.Cache, mailer mail.Mailer, store users.Store, logger *slog.Logger, metrics *observability.Metrics) *ValidateEmail {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidateEmail{
		cache:   cache,
		mailer:  mailer,
		users:   store,
		logger:  logger.With("component", "tools.validate_email"),
		metrics: metrics,
	}
}

func (t *ValidateEmail) Name() string { return "validate_email" }

func (t *ValidateEmail) Description() string {
	return "Validate the email if it is provided, otherwise pass on this. The user might also provide the code to verify the email, in which case check whether the code is correct."
}

func (t *ValidateEmail) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"phone": {"type": "string"},
			"email": {"type": "string"},
			"code": {"type": "string"}
		},
		"additionalProperties": false,
		"required": ["email", "phone"]
	}`)
}

type validateEmailArgs struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (t *ValidateEmail) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutcome, error) {
	var args validateEmailArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}

	if args.Code != "" {
		return t.checkCode(ctx, args)
	}
	return t.issueCode(ctx, args)
}

// checkCode compares a submitted code against the cached one.
func (t *ValidateEmail) checkCode(ctx context.Context, args validateEmailArgs) (*agent.ToolOutcome, error) {
	cached, ok := t.cache.Get(args.Email)
	if !ok || cached != args.Code {
		t.recordVerification("mismatched")
		t.logger.Info("verification code rejected", "email", args.Email)
		return &agent.ToolOutcome{
			Guidance: "Invalid code. Ask the user to enter the right code.",
		}, nil
	}

	// Codes are single use: drop the entry so it cannot be replayed.
	t.cache.Delete(args.Email)
	t.recordVerification("matched")
	t.logger.Info("email verified", "email", args.Email)

	guidance := "Email Verified."

	// Commit the verified email to the caller's record in the same
	// dispatch, without another model round-trip.
	email := args.Email
	rec, err := t.users.UpdateByPhone(ctx, args.Phone, models.UserPatch{Email: &email})
	if err != nil {
		t.logger.Warn("failed to store verified email", "phone", args.Phone, "error", err)
		return &agent.ToolOutcome{Guidance: guidance}, nil
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return &agent.ToolOutcome{Guidance: guidance}, nil
	}
	return &agent.ToolOutcome{
		Guidance: guidance + " User information updated. Inform the user that their info has been updated. New info: " + string(payload),
	}, nil
}

// issueCode generates, mails, and caches a fresh verification code.
func (t *ValidateEmail) issueCode(ctx context.Context, args validateEmailArgs) (*agent.ToolOutcome, error) {
	code := verify.NewCode()

	if err := t.mailer.Send(ctx, mail.VerificationMessage(args.Email, code)); err != nil {
		t.recordMail("failed")
		t.logger.Warn("failed to send verification mail", "email", args.Email, "error", err)
		return &agent.ToolOutcome{
			Guidance: fmt.Sprintf("Failed to send email to %s.", args.Email),
			IsError:  true,
		}, nil
	}

	t.cache.Set(args.Email, code)
	t.recordMail("sent")
	t.recordVerification("issued")
	t.logger.Info("verification code issued", "email", args.Email)

	return &agent.ToolOutcome{
		Guidance: fmt.Sprintf("Email sent to %s with a verification code. Ask the user to enter the code to verify their email.", args.Email),
	}, nil
}

func (t *ValidateEmail) recordVerification(event string) {
	if t.metrics != nil {
		t.metrics.RecordVerification(event)
	}
}

func (t *ValidateEmail) recordMail(status string) {
	if t.metrics != nil {
		t.metrics.RecordMail(status)
	}
}
