package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/haasonsaas/concierge/internal/agent"
	"github.com/haasonsaas/concierge/internal/users"
	"github.com/haasonsaas/concierge/pkg/models"
)

// GetUserInfo looks up the caller's record by phone number, creating one on
// first contact. The lookup is keyed on phone only; calling it again for a
// known caller returns the existing record untouched.
type GetUserInfo struct {
	users  users.Store
	logger *slog.Logger
}

// NewGetUserInfo creates the get_user_info tool.
func NewGetUserInfo(store users.Store, logger *slog.Logger) *GetUserInfo {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetUserInfo{
		users:  store,
		logger: logger.With("component", "tools.get_user_info"),
	}
}

func (t *GetUserInfo) Name() string { return "get_user_info" }

func (t *GetUserInfo) Description() string {
	return "Get user info if provided. Info could be firstname, lastname, email, phone, address, city, state, zip, country, etc. You may call this function even if only one or two of the fields are provided. The input field is the whole text provided by the user."
}

func (t *GetUserInfo) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"firstname": {"type": "string"},
			"lastname": {"type": "string"},
			"email": {"type": "string"},
			"phone": {"type": "string"},
			"address": {"type": "string"},
			"city": {"type": "string"},
			"state": {"type": "string"},
			"zip": {"type": "string"},
			"country": {"type": "string"},
			"input": {"type": "string"}
		},
		"additionalProperties": false,
		"required": ["phone"]
	}`)
}

type getUserInfoArgs struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Input     string `json:"input"`
}

func (t *GetUserInfo) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutcome, error) {
	var args getUserInfoArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}

	existing, err := t.users.FindByPhone(ctx, args.Phone)
	switch {
	case err == nil:
		payload, merr := json.Marshal(existing)
		if merr != nil {
			return nil, fmt.Errorf("encode user record: %w", merr)
		}
		return &agent.ToolOutcome{
			Guidance: "This user already exists. Ask the user if they want to update their info; if so, call the update_user_info function. Address the user by name, without revealing that you have their info. User info: " + string(payload),
		}, nil

	case errors.Is(err, users.ErrNotFound):
		rec := &models.UserRecord{
			Phone:     args.Phone,
			Firstname: args.Firstname,
			Lastname:  args.Lastname,
			Email:     args.Email,
			Input:     args.Input,
		}
		if cerr := t.users.Create(ctx, rec); cerr != nil {
			return nil, fmt.Errorf("create user record: %w", cerr)
		}
		t.logger.Info("user record created", "phone", args.Phone)

		payload, merr := json.Marshal(rec)
		if merr != nil {
			return nil, fmt.Errorf("encode user record: %w", merr)
		}
		return &agent.ToolOutcome{
			Guidance: "New user created. User information stored, no need to call this function again. Inform the user that they can update their info later. Stored info: " + string(payload),
		}, nil

	default:
		return nil, fmt.Errorf("look up user record: %w", err)
	}
}
