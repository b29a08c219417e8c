package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/haasonsaas/concierge/internal/agent"
	"github.com/haasonsaas/concierge/internal/users"
	"github.com/haasonsaas/concierge/pkg/models"
)

// UpdateUserInfo applies a partial update to the caller's record. Only the
// fields present in the arguments change; everything else is left alone.
type UpdateUserInfo struct {
	users  users.Store
	logger *slog.Logger
}

// NewUpdateUserInfo creates the update_user_info tool.
func NewUpdateUserInfo(store users.Store, logger *slog.Logger) *UpdateUserInfo {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdateUserInfo{
		users:  store,
		logger: logger.With("component", "tools.update_user_info"),
	}
}

func (t *UpdateUserInfo) Name() string { return "update_user_info" }

func (t *UpdateUserInfo) Description() string {
	return "If the user wants to update their info, call this function. The user will provide what they want to update."
}

func (t *UpdateUserInfo) Schema() json.RawMessage {
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
			"country": {"type": "string"}
		},
		"additionalProperties": false,
		"required": ["phone"]
	}`)
}

type updateUserInfoArgs struct {
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Email     *string `json:"email"`
	Phone     string  `json:"phone"`
}

func (t *UpdateUserInfo) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutcome, error) {
	var args updateUserInfoArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}

	patch := models.UserPatch{
		Firstname: args.Firstname,
		Lastname:  args.Lastname,
		Email:     args.Email,
	}

	rec, err := t.users.UpdateByPhone(ctx, args.Phone, patch)
	if err != nil {
		return nil, fmt.Errorf("update user record: %w", err)
	}
	t.logger.Info("user record updated", "phone", args.Phone)

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode user record: %w", err)
	}
	return &agent.ToolOutcome{
		Guidance: "User information updated. Inform the user that their info has been updated. New info: " + string(payload),
	}, nil
}
