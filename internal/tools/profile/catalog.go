package profile

import (
	"log/slog"

	"github.com/haasonsaas/concierge/internal/agent"
	"github.com/haasonsaas/concierge/internal/mail"
	"github.com/haasonsaas/concierge/internal/observability"
	"github.com/haasonsaas/concierge/internal/users"
	"github.com/haasonsaas/concierge/internal/verify"
)

// Register wires the full profile tool catalog into a registry. Every
// session exposes exactly these three tools.
func Register(registry *agent.ToolRegistry, cache *verify.Cache, mailer mail.Mailer, store users.Store, logger *slog.Logger, metrics *observability.Metrics) error {
	tools := []agent.Tool{
		NewValidateEmail(cache, mailer, store, logger, metrics),
		NewGetUserInfo(store, logger),
		NewUpdateUserInfo(store, logger),
	}
	for _, tool := range tools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
