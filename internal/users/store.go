// Package users persists contact/profile records keyed by phone number.
package users

import (
	"context"
	"errors"

	"github.com/haasonsaas/concierge/pkg/models"
)

// ErrNotFound is returned when no record exists for a phone number.
var ErrNotFound = errors.New("user record not found")

// ErrExists is returned when creating a record for a phone number that
// already has one.
var ErrExists = errors.New("user record already exists")

// Store is the interface for user record persistence. Implementations must
// be safe for concurrent use; individual reads and writes are atomic but
// updates are last-writer-wins with no optimistic concurrency check.
type Store interface {
	// FindByPhone returns the record for phone, or ErrNotFound.
	FindByPhone(ctx context.Context, phone string) (*models.UserRecord, error)

	// Create stores a new record. Returns ErrExists if the phone number is
	// already taken.
	Create(ctx context.Context, rec *models.UserRecord) error

	// UpdateByPhone applies a partial patch to the record for phone and
	// returns the updated record, or ErrNotFound.
	UpdateByPhone(ctx context.Context, phone string, patch models.UserPatch) (*models.UserRecord, error)
}
