package users

import (
	"context"
	"errors"
	"testing"

	"github.com/haasonsaas/concierge/pkg/models"
)

func strptr(s string) *string { return &s }

// storeFactories lets every contract test run against both implementations.
var storeFactories = map[string]func(t *testing.T) Store{
	"memory": func(t *testing.T) Store { return NewMemoryStore() },
	"sqlite": func(t *testing.T) Store {
		s, err := NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	},
}

func TestStore_CreateAndFind(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			rec := &models.UserRecord{
				Phone:     "15551234567",
				Firstname: "Ada",
				Lastname:  "Lovelace",
				Email:     "ada@example.com",
				Input:     "my name is Ada",
			}
			if err := store.Create(ctx, rec); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			got, err := store.FindByPhone(ctx, "15551234567")
			if err != nil {
				t.Fatalf("FindByPhone() error = %v", err)
			}
			if got.Firstname != "Ada" || got.Lastname != "Lovelace" || got.Email != "ada@example.com" {
				t.Errorf("got %+v, want the created record", got)
			}
			if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
				t.Error("timestamps should be populated on create")
			}
		})
	}
}

func TestStore_FindMissing(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			if _, err := store.FindByPhone(context.Background(), "0"); !errors.Is(err, ErrNotFound) {
				t.Errorf("FindByPhone() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_DuplicateCreate(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			if err := store.Create(ctx, &models.UserRecord{Phone: "1"}); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if err := store.Create(ctx, &models.UserRecord{Phone: "1"}); !errors.Is(err, ErrExists) {
				t.Errorf("second Create() error = %v, want ErrExists", err)
			}
		})
	}
}

func TestStore_PartialUpdate(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			err := store.Create(ctx, &models.UserRecord{
				Phone:     "1",
				Firstname: "Ada",
				Lastname:  "Lovelace",
				Email:     "ada@example.com",
			})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			got, err := store.UpdateByPhone(ctx, "1", models.UserPatch{Lastname: strptr("King")})
			if err != nil {
				t.Fatalf("UpdateByPhone() error = %v", err)
			}
			if got.Lastname != "King" {
				t.Errorf("Lastname = %q, want %q", got.Lastname, "King")
			}
			if got.Firstname != "Ada" || got.Email != "ada@example.com" {
				t.Errorf("omitted fields changed: %+v", got)
			}
		})
	}
}

func TestStore_UpdateMissing(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			_, err := store.UpdateByPhone(context.Background(), "missing", models.UserPatch{Firstname: strptr("x")})
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("UpdateByPhone() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_EmptyPatchKeepsRecord(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			if err := store.Create(ctx, &models.UserRecord{Phone: "1", Firstname: "Ada"}); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			got, err := store.UpdateByPhone(ctx, "1", models.UserPatch{})
			if err != nil {
				t.Fatalf("UpdateByPhone() error = %v", err)
			}
			if got.Firstname != "Ada" {
				t.Errorf("Firstname = %q, want unchanged", got.Firstname)
			}
		})
	}
}
