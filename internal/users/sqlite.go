package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/concierge/pkg/models"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// SQLiteStore persists user records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS user_records (
			phone      TEXT PRIMARY KEY,
			firstname  TEXT NOT NULL DEFAULT '',
			lastname   TEXT NOT NULL DEFAULT '',
			email      TEXT NOT NULL DEFAULT '',
			input      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create user_records table: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) FindByPhone(ctx context.Context, phone string) (*models.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT phone, firstname, lastname, email, input, created_at, updated_at
		FROM user_records WHERE phone = ?
	`, phone)

	var rec models.UserRecord
	err := row.Scan(&rec.Phone, &rec.Firstname, &rec.Lastname, &rec.Email, &rec.Input, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user record: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteStore) Create(ctx context.Context, rec *models.UserRecord) error {
	if rec == nil || rec.Phone == "" {
		return ErrNotFound
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_records (phone, firstname, lastname, email, input, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.Phone, rec.Firstname, rec.Lastname, rec.Email, rec.Input, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrExists
		}
		return fmt.Errorf("failed to insert user record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateByPhone(ctx context.Context, phone string, patch models.UserPatch) (*models.UserRecord, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if patch.Firstname != nil {
		sets = append(sets, "firstname = ?")
		args = append(args, *patch.Firstname)
	}
	if patch.Lastname != nil {
		sets = append(sets, "lastname = ?")
		args = append(args, *patch.Lastname)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.Input != nil {
		sets = append(sets, "input = ?")
		args = append(args, *patch.Input)
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, time.Now())
		args = append(args, phone)

		res, err := s.db.ExecContext(ctx,
			"UPDATE user_records SET "+strings.Join(sets, ", ")+" WHERE phone = ?", args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update user record: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, ErrNotFound
		}
	}

	return s.FindByPhone(ctx, phone)
}
