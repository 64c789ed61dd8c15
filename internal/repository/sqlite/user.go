package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/investoai/onboarding-api/internal/apperror"
	"github.com/investoai/onboarding-api/internal/model"
	"github.com/investoai/onboarding-api/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user row, generating the internal id and timestamps.
//
// The UNIQUE constraint on clerk_id is the backstop against two concurrent
// sync-user calls racing on find-then-create: the second insert fails, which
// the service treats as "someone else created it, fetch again".
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, clerk_id, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.ClerkID,
		user.Email,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (clerkID=%s): %w", user.ClerkID, err)
	}

	return nil
}

// GetByClerkID retrieves a user by the auth provider's id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetByClerkID(ctx context.Context, clerkID string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, clerk_id, email, created_at, updated_at
		 FROM users WHERE clerk_id = ?`,
		clerkID,
	).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", clerkID)
		}
		return nil, fmt.Errorf("sqlite: getting user by clerk id %s: %w", clerkID, err)
	}

	return &u, nil
}
