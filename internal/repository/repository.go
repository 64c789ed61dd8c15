package repository

import (
	"context"

	"github.com/investoai/onboarding-api/internal/model"
)

// UserRepository stores onboarded accounts, keyed externally by the auth
// provider's stable user id.
type UserRepository interface {
	// Create inserts a new user, filling in ID and timestamps.
	Create(ctx context.Context, user *model.User) error
	// GetByClerkID returns the user for an auth-provider id, or
	// apperror.ErrNotFound if none exists.
	GetByClerkID(ctx context.Context, clerkID string) (*model.User, error)
}

// FormRepository stores at most one questionnaire record per user.
type FormRepository interface {
	// Upsert inserts the record, or fully replaces the existing one for the
	// same user id — every field, including the cached analysis result.
	// CreatedAt is preserved across replacements; UpdatedAt is refreshed.
	Upsert(ctx context.Context, record *model.FormRecord) error
	// GetByUserID returns the user's record, or apperror.ErrNotFound.
	GetByUserID(ctx context.Context, userID string) (*model.FormRecord, error)
	// HasForm reports whether the user has ever submitted the questionnaire.
	HasForm(ctx context.Context, userID string) (bool, error)
}
