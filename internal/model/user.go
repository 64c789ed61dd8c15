// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents an onboarded account.
//
// Identity comes from the external auth provider (Clerk), so the primary
// external identifier is the Clerk user ID (a string like "user_2abc..."). We
// still generate our own internal string ID (xid) so our primary keys are not
// tied to a third party's numbering scheme.
//
// Users are created lazily: the first sync-user call after sign-in inserts the
// row (find-or-create). Nothing in this system ever deletes one.
type User struct {
	ID        string    `json:"id"        db:"id"`
	ClerkID   string    `json:"clerkId"   db:"clerk_id"` // Auth provider's stable user ID
	Email     string    `json:"email"     db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
