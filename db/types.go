package db

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateEmail is returned when a write would give two users the same email.
	ErrDuplicateEmail = errors.New("db: email already exists")
	// ErrDuplicateExternalID is returned when a write would link two users to the same external account.
	ErrDuplicateExternalID = errors.New("db: external id already exists")
	// ErrUserNotFound is returned by updates that target a missing id.
	ErrUserNotFound = errors.New("db: user not found")
)

// User represents a user from the database.
// Timestamps (Created and Updated) use RFC3339 format in UTC timezone.
// Example: "2024-03-07T15:04:05Z"
type User struct {
	ID    string
	Email string
	Name  string
	// PasswordHash is empty for accounts created through an OAuth2 provider
	// that never set a password.
	PasswordHash string
	// ExternalID is the provider subject (e.g. the google "sub") the account is
	// linked to. Empty when the account is not linked.
	ExternalID string
	Created    time.Time
	Updated    time.Time
}

// HasPassword reports whether password login is possible for the user.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UserPatch is a partial update. Empty fields are left untouched.
type UserPatch struct {
	// ExternalID links the user to an external account.
	ExternalID string
	// NameIfUnset sets the name only when the stored name is empty.
	NameIfUnset string
}

// DbAuth is the user directory used by the identity layer.
//
// Lookups return a nil user and a nil error when no row matches.
// Insert and Update rely on the storage constraints for uniqueness and report
// violations as ErrDuplicateEmail or ErrDuplicateExternalID.
type DbAuth interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
	GetUserById(ctx context.Context, id string) (*User, error)
	InsertUser(ctx context.Context, user User) (*User, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) (*User, error)
}
