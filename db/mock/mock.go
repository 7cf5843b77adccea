package mock

import (
	"context"

	"github.com/keyward/keyward/db"
)

// Compile-time check to ensure Db implements the DbAuth interface
var _ db.DbAuth = (*Db)(nil)

// Db implements db.DbAuth for testing purposes.
// Use function fields to allow overriding behavior in specific tests.
type Db struct {
	GetUserByEmailFunc      func(email string) (*db.User, error)
	GetUserByExternalIDFunc func(externalID string) (*db.User, error)
	GetUserByIdFunc         func(id string) (*db.User, error)
	InsertUserFunc          func(user db.User) (*db.User, error)
	UpdateUserFunc          func(id string, patch db.UserPatch) (*db.User, error)
}

func (m *Db) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	if m.GetUserByEmailFunc != nil {
		return m.GetUserByEmailFunc(email)
	}
	return nil, nil // Default: not found
}

func (m *Db) GetUserByExternalID(ctx context.Context, externalID string) (*db.User, error) {
	if m.GetUserByExternalIDFunc != nil {
		return m.GetUserByExternalIDFunc(externalID)
	}
	return nil, nil // Default: not found
}

func (m *Db) GetUserById(ctx context.Context, id string) (*db.User, error) {
	if m.GetUserByIdFunc != nil {
		return m.GetUserByIdFunc(id)
	}
	return nil, nil // Default: not found
}

func (m *Db) InsertUser(ctx context.Context, user db.User) (*db.User, error) {
	if m.InsertUserFunc != nil {
		return m.InsertUserFunc(user)
	}
	// Default: echo the user back with a mock id
	user.ID = "mock-user-id"
	return &user, nil
}

func (m *Db) UpdateUser(ctx context.Context, id string, patch db.UserPatch) (*db.User, error) {
	if m.UpdateUserFunc != nil {
		return m.UpdateUserFunc(id, patch)
	}
	return nil, db.ErrUserNotFound
}
