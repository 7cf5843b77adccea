package identity

import (
	"errors"
	"fmt"

	"github.com/keyward/keyward/oauth2"
)

// Client facing failures. Storage and token errors never cross this package
// boundary unwrapped: they are translated into one of these.
var (
	ErrAccountAlreadyExists = errors.New("identity: account already exists")
	ErrInvalidCredentials   = errors.New("identity: invalid credentials")
	ErrInvalidInput         = errors.New("identity: invalid input")
	// ErrUnauthorized collapses malformed, expired and orphaned tokens.
	ErrUnauthorized  = errors.New("identity: unauthorized")
	ErrOAuthProvider = errors.New("identity: oauth2 provider error")
	// ErrStorageConflict is a duplicate key race that survived the single retry.
	ErrStorageConflict = errors.New("identity: storage conflict")
	// ErrIdentityConflict is an OAuth callback whose email and subject point at
	// different accounts, or whose email account is linked to another subject.
	ErrIdentityConflict = fmt.Errorf("%w: identity conflict", ErrOAuthProvider)

	ErrProviderNotConfigured = oauth2.ErrProviderNotConfigured
)
