package core

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/keyward/keyward/identity"
)

// Authenticator defines the interface for authentication operations
type Authenticator interface {
	Authenticate(r *http.Request) (*identity.PublicUser, jsonResponse, error)
}

// TokenResolver is implemented by *identity.CurrentUserResolver.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*identity.PublicUser, error)
}

// DefaultAuthenticator reads the bearer token of the Authorization header
// and resolves it to the identity it was issued for.
type DefaultAuthenticator struct {
	resolver TokenResolver
	logger   *slog.Logger
}

func NewDefaultAuthenticator(resolver TokenResolver, logger *slog.Logger) *DefaultAuthenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultAuthenticator{resolver: resolver, logger: logger}
}

// Authenticate implements the Authenticator interface. Every token failure
// is the same errorUnauthorized response.
func (a *DefaultAuthenticator) Authenticate(r *http.Request) (*identity.PublicUser, jsonResponse, error) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, errorUnauthorized, identity.ErrUnauthorized
	}

	user, err := a.resolver.Resolve(r.Context(), token)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			return nil, errorUnauthorized, err
		}
		a.logger.Error("auth: failed to resolve token", "error", err)
		return nil, errorAuthDatabaseError, err
	}

	return user, jsonResponse{}, nil
}

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. The scheme is case insensitive.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
