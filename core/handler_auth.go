package core

import (
	"errors"
	"net/http"

	"github.com/keyward/keyward/identity"
)

// identityErrorResponse maps an identity layer error to its stable response.
// ErrIdentityConflict wraps ErrOAuthProvider and is checked first.
func identityErrorResponse(err error) jsonResponse {
	switch {
	case errors.Is(err, identity.ErrAccountAlreadyExists):
		return errorAccountAlreadyExists
	case errors.Is(err, identity.ErrInvalidCredentials):
		return errorInvalidCredentials
	case errors.Is(err, identity.ErrInvalidInput):
		return errorInvalidInput
	case errors.Is(err, identity.ErrUnauthorized):
		return errorUnauthorized
	case errors.Is(err, identity.ErrProviderNotConfigured):
		return errorOAuth2NotConfigured
	case errors.Is(err, identity.ErrIdentityConflict):
		return errorIdentityConflict
	case errors.Is(err, identity.ErrOAuthProvider):
		return errorOAuth2Provider
	default:
		return errorAuthDatabaseError
	}
}

// writeIdentityError writes the response of err. Unmapped errors are
// internal and logged.
func (a *App) writeIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	resp := identityErrorResponse(err)
	if resp.status >= http.StatusInternalServerError {
		a.Logger().Error("auth: internal error", "path", r.URL.Path, "error", err)
	}
	writeJsonError(w, resp)
}
