package core

import (
	"net/http"

	"github.com/keyward/keyward/identity"
)

// SignupHandler creates a password account and signs it in
// Endpoint: POST /api/auth/signup
// Authenticated: No
// Allowed Mimetype: application/json
func (a *App) SignupHandler(w http.ResponseWriter, r *http.Request) {
	if resp, err := a.Validator().ContentType(r, MimeTypeJSON); err != nil {
		writeJsonError(w, resp)
		return
	}

	var req signupRequest
	if resp, err := decodeJSON(r, &req); err != nil {
		writeJsonError(w, resp)
		return
	}

	email := identity.NormalizeEmail(req.Email)
	if err := ValidateEmail(email); err != nil {
		writeJsonError(w, errorInvalidInput)
		return
	}

	session, err := a.Identity().Signup(r.Context(), email, req.Password, req.name())
	if err != nil {
		a.writeIdentityError(w, r, err)
		return
	}

	writeAuthResponse(w, http.StatusCreated, CodeOkSignup, session)
}
