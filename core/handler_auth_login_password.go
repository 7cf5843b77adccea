package core

import (
	"net/http"
)

// LoginHandler handles password-based authentication
// Endpoint: POST /api/auth/login
// Authenticated: No
// Allowed Mimetype: application/json, application/x-www-form-urlencoded
func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if resp, err := a.Validator().ContentType(r, MimeTypeJSON, MimeTypeForm); err != nil {
		writeJsonError(w, resp)
		return
	}

	creds, resp, err := decodeCredentials(r)
	if err != nil {
		writeJsonError(w, resp)
		return
	}

	session, err := a.Identity().Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		a.writeIdentityError(w, r, err)
		return
	}

	writeAuthResponse(w, http.StatusOK, CodeOkLogin, session)
}
