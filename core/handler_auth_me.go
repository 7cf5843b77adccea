package core

import (
	"net/http"
)

// MeHandler returns the identity of the bearer token
// Endpoint: GET /api/auth/me
// Authenticated: Yes
// Allowed Mimetype: none
func (a *App) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, resp, err := a.Auth().Authenticate(r)
	if err != nil {
		writeJsonError(w, resp)
		return
	}

	writeJsonWithData(w, JsonWithData{
		JsonBasic: JsonBasic{
			Status:  http.StatusOK,
			Code:    CodeOkCurrentUser,
			Message: "Current user",
		},
		Data: user,
	})
}
