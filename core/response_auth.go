package core

import (
	"net/http"

	"github.com/keyward/keyward/identity"
)

// Authentication responses share one envelope:
//
//	{
//	  "status": 200,
//	  "code": "ok_login",
//	  "message": "Authentication successful",
//	  "data": {
//	    "token": "eyJhbGciOiJIUzI...",
//	    "token_type": "bearer",
//	    "expires_in": 2700,
//	    "user": {"id": "...", "email": "user@example.com", "name": "Ann"}
//	  }
//	}

const TokenTypeBearer = "bearer"

// AuthData is the data of an authentication response
type AuthData struct {
	Token     string              `json:"token"`
	TokenType string              `json:"token_type"`
	ExpiresIn int                 `json:"expires_in"` // seconds
	User      identity.PublicUser `json:"user"`
}

func NewAuthData(s *identity.Session) *AuthData {
	return &AuthData{
		Token:     s.Token,
		TokenType: TokenTypeBearer,
		ExpiresIn: int(s.ExpiresIn.Seconds()),
		User:      s.User,
	}
}

// writeAuthResponse writes a standardized authentication response
func writeAuthResponse(w http.ResponseWriter, status int, code string, s *identity.Session) {
	writeJsonWithData(w, JsonWithData{
		JsonBasic: JsonBasic{
			Status:  status,
			Code:    code,
			Message: "Authentication successful",
		},
		Data: NewAuthData(s),
	})
}
