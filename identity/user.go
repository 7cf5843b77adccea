package identity

import (
	"time"

	"github.com/keyward/keyward/db"
)

// PublicUser is the identity view handed to clients. It never carries the
// password hash or the external id.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func publicUser(u *db.User) PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name}
}

// Session is the result of a successful signup, login or OAuth callback.
type Session struct {
	Token     string
	ExpiresIn time.Duration
	User      PublicUser
}
