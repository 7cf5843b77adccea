package core

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/keyward/keyward/identity"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	FullName string `json:"full_name"` // accepted alias of name
}

func (s signupRequest) name() string {
	if s.Name != "" {
		return s.Name
	}
	return s.FullName
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// decodeJSON decodes the body into v. A body over the configured size limit
// is reported as errorRequestEntityTooLarge.
func decodeJSON(r *http.Request, v any) (jsonResponse, error) {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errorRequestEntityTooLarge, err
		}
		return errorInvalidInput, err
	}
	return jsonResponse{}, nil
}

// decodeCredentials reads login credentials from a JSON body or from an
// OAuth2 password grant style form, where "username" carries the email.
func decodeCredentials(r *http.Request) (credentials, jsonResponse, error) {
	var c credentials

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == MimeTypeForm {
		if err := r.ParseForm(); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return c, errorRequestEntityTooLarge, err
			}
			return c, errorInvalidInput, err
		}
		c.Email = r.PostForm.Get("username")
		if c.Email == "" {
			c.Email = r.PostForm.Get("email")
		}
		c.Password = r.PostForm.Get("password")
	} else if resp, err := decodeJSON(r, &c); err != nil {
		return c, resp, err
	}

	c.Email = identity.NormalizeEmail(c.Email)
	if c.Email == "" || c.Password == "" {
		return c, errorInvalidInput, errors.New("missing email or password")
	}
	return c, jsonResponse{}, nil
}
