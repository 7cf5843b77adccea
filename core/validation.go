package core

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/mail"
	"slices"
)

const (
	MimeTypeJSON = "application/json"
	MimeTypeForm = "application/x-www-form-urlencoded"
)

var errInvalidContentType = errors.New("invalid content type")

// Validator defines an interface for request validation operations
type Validator interface {
	// ContentType checks that the request media type is one of allowed
	ContentType(r *http.Request, allowed ...string) (jsonResponse, error)
}

// DefaultValidator implements the Validator interface
type DefaultValidator struct{}

func NewValidator() Validator {
	return &DefaultValidator{}
}

// ContentType ignores media type parameters such as charset. Any mismatch is
// a 415.
func (v *DefaultValidator) ContentType(r *http.Request, allowed ...string) (jsonResponse, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return errorInvalidContentType, errInvalidContentType
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !slices.Contains(allowed, mediaType) {
		return errorInvalidContentType, errInvalidContentType
	}

	return jsonResponse{}, nil
}

// ValidateEmail checks that email is a bare RFC 5322 address, without display
// name or angle brackets.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if addr.Address != email {
		return fmt.Errorf("invalid email format: %q is not a bare address", email)
	}
	return nil
}
