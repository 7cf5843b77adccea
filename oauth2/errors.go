package oauth2

import (
	"errors"
	"fmt"
)

// ErrProvider is the umbrella for every failure of the external provider
// exchange. Each variant below wraps it.
var ErrProvider = errors.New("oauth2: provider error")

var (
	ErrTokenExchange     = fmt.Errorf("%w: token exchange failed", ErrProvider)
	ErrUserInfoRequest   = fmt.Errorf("%w: user info request failed", ErrProvider)
	ErrMalformedResponse = fmt.Errorf("%w: malformed provider response", ErrProvider)
	ErrMissingEmail      = fmt.Errorf("%w: missing email claim", ErrProvider)
	ErrUnverifiedEmail   = fmt.Errorf("%w: email not verified by provider", ErrProvider)
	ErrMissingSubject    = fmt.Errorf("%w: missing subject claim", ErrProvider)
	ErrInvalidIDToken    = fmt.Errorf("%w: invalid id token", ErrProvider)
	ErrInvalidState      = fmt.Errorf("%w: invalid or expired state", ErrProvider)
	ErrAuthorization     = fmt.Errorf("%w: authorization denied", ErrProvider)
)

// ErrProviderNotConfigured is returned by NotConfigured. It does not wrap
// ErrProvider: no provider was contacted.
var ErrProviderNotConfigured = errors.New("oauth2: provider not configured")
