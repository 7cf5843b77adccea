// Package oauth2 talks to external OAuth2 providers.
//
// A Provider builds the authorization URL and turns an authorization code into
// a normalized UserInfo. Failures are reported as distinct error variants,
// all wrapping ErrProvider, so callers can react to each one.
package oauth2

import "context"

const ProviderGoogle = "google"

// UserInfo is the identity asserted by the provider.
type UserInfo struct {
	// Subject is the stable provider account id (google "sub").
	Subject string
	Email   string
	Name    string
}

type Provider interface {
	Name() string
	// AuthCodeURL returns the provider URL the user is sent to. verifier is
	// the PKCE code verifier to keep until the callback, empty when PKCE is
	// off.
	AuthCodeURL(state string) (authURL, verifier string, err error)
	// Exchange redeems code and fetches the user identity. The returned
	// UserInfo always has a Subject and an Email.
	Exchange(ctx context.Context, code, verifier string) (*UserInfo, error)
}

// NotConfigured is the provider used when no client credentials are set.
type NotConfigured struct {
	ProviderName string
}

func (n NotConfigured) Name() string { return n.ProviderName }

func (NotConfigured) AuthCodeURL(state string) (string, string, error) {
	return "", "", ErrProviderNotConfigured
}

func (NotConfigured) Exchange(ctx context.Context, code, verifier string) (*UserInfo, error) {
	return nil, ErrProviderNotConfigured
}

// IsConfigured reports whether p can reach a real provider.
func IsConfigured(p Provider) bool {
	if p == nil {
		return false
	}
	switch p.(type) {
	case NotConfigured, *NotConfigured:
		return false
	}
	return true
}

func (u *UserInfo) validate() error {
	if u.Subject == "" {
		return ErrMissingSubject
	}
	if u.Email == "" {
		return ErrMissingEmail
	}
	return nil
}
