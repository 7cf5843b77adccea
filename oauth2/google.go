package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	DefaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	DefaultGoogleJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"

	// exchangeTimeout bounds the token exchange plus the identity fetch, so an
	// unresponsive provider cannot hang the callback.
	exchangeTimeout = 10 * time.Second

	// maxUserInfoSize caps the userinfo body read.
	maxUserInfoSize = 1 << 20
)

// GoogleConfig are the client settings. AuthURL and TokenURL default to the
// google endpoints. When Issuer is set the id_token returned by the token
// endpoint is verified and used as identity; otherwise UserInfoURL is queried.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Issuer       string
	JWKSURL      string
	Scopes       []string
	PKCE         bool
}

type Google struct {
	conf        *oauth2.Config
	userInfoURL string
	pkce        bool
	client      *http.Client
	idVerifier  *oidc.IDTokenVerifier
}

type GoogleOption func(*Google)

// WithHTTPClient sets the client used for every provider request.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) { g.client = c }
}

// NewGoogle returns NotConfigured unless both client id and secret are set.
func NewGoogle(cfg GoogleConfig, opts ...GoogleOption) Provider {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return NotConfigured{ProviderName: ProviderGoogle}
	}

	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	g := &Google{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: cfg.UserInfoURL,
		pkce:        cfg.PKCE,
	}
	if g.userInfoURL == "" {
		g.userInfoURL = DefaultGoogleUserInfoURL
	}
	for _, opt := range opts {
		opt(g)
	}

	if cfg.Issuer != "" {
		jwksURL := cfg.JWKSURL
		if jwksURL == "" {
			jwksURL = DefaultGoogleJWKSURL
		}
		keySet := oidc.NewRemoteKeySet(g.context(context.Background()), jwksURL)
		g.idVerifier = oidc.NewVerifier(cfg.Issuer, keySet, &oidc.Config{ClientID: cfg.ClientID})
	}

	return g
}

func (g *Google) Name() string { return ProviderGoogle }

func (g *Google) AuthCodeURL(state string) (string, string, error) {
	if !g.pkce {
		return g.conf.AuthCodeURL(state, oauth2.AccessTypeOnline), "", nil
	}
	verifier := oauth2.GenerateVerifier()
	authURL := g.conf.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
	return authURL, verifier, nil
}

func (g *Google) Exchange(ctx context.Context, code, verifier string) (*UserInfo, error) {
	ctx, cancel := context.WithTimeout(g.context(ctx), exchangeTimeout)
	defer cancel()

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	token, err := g.conf.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}

	var claims googleClaims
	if g.idVerifier != nil {
		claims, err = g.fromIDToken(ctx, token)
	} else {
		claims, err = g.fromUserInfo(ctx, token)
	}
	if err != nil {
		return nil, err
	}

	return claims.userInfo()
}

// context carries the custom http client to the oauth2 and oidc packages.
func (g *Google) context(ctx context.Context) context.Context {
	if g.client == nil {
		return ctx
	}
	return oidc.ClientContext(context.WithValue(ctx, oauth2.HTTPClient, g.client), g.client)
}

func (g *Google) fromIDToken(ctx context.Context, token *oauth2.Token) (googleClaims, error) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return googleClaims{}, fmt.Errorf("%w: no id_token in token response", ErrInvalidIDToken)
	}

	idToken, err := g.idVerifier.Verify(ctx, raw)
	if err != nil {
		return googleClaims{}, fmt.Errorf("%w: %w", ErrInvalidIDToken, err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return googleClaims{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	claims.Sub = idToken.Subject
	return claims, nil
}

func (g *Google) fromUserInfo(ctx context.Context, token *oauth2.Token) (googleClaims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return googleClaims{}, fmt.Errorf("%w: %w", ErrUserInfoRequest, err)
	}

	resp, err := g.conf.Client(ctx, token).Do(req)
	if err != nil {
		return googleClaims{}, fmt.Errorf("%w: %w", ErrUserInfoRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleClaims{}, fmt.Errorf("%w: status %d", ErrUserInfoRequest, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoSize))
	if err != nil {
		return googleClaims{}, fmt.Errorf("%w: %w", ErrUserInfoRequest, err)
	}

	var claims googleClaims
	if err := json.Unmarshal(body, &claims); err != nil {
		return googleClaims{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return claims, nil
}

// googleClaims covers both the v2 userinfo shape (id, verified_email) and the
// OIDC one (sub, email_verified).
type googleClaims struct {
	ID            string `json:"id"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	VerifiedEmail *bool  `json:"verified_email"`
	EmailVerified *bool  `json:"email_verified"`
}

func (c googleClaims) userInfo() (*UserInfo, error) {
	info := &UserInfo{
		Subject: c.Sub,
		Email:   c.Email,
		Name:    c.Name,
	}
	if info.Subject == "" {
		info.Subject = c.ID
	}
	if err := info.validate(); err != nil {
		return nil, err
	}

	for _, verified := range []*bool{c.VerifiedEmail, c.EmailVerified} {
		if verified != nil && !*verified {
			return nil, ErrUnverifiedEmail
		}
	}
	return info, nil
}
