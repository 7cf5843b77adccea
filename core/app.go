package core

import (
	"context"
	"errors"
	"log/slog"

	"github.com/keyward/keyward/cache"
	"github.com/keyward/keyward/config"
	"github.com/keyward/keyward/identity"
	"github.com/keyward/keyward/metrics"
	"github.com/keyward/keyward/oauth2"
	"github.com/keyward/keyward/router"
)

// Identity is the identity layer as seen by the handlers.
// *identity.Resolver implements it.
type Identity interface {
	Signup(ctx context.Context, email, password, name string) (*identity.Session, error)
	Login(ctx context.Context, email, password string) (*identity.Session, error)
	CompleteOAuth(ctx context.Context, code, verifier string) (*identity.Session, error)
	Provider() oauth2.Provider
}

// App is the application wide context. Handlers and middleware take App as
// receiver.
type App struct {
	identity       Identity
	authenticator  Authenticator
	validator      Validator
	router         router.Router
	stateCache     cache.Cache[string, string] // oauth2 state -> pkce verifier
	configProvider *config.Provider
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

func NewApp(opts ...Option) (*App, error) {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}

	if a.identity == nil {
		return nil, errors.New("identity is required but was not provided (use WithIdentity)")
	}
	if a.authenticator == nil {
		return nil, errors.New("authenticator is required but was not provided (use WithAuthenticator)")
	}
	if a.configProvider == nil {
		return nil, errors.New("config provider is required but was not provided (use WithConfigProvider)")
	}
	if a.router == nil {
		return nil, errors.New("router is required but was not provided (use WithRouter)")
	}
	if a.stateCache == nil {
		return nil, errors.New("state cache is required but was not provided (use WithStateCache)")
	}
	if a.validator == nil {
		a.validator = NewValidator()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	return a, nil
}

func (a *App) Router() router.Router {
	return a.router
}

func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.configProvider.Get()
}

// Metrics returns the collectors, nil when metrics are disabled.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

func (a *App) Identity() Identity {
	return a.identity
}

func (a *App) Auth() Authenticator {
	return a.authenticator
}

func (a *App) Validator() Validator {
	return a.validator
}

func (a *App) StateCache() cache.Cache[string, string] {
	return a.stateCache
}
