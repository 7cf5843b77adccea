package core

import (
	"log/slog"

	"github.com/keyward/keyward/cache"
	"github.com/keyward/keyward/config"
	"github.com/keyward/keyward/metrics"
	"github.com/keyward/keyward/router"
)

type Option func(*App)

// WithIdentity sets the identity layer used by the auth handlers
func WithIdentity(i Identity) Option {
	return func(a *App) {
		a.identity = i
	}
}

// WithAuthenticator sets the bearer token gate of protected endpoints
func WithAuthenticator(auth Authenticator) Option {
	return func(a *App) {
		a.authenticator = auth
	}
}

func WithValidator(v Validator) Option {
	return func(a *App) {
		a.validator = v
	}
}

// WithStateCache sets the short lived oauth2 state store
func WithStateCache(c cache.Cache[string, string]) Option {
	return func(a *App) {
		a.stateCache = c
	}
}

// WithRouter sets the router implementation
func WithRouter(r router.Router) Option {
	return func(a *App) {
		a.router = r
	}
}

// WithConfigProvider sets the application's configuration provider.
func WithConfigProvider(p *config.Provider) Option {
	return func(a *App) {
		a.configProvider = p
	}
}

// WithLogger sets the logger implementation
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithMetrics sets the prometheus collectors. nil disables them.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}
