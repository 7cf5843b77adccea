// Package keyward wires the identity service: configuration, storage, the
// token issuer, the OAuth2 provider, the state cache and the HTTP server.
package keyward

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	phuslog "github.com/phuslu/log"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/keyward/keyward/cache"
	"github.com/keyward/keyward/cache/redis"
	"github.com/keyward/keyward/cache/ristretto"
	"github.com/keyward/keyward/config"
	"github.com/keyward/keyward/core"
	"github.com/keyward/keyward/core/prerouter"
	"github.com/keyward/keyward/crypto"
	"github.com/keyward/keyward/db/zombiezen"
	"github.com/keyward/keyward/events"
	"github.com/keyward/keyward/identity"
	"github.com/keyward/keyward/metrics"
	"github.com/keyward/keyward/migrations"
	"github.com/keyward/keyward/oauth2"
	"github.com/keyward/keyward/router"
	"github.com/keyward/keyward/router/httprouter"
	"github.com/keyward/keyward/server"
)

// startupTimeout bounds the blocking steps of New: migrations and the redis
// ping.
const startupTimeout = 30 * time.Second

type initializer struct {
	logger     *slog.Logger
	logOutput  io.Writer
	pool       *sqlitex.Pool
	router     router.Router
	stateCache cache.Cache[string, string]
	publisher  events.Publisher
	provider   oauth2.Provider
	closers    []server.Closer
}

// New loads the configuration at configPath (empty means defaults and the
// environment only) and builds the App and its Server.
func New(configPath string, opts ...Option) (*core.App, *server.Server, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	return NewFromConfig(ctx, cfg, opts...)
}

// NewFromConfig builds the App and its Server from an already validated
// configuration. Resources opened here are closed by the Server on shutdown,
// or right away when a later step fails.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*core.App, *server.Server, error) {
	i := &initializer{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(i)
	}

	app, srv, err := i.build(ctx, cfg)
	if err != nil {
		i.close()
		return nil, nil, err
	}
	return app, srv, nil
}

func (i *initializer) build(ctx context.Context, cfg *config.Config) (*core.App, *server.Server, error) {
	if i.logger == nil {
		i.logger = newLogger(cfg.Log, i.logOutput)
	}
	logger := i.logger

	if i.pool == nil {
		pool, err := NewZombiezenPool(cfg.DB)
		if err != nil {
			logger.Error("failed to open database", "path", cfg.DB.Path, "error", err)
			return nil, nil, err
		}
		i.pool = pool
		i.addCloser("sqlite", pool.Close)
	}

	if err := migrations.Apply(ctx, i.pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		return nil, nil, err
	}

	directory, err := zombiezen.New(i.pool)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := crypto.NewTokenIssuer([]byte(cfg.Jwt.AuthSecret))
	if err != nil {
		logger.Error("failed to create token issuer", "error", err)
		return nil, nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	if i.publisher == nil {
		publisher, err := newPublisher(cfg.Events)
		if err != nil {
			logger.Error("failed to connect to broker", "error", err)
			return nil, nil, err
		}
		i.publisher = publisher
		i.addCloser("events", publisher.Close)
	}

	if i.provider == nil {
		i.provider = newGoogleProvider(cfg.OAuth2.Google)
	}
	if !oauth2.IsConfigured(i.provider) {
		logger.Warn("oauth2 provider not configured, oauth2 endpoints answer 503", "provider", i.provider.Name())
	}

	resolver, err := identity.NewResolver(directory, tokens, cfg.Jwt.AuthTokenDuration.Duration,
		identity.WithProvider(i.provider),
		identity.WithLogger(logger),
		identity.WithPublisher(i.publisher),
		identity.WithMetrics(m),
	)
	if err != nil {
		return nil, nil, err
	}
	currentUser := identity.NewCurrentUserResolver(directory, tokens, logger, m)

	if i.stateCache == nil {
		if err := i.newStateCache(ctx, cfg.Cache); err != nil {
			logger.Error("failed to create state cache", "backend", cfg.Cache.Backend, "error", err)
			return nil, nil, err
		}
	}

	if i.router == nil {
		i.router = httprouter.New()
	}

	configProvider := config.NewProvider(cfg)
	app, err := core.NewApp(
		core.WithConfigProvider(configProvider),
		core.WithIdentity(resolver),
		core.WithAuthenticator(core.NewDefaultAuthenticator(currentUser, logger)),
		core.WithStateCache(i.stateCache),
		core.WithRouter(i.router),
		core.WithLogger(logger),
		core.WithMetrics(m),
	)
	if err != nil {
		logger.Error("failed to initialize core app", "error", err)
		return nil, nil, err
	}

	route(cfg, app)

	handler := router.NewChain(app.Router()).WithMiddleware(
		prerouter.NewRecorder(app).Execute,
		prerouter.NewRequestLog(app).Execute,
		prerouter.NewMetrics(app).Execute,
		prerouter.NewCors(app).Execute,
		prerouter.NewLimitRequestBody(app).Execute,
	).Handler()

	srv := server.NewServer(configProvider, handler, logger)
	// reverse opening order, the pool is closed last.
	for j := len(i.closers) - 1; j >= 0; j-- {
		srv.AddCloser(i.closers[j])
	}
	i.closers = nil

	return app, srv, nil
}

func (i *initializer) addCloser(name string, fn func() error) {
	i.closers = append(i.closers, server.Closer{Name: name, Close: fn})
}

// close releases what build opened, newest first.
func (i *initializer) close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		c := i.closers[j]
		if err := c.Close(); err != nil && i.logger != nil {
			i.logger.Error("failed to close resource", "resource", c.Name, "error", err)
		}
	}
	i.closers = nil
}

func (i *initializer) newStateCache(ctx context.Context, cfg config.Cache) error {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		c, err := redis.Dial(ctx, cfg.RedisAddr, redis.WithLogger(i.logger))
		if err != nil {
			return err
		}
		i.stateCache = c
		i.addCloser("redis", c.Close)
	default:
		c, err := ristretto.New[string](cfg.Level)
		if err != nil {
			return err
		}
		i.stateCache = c
		i.addCloser("ristretto", func() error {
			c.Close()
			return nil
		})
	}
	return nil
}

func newPublisher(cfg config.Events) (events.Publisher, error) {
	if cfg.AmqpURL == "" {
		return events.NewNoop(), nil
	}
	p, err := events.NewRabbit(cfg.AmqpURL, cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	return p, nil
}

func newGoogleProvider(p config.OAuth2Provider) oauth2.Provider {
	return oauth2.NewGoogle(oauth2.GoogleConfig{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		AuthURL:      p.AuthURL,
		TokenURL:     p.TokenURL,
		UserInfoURL:  p.UserInfoURL,
		Issuer:       p.Issuer,
		JWKSURL:      p.JWKSURL,
		Scopes:       p.Scopes,
		PKCE:         p.PKCE,
	})
}

// newLogger builds the logger described by cfg. JSON goes through phuslu/log,
// text through the standard library handler.
func newLogger(cfg config.Log, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       cfg.Level.Level,
		ReplaceAttr: DefaultLoggerOptions.ReplaceAttr,
	}
	if cfg.Format == config.LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(phuslog.SlogNewJSONHandler(w, opts))
}
