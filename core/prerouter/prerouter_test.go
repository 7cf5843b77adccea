package prerouter

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/keyward/keyward/config"
	"github.com/keyward/keyward/core"
	"github.com/keyward/keyward/identity"
	"github.com/keyward/keyward/metrics"
	"github.com/keyward/keyward/oauth2"
	"github.com/keyward/keyward/router/servemux"
)

// stubIdentity satisfies core.Identity. The middlewares never call it.
type stubIdentity struct{}

func (stubIdentity) Signup(ctx context.Context, email, password, name string) (*identity.Session, error) {
	return nil, identity.ErrInvalidInput
}
func (stubIdentity) Login(ctx context.Context, email, password string) (*identity.Session, error) {
	return nil, identity.ErrInvalidCredentials
}
func (stubIdentity) CompleteOAuth(ctx context.Context, code, verifier string) (*identity.Session, error) {
	return nil, identity.ErrProviderNotConfigured
}
func (stubIdentity) Provider() oauth2.Provider { return oauth2.NotConfigured{} }

type nopCache struct{}

func (nopCache) Get(key string) (string, bool)                                    { return "", false }
func (nopCache) Set(key, value string, cost int64) bool                           { return true }
func (nopCache) SetWithTTL(key, value string, cost int64, ttl time.Duration) bool { return true }
func (nopCache) Del(key string)                                                   {}

func newTestApp(t *testing.T, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *core.App {
	t.Helper()
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	}
	app, err := core.NewApp(
		core.WithIdentity(stubIdentity{}),
		core.WithAuthenticator(core.NewDefaultAuthenticator(nil, logger)),
		core.WithConfigProvider(config.NewProvider(cfg)),
		core.WithRouter(servemux.New()),
		core.WithStateCache(nopCache{}),
		core.WithLogger(logger),
		core.WithMetrics(m),
	)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app
}

// lastRecord parses the single JSON record written to b.
func lastRecord(t *testing.T, b *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var record map[string]interface{}
	if err := json.Unmarshal(b.Bytes(), &record); err != nil {
		t.Fatalf("failed to parse log record %q: %v", b.String(), err)
	}
	return record
}
