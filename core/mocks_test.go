package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/keyward/keyward/config"
	"github.com/keyward/keyward/identity"
	"github.com/keyward/keyward/oauth2"
	"github.com/keyward/keyward/router/servemux"
)

// MockAuth implements the Authenticator interface for testing
type MockAuth struct {
	AuthenticateFunc func(r *http.Request) (*identity.PublicUser, jsonResponse, error)
}

func (m *MockAuth) Authenticate(r *http.Request) (*identity.PublicUser, jsonResponse, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(r)
	}
	return nil, errorUnauthorized, identity.ErrUnauthorized
}

// MockValidator implements the Validator interface for testing
type MockValidator struct {
	ContentTypeFunc func(r *http.Request, allowed ...string) (jsonResponse, error)
}

func (m *MockValidator) ContentType(r *http.Request, allowed ...string) (jsonResponse, error) {
	if m.ContentTypeFunc != nil {
		return m.ContentTypeFunc(r, allowed...)
	}
	return jsonResponse{}, nil
}

// MockIdentity implements Identity with function fields.
type MockIdentity struct {
	SignupFunc        func(ctx context.Context, email, password, name string) (*identity.Session, error)
	LoginFunc         func(ctx context.Context, email, password string) (*identity.Session, error)
	CompleteOAuthFunc func(ctx context.Context, code, verifier string) (*identity.Session, error)
	ProviderFunc      func() oauth2.Provider
}

func (m *MockIdentity) Signup(ctx context.Context, email, password, name string) (*identity.Session, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, email, password, name)
	}
	return testSession, nil
}

func (m *MockIdentity) Login(ctx context.Context, email, password string) (*identity.Session, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return testSession, nil
}

func (m *MockIdentity) CompleteOAuth(ctx context.Context, code, verifier string) (*identity.Session, error) {
	if m.CompleteOAuthFunc != nil {
		return m.CompleteOAuthFunc(ctx, code, verifier)
	}
	return testSession, nil
}

func (m *MockIdentity) Provider() oauth2.Provider {
	if m.ProviderFunc != nil {
		return m.ProviderFunc()
	}
	return oauth2.NotConfigured{ProviderName: oauth2.ProviderGoogle}
}

var testSession = &identity.Session{
	Token:     "token-abc",
	ExpiresIn: 45 * time.Minute,
	User:      identity.PublicUser{ID: "user-1", Email: "a@x.com", Name: "Ann"},
}

// fakeProvider is a configured oauth2.Provider returning fixed values.
type fakeProvider struct {
	authURL  string
	verifier string
	err      error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) AuthCodeURL(state string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.authURL + "?state=" + state, f.verifier, nil
}

func (f *fakeProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.UserInfo, error) {
	return nil, f.err
}

// mapCache is a synchronous cache.Cache used as oauth2 state store.
type mapCache struct {
	mu      sync.Mutex
	items   map[string]string
	lastTTL time.Duration
	reject  bool
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[string]string)}
}

func (c *mapCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(key, value string, cost int64) bool {
	return c.SetWithTTL(key, value, cost, 0)
}

func (c *mapCache) SetWithTTL(key, value string, cost int64, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reject {
		return false
	}
	c.items[key] = value
	c.lastTTL = ttl
	return true
}

func (c *mapCache) Del(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *mapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// newTestApp builds an App with mocks. Later options override the defaults.
func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Jwt.AuthSecret = "core_test_secret_32_bytes_long_x"

	defaults := []Option{
		WithIdentity(&MockIdentity{}),
		WithAuthenticator(&MockAuth{}),
		WithConfigProvider(config.NewProvider(cfg)),
		WithRouter(servemux.New()),
		WithStateCache(newMapCache()),
		WithLogger(discardLogger()),
	}
	app, err := NewApp(append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app
}

// decodeBody decodes a JSON envelope from a response body.
func decodeBody(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("failed to decode response %q: %v", body, err)
	}
	return m
}

// expectError checks status and code of a precomputed error response.
func expectError(t *testing.T, status int, body []byte, want jsonResponse) {
	t.Helper()
	if status != want.status {
		t.Errorf("expected status %d, got %d", want.status, status)
	}
	if !bytes.Equal(body, want.body) {
		t.Errorf("expected body %s, got %s", want.body, body)
	}
}
