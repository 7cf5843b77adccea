package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/keyward/keyward/crypto"
	"github.com/keyward/keyward/db/zombiezen"
	"github.com/keyward/keyward/identity"
	"github.com/keyward/keyward/migrations"
	"zombiezen.com/go/sqlite/sqlitex"
)

// newFlowApp wires the handlers to a real resolver on an in-memory directory.
func newFlowApp(t *testing.T) *App {
	t.Helper()
	pool, err := sqlitex.NewPool("file::memory:", sqlitex.PoolOptions{PoolSize: 1})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	if err := migrations.Apply(context.Background(), pool); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	directory, err := zombiezen.New(pool)
	if err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	tokens, err := crypto.NewTokenIssuer([]byte("core_test_secret_32_bytes_long_x"))
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}
	resolver, err := identity.NewResolver(directory, tokens, 45*time.Minute, identity.WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}
	current := identity.NewCurrentUserResolver(directory, tokens, discardLogger(), nil)

	return newTestApp(t,
		WithIdentity(resolver),
		WithAuthenticator(NewDefaultAuthenticator(current, discardLogger())),
	)
}

func TestSignupLoginMeFlow(t *testing.T) {
	app := newFlowApp(t)

	signup := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/auth/signup", strings.NewReader(`{"email":"a@x.com","password":"p1","name":"Ann"}`))
	req.Header.Set("Content-Type", "application/json")
	app.SignupHandler(signup, req)
	if signup.Code != http.StatusCreated {
		t.Fatalf("signup: expected %d, got %d: %s", http.StatusCreated, signup.Code, signup.Body.String())
	}
	t1 := decodeBody(t, signup.Body.Bytes())["data"].(map[string]interface{})["token"].(string)

	dup := httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/auth/signup", strings.NewReader(`{"email":"a@x.com","password":"other"}`))
	req.Header.Set("Content-Type", "application/json")
	app.SignupHandler(dup, req)
	expectError(t, dup.Code, dup.Body.Bytes(), errorAccountAlreadyExists)

	login := httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(url.Values{"username": {"a@x.com"}, "password": {"p1"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	app.LoginHandler(login, req)
	if login.Code != http.StatusOK {
		t.Fatalf("login: expected %d, got %d: %s", http.StatusOK, login.Code, login.Body.String())
	}
	t2 := decodeBody(t, login.Body.Bytes())["data"].(map[string]interface{})["token"].(string)
	if t1 == t2 {
		t.Error("expected distinct tokens for signup and login")
	}

	for _, token := range []string{t1, t2} {
		me := httptest.NewRecorder()
		req = httptest.NewRequest("GET", "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		app.MeHandler(me, req)
		if me.Code != http.StatusOK {
			t.Fatalf("me: expected %d, got %d: %s", http.StatusOK, me.Code, me.Body.String())
		}
		data := decodeBody(t, me.Body.Bytes())["data"].(map[string]interface{})
		if data["email"] != "a@x.com" || data["name"] != "Ann" {
			t.Errorf("me: unexpected identity %v", data)
		}
	}

	wrong := httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"email":"a@x.com","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	app.LoginHandler(wrong, req)
	expectError(t, wrong.Code, wrong.Body.Bytes(), errorInvalidCredentials)

	forged := httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+t1+"x")
	app.MeHandler(forged, req)
	expectError(t, forged.Code, forged.Body.Bytes(), errorUnauthorized)
	if forged.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("expected bearer challenge on 401")
	}
}
