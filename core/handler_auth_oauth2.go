package core

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/keyward/keyward/cache"
	"github.com/keyward/keyward/crypto"
	"github.com/keyward/keyward/oauth2"
)

// stateCost is the cache cost of one pending oauth2 state.
const stateCost = 1

// waiter is implemented by caches with buffered writes, like ristretto.
type waiter interface {
	Wait()
}

// OAuth2LoginHandler starts the authorization code flow. It stores a fresh
// state, with its PKCE verifier, and redirects to the provider.
// Endpoint: GET /api/auth/google/login
// Authenticated: No
// Allowed Mimetype: none
func (a *App) OAuth2LoginHandler(w http.ResponseWriter, r *http.Request) {
	provider := a.Identity().Provider()
	if !oauth2.IsConfigured(provider) {
		writeJsonError(w, errorOAuth2NotConfigured)
		return
	}

	state := crypto.Oauth2State()
	authURL, verifier, err := provider.AuthCodeURL(state)
	if err != nil {
		if errors.Is(err, oauth2.ErrProviderNotConfigured) {
			writeJsonError(w, errorOAuth2NotConfigured)
			return
		}
		a.Logger().Error("oauth2: failed to build authorization url", "provider", provider.Name(), "error", err)
		writeJsonError(w, errorOAuth2Provider)
		return
	}

	ttl := a.Config().OAuth2.Google.StateTTL.Duration
	if !a.StateCache().SetWithTTL(state, verifier, stateCost, ttl) {
		a.Logger().Error("oauth2: state cache rejected state", "provider", provider.Name())
		writeJsonError(w, errorServiceUnavailable)
		return
	}
	if wc, ok := a.StateCache().(waiter); ok {
		wc.Wait()
	}

	setHeaders(w, map[string]string{"Cache-Control": "no-store"})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// OAuth2CallbackHandler redeems the authorization code, signs the identity in
// and redirects to the frontend with the token as query parameter.
// The state is single use: it is consumed before anything else is checked.
// Endpoint: GET /api/auth/google/callback
// Authenticated: No
// Allowed Mimetype: none
func (a *App) OAuth2CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if !oauth2.IsConfigured(a.Identity().Provider()) {
		writeJsonError(w, errorOAuth2NotConfigured)
		return
	}

	q := r.URL.Query()

	var verifier string
	var found bool
	if state := q.Get("state"); state != "" {
		verifier, found = cache.Take(a.StateCache(), state)
	}

	if providerErr := q.Get("error"); providerErr != "" {
		a.Logger().Info("oauth2: provider returned error", "error", providerErr, "description", q.Get("error_description"))
		writeJsonError(w, errorOAuth2Provider)
		return
	}
	if !found {
		writeJsonError(w, errorOAuth2InvalidState)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeJsonError(w, errorOAuth2Provider)
		return
	}

	session, err := a.Identity().CompleteOAuth(r.Context(), code, verifier)
	if err != nil {
		a.writeIdentityError(w, r, err)
		return
	}

	target, err := frontendRedirect(a.Config().FrontendURL, a.Config().FrontendCallbackPath, session.Token)
	if err != nil {
		a.Logger().Error("oauth2: invalid frontend url", "error", err)
		writeJsonError(w, errorServiceUnavailable)
		return
	}

	setHeaders(w, map[string]string{"Cache-Control": "no-store"})
	http.Redirect(w, r, target, http.StatusFound)
}

// frontendRedirect returns {frontendURL}{callbackPath}?token=<token>.
func frontendRedirect(frontendURL, callbackPath, token string) (string, error) {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return "", err
	}
	u = u.JoinPath(callbackPath)
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
