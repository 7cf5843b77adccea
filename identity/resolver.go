// Package identity implements signup, password login, OAuth2 account matching
// and linking, and the bearer token gate of protected requests.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/keyward/keyward/crypto"
	"github.com/keyward/keyward/db"
	"github.com/keyward/keyward/events"
	"github.com/keyward/keyward/metrics"
	"github.com/keyward/keyward/oauth2"
)

// Operation names used in logs and metrics.
const (
	OpSignup        = "signup"
	OpLogin         = "login"
	OpOAuthCallback = "oauth2_callback"
	OpResolve       = "resolve"
)

// oauthAttempts bounds the lookup-then-write loop of the OAuth callback: the
// first attempt plus one re-read after a lost duplicate key race.
const oauthAttempts = 2

// Resolver orchestrates the identity operations on top of the user directory.
// It is safe for concurrent use.
type Resolver struct {
	db        db.DbAuth
	tokens    *crypto.TokenIssuer
	tokenTTL  time.Duration
	provider  oauth2.Provider
	logger    *slog.Logger
	publisher events.Publisher
	metrics   *metrics.Metrics
}

type Option func(*Resolver)

func WithProvider(p oauth2.Provider) Option {
	return func(r *Resolver) { r.provider = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func WithPublisher(p events.Publisher) Option {
	return func(r *Resolver) { r.publisher = p }
}

// WithMetrics sets the collectors. nil disables them.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver builds a Resolver. Without WithProvider the OAuth operations
// fail with ErrProviderNotConfigured.
func NewResolver(directory db.DbAuth, tokens *crypto.TokenIssuer, tokenTTL time.Duration, opts ...Option) (*Resolver, error) {
	if directory == nil {
		return nil, errors.New("identity: nil user directory")
	}
	if tokens == nil {
		return nil, errors.New("identity: nil token issuer")
	}
	if tokenTTL <= 0 {
		return nil, fmt.Errorf("identity: %w", crypto.ErrInvalidTTL)
	}

	r := &Resolver{
		db:        directory,
		tokens:    tokens,
		tokenTTL:  tokenTTL,
		provider:  oauth2.NotConfigured{},
		logger:    slog.Default(),
		publisher: events.NewNoop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Provider returns the configured OAuth2 provider, possibly oauth2.NotConfigured.
func (r *Resolver) Provider() oauth2.Provider {
	return r.provider
}

// Signup creates a password account. The email uniqueness check is the
// insert itself.
func (r *Resolver) Signup(ctx context.Context, email, password, name string) (*Session, error) {
	if email == "" {
		r.metrics.AuthOperation(OpSignup, metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	hash, err := crypto.GenerateHash(password)
	if err != nil {
		r.metrics.AuthOperation(OpSignup, metrics.OutcomeRejected)
		if errors.Is(err, crypto.ErrPasswordEmpty) || errors.Is(err, crypto.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}

	user, err := r.db.InsertUser(ctx, db.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			r.metrics.AuthOperation(OpSignup, metrics.OutcomeRejected)
			return nil, ErrAccountAlreadyExists
		}
		r.metrics.AuthOperation(OpSignup, metrics.OutcomeError)
		return nil, fmt.Errorf("identity: insert user: %w", err)
	}

	session, err := r.session(OpSignup, user)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, events.KeyRegistered, user, "password")
	return session, nil
}

var (
	timingHashOnce sync.Once
	timingHash     string
)

// equalizeTiming burns one bcrypt comparison so that a login for an unknown
// email or a password-less account costs about as much as a wrong password.
func equalizeTiming(password string) {
	timingHashOnce.Do(func() {
		timingHash, _ = crypto.GenerateHash("keyward-timing-equalizer")
	})
	crypto.CheckPassword(password, timingHash)
}

// Login checks a password. Unknown email, missing password hash and wrong
// password are the same ErrInvalidCredentials to the caller; only the log
// tells them apart.
func (r *Resolver) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := r.db.GetUserByEmail(ctx, email)
	if err != nil {
		r.metrics.AuthOperation(OpLogin, metrics.OutcomeError)
		return nil, fmt.Errorf("identity: get user by email: %w", err)
	}

	reason := ""
	switch {
	case user == nil:
		reason = "unknown_email"
		equalizeTiming(password)
	case !user.HasPassword():
		reason = "no_password"
		equalizeTiming(password)
	case !crypto.CheckPassword(password, user.PasswordHash):
		reason = "wrong_password"
	}
	if reason != "" {
		r.logger.Info("login rejected", "reason", reason)
		r.metrics.AuthOperation(OpLogin, metrics.OutcomeRejected)
		return nil, ErrInvalidCredentials
	}

	session, err := r.session(OpLogin, user)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, events.KeyLoggedIn, user, "password")
	return session, nil
}

// CompleteOAuth redeems an authorization code with the provider and runs the
// account matching of OAuthCallback. Provider failures never touch the
// directory.
func (r *Resolver) CompleteOAuth(ctx context.Context, code, verifier string) (*Session, error) {
	if !oauth2.IsConfigured(r.provider) {
		return nil, ErrProviderNotConfigured
	}

	info, err := r.provider.Exchange(ctx, code, verifier)
	if err != nil {
		r.logger.Warn("oauth2: provider exchange failed", "provider", r.provider.Name(), "error", err)
		r.metrics.AuthOperation(OpOAuthCallback, metrics.OutcomeRejected)
		if errors.Is(err, oauth2.ErrProviderNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrOAuthProvider, err)
	}

	return r.OAuthCallback(ctx, *info)
}

// linkOutcome is what OAuthCallback did to the directory.
type linkOutcome int

const (
	outcomeExisting linkOutcome = iota // already linked, no mutation
	outcomeCreated
	outcomeLinked
)

// OAuthCallback finds or creates the account of a provider identity:
//   - no account with the subject or the email: create one without password
//   - the email account has no external id: link it, name only if unset
//   - the account is already linked to the subject: no mutation
//
// The email and subject matching two different accounts, or the email account
// being linked to another subject, is ErrIdentityConflict. A lost duplicate
// key race is retried once by re-reading.
func (r *Resolver) OAuthCallback(ctx context.Context, info oauth2.UserInfo) (*Session, error) {
	if info.Subject == "" {
		r.metrics.AuthOperation(OpOAuthCallback, metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: %w", ErrOAuthProvider, oauth2.ErrMissingSubject)
	}
	if info.Email == "" {
		r.metrics.AuthOperation(OpOAuthCallback, metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: %w", ErrOAuthProvider, oauth2.ErrMissingEmail)
	}

	var (
		user    *db.User
		outcome linkOutcome
		err     error
	)
	for attempt := 1; ; attempt++ {
		user, outcome, err = r.matchOrCreate(ctx, info)
		if err == nil {
			break
		}
		if !isDuplicate(err) {
			return nil, r.oauthFailure(err)
		}
		if attempt == oauthAttempts {
			r.logger.Error("oauth2: duplicate key race persisted", "subject", info.Subject, "attempts", attempt, "error", err)
			return nil, r.oauthFailure(fmt.Errorf("%w: %w: %w", ErrOAuthProvider, ErrStorageConflict, err))
		}
		r.logger.Info("oauth2: duplicate key race, re-reading", "subject", info.Subject, "error", err)
	}

	session, err := r.session(OpOAuthCallback, user)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case outcomeCreated:
		r.logger.Info("oauth2: account created", "user_id", user.ID, "provider", r.provider.Name())
		r.publish(ctx, events.KeyRegistered, user, "oauth2")
	case outcomeLinked:
		r.logger.Info("oauth2: account linked", "user_id", user.ID, "provider", r.provider.Name())
		r.publish(ctx, events.KeyLinked, user, "oauth2")
	default:
		r.publish(ctx, events.KeyLoggedIn, user, "oauth2")
	}
	return session, nil
}

// matchOrCreate is one lookup-then-write attempt. Duplicate key errors are
// returned as is for the caller to retry.
func (r *Resolver) matchOrCreate(ctx context.Context, info oauth2.UserInfo) (*db.User, linkOutcome, error) {
	byExternal, err := r.db.GetUserByExternalID(ctx, info.Subject)
	if err != nil {
		return nil, 0, fmt.Errorf("identity: get user by external id: %w", err)
	}
	byEmail, err := r.db.GetUserByEmail(ctx, info.Email)
	if err != nil {
		return nil, 0, fmt.Errorf("identity: get user by email: %w", err)
	}

	switch {
	case byExternal == nil && byEmail == nil:
		user, err := r.db.InsertUser(ctx, db.User{
			Email:      info.Email,
			Name:       info.Name,
			ExternalID: info.Subject,
		})
		if err != nil {
			return nil, 0, err
		}
		return user, outcomeCreated, nil

	case byExternal != nil && byEmail != nil && byExternal.ID != byEmail.ID:
		r.logger.Warn("oauth2: email and subject match different accounts",
			"subject_user_id", byExternal.ID, "email_user_id", byEmail.ID)
		return nil, 0, ErrIdentityConflict

	case byExternal != nil:
		return byExternal, outcomeExisting, nil
	}

	// email match only
	if byEmail.ExternalID != "" {
		r.logger.Warn("oauth2: email account linked to another subject", "user_id", byEmail.ID)
		return nil, 0, ErrIdentityConflict
	}

	linked, err := r.db.UpdateUser(ctx, byEmail.ID, db.UserPatch{
		ExternalID:  info.Subject,
		NameIfUnset: info.Name,
	})
	if err != nil {
		// ErrUserNotFound: deleted between read and write, the retry sees it gone
		return nil, 0, err
	}
	if linked.ExternalID != info.Subject {
		// a concurrent callback linked the account to another subject first
		return nil, 0, ErrIdentityConflict
	}
	return linked, outcomeLinked, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, db.ErrDuplicateEmail) ||
		errors.Is(err, db.ErrDuplicateExternalID) ||
		errors.Is(err, db.ErrUserNotFound)
}

// oauthFailure records a failed callback. Domain errors pass through, storage
// errors are wrapped.
func (r *Resolver) oauthFailure(err error) error {
	if errors.Is(err, ErrOAuthProvider) {
		r.metrics.AuthOperation(OpOAuthCallback, metrics.OutcomeRejected)
		return err
	}
	r.metrics.AuthOperation(OpOAuthCallback, metrics.OutcomeError)
	return err
}

// session issues the token of a successful operation.
func (r *Resolver) session(op string, user *db.User) (*Session, error) {
	token, err := r.tokens.Create(user.ID, r.tokenTTL)
	if err != nil {
		r.metrics.AuthOperation(op, metrics.OutcomeError)
		return nil, fmt.Errorf("identity: create token: %w", err)
	}
	r.metrics.AuthOperation(op, metrics.OutcomeSuccess)
	return &Session{
		Token:     token,
		ExpiresIn: r.tokenTTL,
		User:      publicUser(user),
	}, nil
}

// publish is best effort.
func (r *Resolver) publish(ctx context.Context, key string, user *db.User, method string) {
	err := r.publisher.Publish(ctx, key, events.Event{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Method: method,
		Time:   time.Now().UTC(),
	})
	if err != nil {
		r.logger.Warn("events: publish failed", "key", key, "user_id", user.ID, "error", err)
	}
}

// NormalizeEmail trims surrounding whitespace. Matching stays exact: case is
// preserved.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
