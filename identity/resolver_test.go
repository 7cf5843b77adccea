package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keyward/keyward/crypto"
	"github.com/keyward/keyward/db"
	"github.com/keyward/keyward/db/mock"
	"github.com/keyward/keyward/db/zombiezen"
	"github.com/keyward/keyward/events"
	"github.com/keyward/keyward/migrations"
	"github.com/keyward/keyward/oauth2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

var testSecret = []byte("identity_test_secret_32_bytes_xx")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingDb records the writes reaching the directory.
type countingDb struct {
	db.DbAuth
	inserts atomic.Int32
	updates atomic.Int32
}

func (c *countingDb) InsertUser(ctx context.Context, user db.User) (*db.User, error) {
	c.inserts.Add(1)
	return c.DbAuth.InsertUser(ctx, user)
}

func (c *countingDb) UpdateUser(ctx context.Context, id string, patch db.UserPatch) (*db.User, error) {
	c.updates.Add(1)
	return c.DbAuth.UpdateUser(ctx, id, patch)
}

// recordingPublisher keeps the routing keys of published events.
type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fakeProvider struct {
	info *oauth2.UserInfo
	err  error
}

func (f fakeProvider) Name() string { return "fake" }
func (f fakeProvider) AuthCodeURL(state string) (string, string, error) {
	return "https://provider.test/auth?state=" + state, "", nil
}
func (f fakeProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.UserInfo, error) {
	return f.info, f.err
}

type testEnv struct {
	resolver  *Resolver
	current   *CurrentUserResolver
	db        *countingDb
	publisher *recordingPublisher
}

func newMemoryPool(t *testing.T) *sqlitex.Pool {
	t.Helper()
	pool, err := sqlitex.NewPool("file::memory:", sqlitex.PoolOptions{PoolSize: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func newFilePool(t *testing.T) *sqlitex.Pool {
	t.Helper()
	pool, err := sqlitex.NewPool("file:"+filepath.Join(t.TempDir(), "identity.db"), sqlitex.PoolOptions{
		PoolSize: 4,
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn, "PRAGMA busy_timeout = 5000;", nil)
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func newTestEnv(t *testing.T, pool *sqlitex.Pool, opts ...Option) *testEnv {
	t.Helper()
	require.NoError(t, migrations.Apply(context.Background(), pool))

	directory, err := zombiezen.New(pool)
	require.NoError(t, err)

	tokens, err := crypto.NewTokenIssuer(testSecret)
	require.NoError(t, err)

	env := &testEnv{
		db:        &countingDb{DbAuth: directory},
		publisher: &recordingPublisher{},
	}
	opts = append([]Option{WithLogger(discardLogger()), WithPublisher(env.publisher)}, opts...)
	env.resolver, err = NewResolver(env.db, tokens, 45*time.Minute, opts...)
	require.NoError(t, err)
	env.current = NewCurrentUserResolver(env.db, tokens, discardLogger(), nil)
	return env
}

func TestNewResolverRejectsInput(t *testing.T) {
	tokens, err := crypto.NewTokenIssuer(testSecret)
	require.NoError(t, err)

	_, err = NewResolver(nil, tokens, time.Minute)
	assert.Error(t, err)
	_, err = NewResolver(&mock.Db{}, nil, time.Minute)
	assert.Error(t, err)
	_, err = NewResolver(&mock.Db{}, tokens, 0)
	assert.ErrorIs(t, err, crypto.ErrInvalidTTL)

	r, err := NewResolver(&mock.Db{}, tokens, time.Minute)
	require.NoError(t, err)
	assert.False(t, oauth2.IsConfigured(r.Provider()))
}

func TestSignupThenLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMemoryPool(t))

	s1, err := env.resolver.Signup(ctx, "a@x.com", "secret", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", s1.User.Email)
	assert.Equal(t, "Ann", s1.User.Name)
	assert.NotEmpty(t, s1.User.ID)
	assert.Equal(t, 45*time.Minute, s1.ExpiresIn)

	s2, err := env.resolver.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, s1.User, s2.User)
	assert.NotEqual(t, s1.Token, s2.Token)

	for _, token := range []string{s1.Token, s2.Token} {
		u, err := env.current.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, s1.User.ID, u.ID)
	}

	stored, err := env.db.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", stored.PasswordHash)
	assert.True(t, crypto.CheckPassword("secret", stored.PasswordHash))

	assert.Equal(t, []string{events.KeyRegistered, events.KeyLoggedIn}, env.publisher.Keys())
}

func TestSignupDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMemoryPool(t))

	_, err := env.resolver.Signup(ctx, "a@x.com", "secret", "Ann")
	require.NoError(t, err)

	_, err = env.resolver.Signup(ctx, "a@x.com", "other", "Imposter")
	require.ErrorIs(t, err, ErrAccountAlreadyExists)

	// the original account keeps working with its own password
	_, err = env.resolver.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)
	_, err = env.resolver.Login(ctx, "a@x.com", "other")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignupInvalidInput(t *testing.T) {
	env := newTestEnv(t, newMemoryPool(t))

	testCases := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "secret"},
		{name: "empty password", email: "a@x.com", password: ""},
		{name: "password too long", email: "a@x.com", password: strings.Repeat("p", crypto.MaxPasswordLength+1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.resolver.Signup(context.Background(), tc.email, tc.password, "")
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Zero(t, env.db.inserts.Load())
}

func TestLoginRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMemoryPool(t))

	_, err := env.resolver.Signup(ctx, "a@x.com", "secret", "Ann")
	require.NoError(t, err)
	before, err := env.db.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "a@x.com", password: "wrong"},
		{name: "unknown email", email: "nobody@x.com", password: "secret"},
		{name: "email is case sensitive", email: "A@x.com", password: "secret"},
		{name: "empty password", email: "a@x.com", password: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := env.resolver.Login(ctx, tc.email, tc.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Nil(t, s)
		})
	}

	after, err := env.db.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestOAuthCallbackCreatesPasswordlessIdentity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMemoryPool(t))

	s, err := env.resolver.OAuthCallback(ctx, oauth2.UserInfo{Subject: "g1", Email: "b@x.com", Name: "Bea"})
	require.NoError(t, err)
	assert.Equal(t, "Bea", s.User.Name)

	stored, err := env.db.GetUserByExternalID(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, s.User.ID, stored.ID)
	assert.False(t, stored.HasPassword())

	_, err = env.resolver.Login(ctx, "b@x.com", "anything")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := env.current.Resolve(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, u.ID)
}

func TestOAuthCallbackIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMemoryPool(t))
	info := oauth2.UserInfo{Subject: "g1", Email: "b@x.com", Name: "Bea"}

	s1, err := env.resolver.OAuthCallback(ctx, info)
	require.NoError(t, err)
	s2, err := env.resolver.OAuthCallback(ctx, info)
	require.NoError(t, err)

	assert.Equal(t, s1.User.ID, s2.User.ID)
	assert.Equal(t, int32(1), env.db.inserts.Load()+env.db.updates.Load())
	assert.Equal(t, []string{events.KeyRegistered, events.KeyLoggedIn}, env.publisher.Keys())
}

func TestOAuthCallbackLinksPasswordAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMemoryPool(t))

	signup, err := env.resolver.Signup(ctx, "a@x.com", "secret", "Ann")
	require.NoError(t, err)

	info := oauth2.UserInfo{Subject: "g1", Email: "a@x.com", Name: "Google Ann"}
	s1, err := env.resolver.OAuthCallback(ctx, info)
	require.NoError(t, err)
	assert.Equal(t, signup.User.ID, s1.User.ID)
	assert.Equal(t, "Ann", s1.User.Name, "existing name must not be overwritten")

	stored, err := env.db.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "g1", stored.ExternalID)
	assert.True(t, stored.HasPassword())

	// linking again is a no-op and password login keeps working
	s2, err := env.resolver.OAuthCallback(ctx, info)
	require.NoError(t, err)
	assert.Equal(t, signup.User.ID, s2.User.ID)
	assert.Equal(t, int32(1), env.db.updates.Load())

	_, err = env.resolver.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, []string{
		events.KeyRegistered, events.KeyLinked, events.KeyLoggedIn, events.KeyLoggedIn,
	}, env.publisher.Keys())
}

func TestOAuthCallbackSetsUnsetName(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMemoryPool(t))

	_, err := env.resolver.Signup(ctx, "a@x.com", "secret", "")
	require.NoError(t, err)

	s, err := env.resolver.OAuthCallback(ctx, oauth2.UserInfo{Subject: "g1", Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", s.User.Name)
}

func TestOAuthCallbackConflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("email and subject match different accounts", func(t *testing.T) {
		env := newTestEnv(t, newMemoryPool(t))
		_, err := env.resolver.OAuthCallback(ctx, oauth2.UserInfo{Subject: "g1", Email: "a@x.com"})
		require.NoError(t, err)
		_, err = env.resolver.Signup(ctx, "b@x.com", "secret", "Bea")
		require.NoError(t, err)
		writes := env.db.inserts.Load() + env.db.updates.Load()

		_, err = env.resolver.OAuthCallback(ctx, oauth2.UserInfo{Subject: "g1", Email: "b@x.com"})
		require.ErrorIs(t, err, ErrIdentityConflict)
		assert.ErrorIs(t, err, ErrOAuthProvider)
		assert.Equal(t, writes, env.db.inserts.Load()+env.db.updates.Load())

		b, err := env.db.GetUserByEmail(ctx, "b@x.com")
		require.NoError(t, err)
		assert.Empty(t, b.ExternalID)
	})

	t.Run("email account linked to another subject", func(t *testing.T) {
		env := newTestEnv(t, newMemoryPool(t))
		_, err := env.resolver.OAuthCallback(ctx, oauth2.UserInfo{Subject: "g1", Email: "a@x.com"})
		require.NoError(t, err)

		_, err = env.resolver.OAuthCallback(ctx, oauth2.UserInfo{Subject: "g2", Email: "a@x.com"})
		require.ErrorIs(t, err, ErrIdentityConflict)

		u, err := env.db.GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "g1", u.ExternalID)
	})

	t.Run("subject match with changed email", func(t *testing.T) {
		env := newTestEnv(t, newMemoryPool(t))
		s1, err := env.resolver.OAuthCallback(ctx, oauth2.UserInfo{Subject: "g1", Email: "old@x.com"})
		require.NoError(t, err)

		s2, err := env.resolver.OAuthCallback(ctx, oauth2.UserInfo{Subject: "g1", Email: "new@x.com"})
		require.NoError(t, err)
		assert.Equal(t, s1.User.ID, s2.User.ID)
		assert.Equal(t, "old@x.com", s2.User.Email)
	})
}

func TestOAuthCallbackMissingClaims(t *testing.T) {
	env := newTestEnv(t, newMemoryPool(t))

	_, err := env.resolver.OAuthCallback(context.Background(), oauth2.UserInfo{Email: "a@x.com"})
	require.ErrorIs(t, err, ErrOAuthProvider)
	assert.ErrorIs(t, err, oauth2.ErrMissingSubject)

	_, err = env.resolver.OAuthCallback(context.Background(), oauth2.UserInfo{Subject: "g1"})
	require.ErrorIs(t, err, ErrOAuthProvider)
	assert.ErrorIs(t, err, oauth2.ErrMissingEmail)

	assert.Zero(t, env.db.inserts.Load())
}

func TestCompleteOAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		env := newTestEnv(t, newMemoryPool(t))
		_, err := env.resolver.CompleteOAuth(ctx, "code", "")
		require.ErrorIs(t, err, ErrProviderNotConfigured)
	})

	t.Run("provider failure writes nothing", func(t *testing.T) {
		env := newTestEnv(t, newMemoryPool(t), WithProvider(fakeProvider{err: oauth2.ErrTokenExchange}))
		_, err := env.resolver.CompleteOAuth(ctx, "bad-code", "")
		require.ErrorIs(t, err, ErrOAuthProvider)
		assert.ErrorIs(t, err, oauth2.ErrTokenExchange)
		assert.Zero(t, env.db.inserts.Load()+env.db.updates.Load())
	})

	t.Run("success", func(t *testing.T) {
		info := &oauth2.UserInfo{Subject: "g1", Email: "b@x.com", Name: "Bea"}
		env := newTestEnv(t, newMemoryPool(t), WithProvider(fakeProvider{info: info}))
		s, err := env.resolver.CompleteOAuth(ctx, "code", "verifier")
		require.NoError(t, err)
		assert.Equal(t, "b@x.com", s.User.Email)
	})
}

func TestOAuthCallbackRetriesLostRace(t *testing.T) {
	tokens, err := crypto.NewTokenIssuer(testSecret)
	require.NoError(t, err)
	winner := &db.User{ID: "winner", Email: "b@x.com", ExternalID: "g1"}

	t.Run("re-read finds the concurrent record", func(t *testing.T) {
		var lookups atomic.Int32
		m := &mock.Db{
			GetUserByExternalIDFunc: func(externalID string) (*db.User, error) {
				if lookups.Add(1) == 1 {
					return nil, nil
				}
				return winner, nil
			},
			InsertUserFunc: func(user db.User) (*db.User, error) {
				return nil, db.ErrDuplicateExternalID
			},
		}
		r, err := NewResolver(m, tokens, time.Minute, WithLogger(discardLogger()))
		require.NoError(t, err)

		s, err := r.OAuthCallback(context.Background(), oauth2.UserInfo{Subject: "g1", Email: "b@x.com"})
		require.NoError(t, err)
		assert.Equal(t, "winner", s.User.ID)
		assert.Equal(t, int32(2), lookups.Load())
	})

	t.Run("persistent race is bounded", func(t *testing.T) {
		var inserts atomic.Int32
		m := &mock.Db{
			InsertUserFunc: func(user db.User) (*db.User, error) {
				inserts.Add(1)
				return nil, db.ErrDuplicateEmail
			},
		}
		r, err := NewResolver(m, tokens, time.Minute, WithLogger(discardLogger()))
		require.NoError(t, err)

		_, err = r.OAuthCallback(context.Background(), oauth2.UserInfo{Subject: "g1", Email: "b@x.com"})
		require.ErrorIs(t, err, ErrStorageConflict)
		assert.ErrorIs(t, err, ErrOAuthProvider)
		assert.Equal(t, int32(oauthAttempts), inserts.Load())
	})

	t.Run("storage failure is not retried", func(t *testing.T) {
		boom := errors.New("disk I/O error")
		var inserts atomic.Int32
		m := &mock.Db{
			InsertUserFunc: func(user db.User) (*db.User, error) {
				inserts.Add(1)
				return nil, boom
			},
		}
		r, err := NewResolver(m, tokens, time.Minute, WithLogger(discardLogger()))
		require.NoError(t, err)

		_, err = r.OAuthCallback(context.Background(), oauth2.UserInfo{Subject: "g1", Email: "b@x.com"})
		require.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrOAuthProvider)
		assert.Equal(t, int32(1), inserts.Load())
	})
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	env := newTestEnv(t, newMemoryPool(t), WithPublisher(pub))

	_, err := env.resolver.Signup(context.Background(), "a@x.com", "secret", "Ann")
	require.NoError(t, err)
	assert.Equal(t, []string{events.KeyRegistered}, pub.Keys())
}

func TestConcurrentSignupSameEmail(t *testing.T) {
	env := newTestEnv(t, newFilePool(t))

	const workers = 8
	var (
		wg      sync.WaitGroup
		ok      atomic.Int32
		exists  atomic.Int32
		mu      sync.Mutex
		unknown []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.resolver.Signup(context.Background(), "race@x.com", "secret", "Racer")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrAccountAlreadyExists):
				exists.Add(1)
			default:
				mu.Lock()
				unknown = append(unknown, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Empty(t, unknown)
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(workers-1), exists.Load())
}

func TestConcurrentOAuthCallbackSameIdentity(t *testing.T) {
	env := newTestEnv(t, newFilePool(t))
	info := oauth2.UserInfo{Subject: "g-race", Email: "race@x.com", Name: "Racer"}

	const workers = 8
	var wg sync.WaitGroup
	ids := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := env.resolver.OAuthCallback(context.Background(), info)
			errs[i] = err
			if err == nil {
				ids[i] = s.User.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	stored, err := env.db.GetUserByExternalID(context.Background(), "g-race")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, ids[0], stored.ID)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "A@x.com", NormalizeEmail("  A@x.com\t"))
}
