package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/keyward/keyward/crypto"
	"github.com/keyward/keyward/db"
	"github.com/keyward/keyward/metrics"
)

// CurrentUserResolver turns a bearer token into the identity it was issued
// for. Every call verifies the token and reads the directory; nothing is
// cached between requests.
type CurrentUserResolver struct {
	db      db.DbAuth
	tokens  *crypto.TokenIssuer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewCurrentUserResolver(directory db.DbAuth, tokens *crypto.TokenIssuer, logger *slog.Logger, m *metrics.Metrics) *CurrentUserResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CurrentUserResolver{db: directory, tokens: tokens, logger: logger, metrics: m}
}

// Resolve returns the identity of token. A malformed, expired or forged token
// and a token whose identity no longer exists are all ErrUnauthorized.
// Directory failures are returned as internal errors.
func (c *CurrentUserResolver) Resolve(ctx context.Context, token string) (*PublicUser, error) {
	subject, err := c.tokens.Verify(token)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, crypto.ErrTokenExpired) {
			reason = "expired"
		}
		c.logger.Debug("token rejected", "reason", reason)
		c.metrics.AuthOperation(OpResolve, metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := c.db.GetUserById(ctx, subject)
	if err != nil {
		c.metrics.AuthOperation(OpResolve, metrics.OutcomeError)
		return nil, fmt.Errorf("identity: get user by id: %w", err)
	}
	if user == nil {
		c.logger.Info("token rejected", "reason", "unknown_subject")
		c.metrics.AuthOperation(OpResolve, metrics.OutcomeRejected)
		return nil, ErrUnauthorized
	}

	c.metrics.AuthOperation(OpResolve, metrics.OutcomeSuccess)
	pu := publicUser(user)
	return &pu, nil
}
