package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// MinKeyLength is the minimum required length for JWT signing keys.
	// 32 bytes (256 bits) matches the HMAC-SHA256 output size.
	MinKeyLength = 32

	// JWT claim constants
	ClaimSubject   = "sub" // JWT Subject claim key, the identity id
	ClaimIssuedAt  = "iat" // JWT Issued At claim key
	ClaimExpiresAt = "exp" // JWT Expiration Time claim key
)

var (
	// ErrTokenExpired is returned when a correctly signed token is past its expiry
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned for any token that does not parse or whose signature does not match
	ErrTokenMalformed = errors.New("token malformed")
	// ErrInvalidTTL is returned when a token is requested with a non positive lifetime
	ErrInvalidTTL = errors.New("token ttl must be positive")
	// ErrEmptySubject is returned when a token is requested without a subject
	ErrEmptySubject = errors.New("token subject is empty")
	// ErrJwtInvalidSecretLength is returned for missing or short signing secrets
	ErrJwtInvalidSecretLength = errors.New("invalid secret length")
)

// TokenIssuer creates and verifies HS256 session tokens carrying sub, iat and exp.
// It holds no mutable state and is safe for concurrent use.
type TokenIssuer struct {
	key    []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenIssuer builds an issuer from the process signing secret.
// An empty or short secret is a startup error.
func NewTokenIssuer(secret []byte) (*TokenIssuer, error) {
	if len(secret) < MinKeyLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrJwtInvalidSecretLength, MinKeyLength, len(secret))
	}

	ti := &TokenIssuer{
		key: append([]byte(nil), secret...),
		now: time.Now,
	}
	ti.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return ti.now() }),
	)
	return ti, nil
}

// Create signs a token for subject that expires ttl from now.
// The expiry is rounded up to the next whole second because the exp claim has
// second precision. Every token carries a random jti, so two tokens for the
// same subject issued within the same second still differ.
func (ti *TokenIssuer) Create(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}
	if subject == "" {
		return "", ErrEmptySubject
	}

	now := ti.now()
	expiresAt := now.Add(ttl)
	if t := expiresAt.Truncate(time.Second); t.Before(expiresAt) {
		expiresAt = t.Add(time.Second)
	}

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ti.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify checks the signature and expiry of tokenString and returns its subject.
// The signature is checked before the claims, so only authentic tokens can
// report ErrTokenExpired. Every other failure is ErrTokenMalformed.
func (ti *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := ti.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return ti.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	if !parsed.Valid || claims.Subject == "" {
		return "", ErrTokenMalformed
	}
	return claims.Subject, nil
}
