package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenCreation indicates signing failed, typically a misconfigured key.
	ErrTokenCreation = errors.New("token creation failed")
	// ErrMalformedToken indicates the raw string is not a structurally valid token.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidToken indicates signature or claim verification failed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates verification tripped on an elapsed expiry.
	ErrExpiredToken = errors.New("expired token")
)

// Claims is the decoded form of an issued token: registered claims plus the
// custom identity claims every token carries.
type Claims struct {
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Expiry returns the expiry instant, zero when absent.
func (c *Claims) Expiry() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

// CustomClaims carries the caller-supplied claims for issuance.
type CustomClaims struct {
	UserID int64
	Role   string
	Name   string
}

// CodecOptions configures a TokenCodec.
type CodecOptions struct {
	Secret   string
	Issuer   string
	Lifetime time.Duration
	PoolSize int
}

// TokenCodec encodes and decodes HMAC-signed tokens. It is stateless apart
// from its fixed verifier pool and safe for concurrent use.
type TokenCodec struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
	pool     *verifierPool
	now      func() time.Time
}

const (
	defaultLifetime = 24 * time.Hour
	defaultPoolSize = 4
)

// NewTokenCodec constructs a codec with its verifier pool.
func NewTokenCodec(opts CodecOptions) (*TokenCodec, error) {
	secret := strings.TrimSpace(opts.Secret)
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}

	lifetime := opts.Lifetime
	if lifetime <= 0 {
		lifetime = defaultLifetime
	}
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	codec := &TokenCodec{
		secret:   []byte(secret),
		issuer:   issuer,
		lifetime: lifetime,
		pool:     newVerifierPool(poolSize, issuer),
	}
	codec.now = func() time.Time { return time.Now().UTC() }
	return codec, nil
}

// WithClock overrides the codec clock for deterministic testing.
func (c *TokenCodec) WithClock(clock func() time.Time) *TokenCodec {
	if clock != nil {
		c.now = clock
	}
	return c
}

// Lifetime returns the configured token lifetime.
func (c *TokenCodec) Lifetime() time.Duration {
	return c.lifetime
}

// Issue builds and signs a token for the subject with a fresh jti.
func (c *TokenCodec) Issue(subject string, custom CustomClaims) (string, error) {
	now := c.now()
	claims := &Claims{
		UserID: custom.UserID,
		Role:   custom.Role,
		Name:   custom.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenCreation, err)
	}
	return signed, nil
}

// DecodeUnverified parses structure and claims without checking the
// signature. Used for cheap pre-checks ahead of cryptographic verification.
func (c *TokenCodec) DecodeUnverified(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(raw), claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claims, nil
}

// Verify performs full cryptographic verification using one pooled verifier
// selected by a hash of the raw token.
func (c *TokenCodec) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	claims := &Claims{}

	parsed, err := c.pool.pick(raw).ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}
