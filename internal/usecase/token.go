package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/core/domain"
	"github.com/foroescolar/escuela-api/internal/infra/security"
	"github.com/foroescolar/escuela-api/internal/infra/telemetry"
)

var (
	// ErrTokenMalformed rejects tokens that are not structurally valid.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired rejects tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid rejects tokens whose signature or claims fail verification.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenBlacklisted rejects tokens revoked before their expiry.
	ErrTokenBlacklisted = errors.New("token blacklisted")
)

// TokenService issues, verifies, and invalidates bearer tokens. Verification
// is layered so the cheap checks run first: structural decode and the
// revocation blacklist before the expiry check, the expiry check before the
// claims cache, and full signature verification only on a cache miss.
type TokenService struct {
	codec     *security.TokenCodec
	cache     *security.TokenCache
	negative  *security.NegativeCache
	blacklist *Blacklist
	metrics   *telemetry.TokenMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewTokenService wires the verification pipeline together.
func NewTokenService(codec *security.TokenCodec, cache *security.TokenCache, negative *security.NegativeCache, blacklist *Blacklist, metrics *telemetry.TokenMetrics, logger *zap.Logger) *TokenService {
	if metrics == nil {
		metrics = telemetry.NopTokenMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TokenService{
		codec:     codec,
		cache:     cache,
		negative:  negative,
		blacklist: blacklist,
		metrics:   metrics,
		logger:    logger,
	}
	s.now = func() time.Time { return time.Now().UTC() }
	return s
}

// WithClock overrides the service clock for deterministic testing.
func (s *TokenService) WithClock(clock func() time.Time) *TokenService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Issue signs a fresh token for the user.
func (s *TokenService) Issue(user *domain.User) (string, error) {
	token, err := s.codec.Issue(user.Email, security.CustomClaims{
		UserID: user.ID,
		Role:   user.Role.String(),
		Name:   user.Name,
	})
	if err != nil {
		return "", err
	}

	s.metrics.Generated.Inc()
	return token, nil
}

// Verify runs the full verification pipeline and returns the token's claims.
// Revocation is checked before expiry so a token that is both revoked and
// expired reports the revocation; expiry is read from the unverified claims
// on every call, so the claims cache cannot outlive a token's lifetime. Only
// signature failures enter the negative cache: structural garbage is cheap
// to re-reject, a bad signature costs a full verification.
func (s *TokenService) Verify(ctx context.Context, raw string) (*security.Claims, error) {
	start := time.Now()
	s.metrics.Validated.Inc()
	defer func() {
		s.metrics.ValidateDuration.Observe(time.Since(start).Seconds())
	}()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, s.reject("invalid", ErrTokenInvalid)
	}

	claims, err := s.codec.DecodeUnverified(raw)
	if err != nil {
		return nil, s.reject("malformed", ErrTokenMalformed)
	}

	if s.negative.Contains(raw) {
		return nil, s.reject("known_bad", ErrTokenInvalid)
	}

	revoked, err := s.blacklist.Contains(ctx, raw)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, s.reject("blacklisted", ErrTokenBlacklisted)
	}

	if exp := claims.Expiry(); !exp.IsZero() && !s.now().Before(exp) {
		return nil, s.reject("expired", ErrTokenExpired)
	}

	if cached, ok := s.cache.Get(raw); ok {
		s.metrics.CacheHits.Inc()
		return cached, nil
	}
	s.metrics.CacheMisses.Inc()

	verified, err := s.codec.Verify(raw)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrExpiredToken):
			return nil, s.reject("expired", ErrTokenExpired)
		case errors.Is(err, security.ErrMalformedToken):
			return nil, s.reject("malformed", ErrTokenMalformed)
		default:
			s.negative.Add(raw)
			return nil, s.reject("invalid", ErrTokenInvalid)
		}
	}

	s.cache.Put(raw, verified)
	return verified, nil
}

// Invalidate revokes a token until its natural expiry. Only a structural
// decode is required; revoking an already revoked or soon-to-expire token is
// harmless, so the call is idempotent.
func (s *TokenService) Invalidate(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrTokenMalformed
	}

	claims, err := s.codec.DecodeUnverified(raw)
	if err != nil {
		return ErrTokenMalformed
	}

	ttl := s.codec.Lifetime()
	if exp := claims.Expiry(); !exp.IsZero() {
		ttl = exp.Sub(s.now())
		if ttl <= 0 {
			// Already expired; verification rejects it on its own.
			s.cache.Remove(raw)
			return nil
		}
	}

	if err := s.blacklist.Add(ctx, Revocation{Token: raw, TTL: ttl, SubjectID: claims.UserID}); err != nil {
		return err
	}

	s.cache.Remove(raw)
	s.metrics.Blacklisted.Inc()

	s.logger.Info("token invalidated",
		zap.Int64("subject_id", claims.UserID),
		zap.Duration("remaining_ttl", ttl),
	)
	return nil
}

func (s *TokenService) reject(reason string, err error) error {
	s.metrics.ValidationFailed.WithLabelValues(reason).Inc()
	return err
}
