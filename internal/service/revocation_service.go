package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	revokedKeyPrefix = "revoked_token:"
	revokedMarker    = "revoked"
)

// RevocationService is the token denylist. Entries expire on their own once
// the token they shadow could no longer be decoded anyway.
type RevocationService struct {
	client redis.Cmdable
	logger *logrus.Logger
}

func NewRevocationService(client redis.Cmdable, logger *logrus.Logger) *RevocationService {
	return &RevocationService{
		client: client,
		logger: logger,
	}
}

func revokedKey(jti string) string {
	return revokedKeyPrefix + jti
}

// Revoke denylists jti for ttl. Revoking an already revoked id is a no-op and
// leaves the existing ttl in place.
func (s *RevocationService) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	_, err := s.Claim(ctx, jti, ttl)
	return err
}

// Claim atomically denylists jti for ttl and reports whether this call added
// the entry. Exactly one of several concurrent claims for the same id wins.
func (s *RevocationService) Claim(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, fmt.Errorf("token id is required")
	}

	// Redis rejects non-positive expirations and rounds sub-second ones away.
	if ttl < time.Second {
		ttl = time.Second
	}

	claimed, err := s.client.SetNX(ctx, revokedKey(jti), revokedMarker, ttl).Result()
	if err != nil {
		s.logger.WithError(err).WithField("jti", jti).Error("Failed to revoke token")
		return false, fmt.Errorf("failed to revoke token: %w", err)
	}

	return claimed, nil
}

// IsRevoked reports whether jti is on the denylist. A missing or expired
// entry means not revoked.
func (s *RevocationService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := s.client.Get(ctx, revokedKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return true, nil
}
