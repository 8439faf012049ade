package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/domain"
)

// TokenBlacklist remembers revoked tokens until they would have expired
type TokenBlacklist struct {
	cache domain.CacheRepository
}

// NewTokenBlacklist creates a new token blacklist
func NewTokenBlacklist(cache domain.CacheRepository) *TokenBlacklist {
	return &TokenBlacklist{cache: cache}
}

// Revoke blacklists token for its remaining lifetime. Expired tokens are ignored.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, claims *Claims) error {
	ttl := time.Hour
	if claims != nil && claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return b.cache.Set(ctx, key(token), "revoked", ttl)
}

// IsBlacklisted checks if a token is blacklisted
func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	return b.cache.Exists(ctx, key(token))
}

// Raw tokens are never stored.
func key(token string) string {
	hash := sha256.Sum256([]byte(token))
	return "jwt:blacklist:" + hex.EncodeToString(hash[:])
}
