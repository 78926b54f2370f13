package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlocklist records revoked access tokens in Redis.
// Key format: revoked:<token_id>, expiring with the token itself.
type TokenBlocklist struct {
	client *redis.Client
	now    func() time.Time
}

// NewTokenBlocklist creates a TokenBlocklist wrapping the given Redis client.
func NewTokenBlocklist(client *redis.Client) *TokenBlocklist {
	return &TokenBlocklist{client: client, now: time.Now}
}

// Revoke blocks tokenID until until. Tokens that already expired are ignored.
func (b *TokenBlocklist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, b.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked.
func (b *TokenBlocklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func (b *TokenBlocklist) key(tokenID string) string {
	return "revoked:" + tokenID
}
