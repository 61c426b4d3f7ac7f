package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/passport/cache"
	"go.pilab.hu/passport/domain"
)

// TokenCache implements the cache.TokenCache interface using Redis, for
// deployments running more than one passport instance behind a load
// balancer.
type TokenCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewTokenCache creates a new [TokenCache] instance.
func NewTokenCache(client *redis.Client, prefix string, ttl time.Duration) *TokenCache {
	return &TokenCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *TokenCache) redisKey(userID string) string {
	return fmt.Sprintf("%s:delegated_token:%s", r.prefix, userID)
}

// Get retrieves a cached delegated token from Redis.
func (r *TokenCache) Get(ctx context.Context, userID string) (*domain.DelegatedToken, error) {
	raw, err := r.client.Get(ctx, r.redisKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get token from redis: %w", err)
	}

	var token domain.DelegatedToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached token: %w", err)
	}
	return &token, nil
}

// Set stores a delegated token in Redis. The entry expires with the cache
// TTL or the token's own expiry, whichever comes first.
func (r *TokenCache) Set(ctx context.Context, token *domain.DelegatedToken) error {
	ttl := r.ttl
	if until := time.Until(token.ExpiresAt); until < ttl {
		if until <= 0 {
			return nil
		}
		ttl = until
	}

	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := r.client.Set(ctx, r.redisKey(token.UserID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set token in redis: %w", err)
	}
	return nil
}

// Delete removes a cached delegated token.
func (r *TokenCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete token from redis: %w", err)
	}
	return nil
}

var _ cache.TokenCache = (*TokenCache)(nil)
