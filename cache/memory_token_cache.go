package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/passport/domain"
)

// MemoryTokenCache implements TokenCache using ttlcache.
type MemoryTokenCache struct {
	cache *ttlcache.Cache[string, *domain.DelegatedToken]
	ttl   time.Duration
}

// NewMemoryTokenCache creates an in-memory token cache with automatic
// expiration. Entries live for at most ttl, or until the token itself
// expires, whichever comes first.
func NewMemoryTokenCache(ttl time.Duration) *MemoryTokenCache {
	c := ttlcache.New(
		ttlcache.WithTTL[string, *domain.DelegatedToken](ttl),
		ttlcache.WithDisableTouchOnHit[string, *domain.DelegatedToken](),
	)

	go c.Start()

	return &MemoryTokenCache{cache: c, ttl: ttl}
}

// Get implements TokenCache.Get.
func (c *MemoryTokenCache) Get(_ context.Context, userID string) (*domain.DelegatedToken, error) {
	item := c.cache.Get(userID)
	if item == nil {
		return nil, ErrCacheMiss
	}
	return item.Value(), nil
}

// Set implements TokenCache.Set.
func (c *MemoryTokenCache) Set(_ context.Context, token *domain.DelegatedToken) error {
	ttl := c.ttl
	if until := time.Until(token.ExpiresAt); until < ttl {
		if until <= 0 {
			return nil
		}
		ttl = until
	}
	c.cache.Set(token.UserID, token, ttl)
	return nil
}

// Delete implements TokenCache.Delete.
func (c *MemoryTokenCache) Delete(_ context.Context, userID string) error {
	c.cache.Delete(userID)
	return nil
}

// Stop halts the background expiration loop.
func (c *MemoryTokenCache) Stop() {
	c.cache.Stop()
}

var _ TokenCache = (*MemoryTokenCache)(nil)
