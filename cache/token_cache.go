// Package cache provides a read-through cache for delegated tokens so that
// repeated join attempts by the same user do not hit the store on every
// lookup. Writers (the exchange coordinator and the join orchestrator) must
// invalidate on upsert and delete.
package cache

import (
	"context"
	"errors"

	"go.pilab.hu/passport/domain"
)

// ErrCacheMiss is returned when the user has no cached token.
var ErrCacheMiss = errors.New("token not in cache")

// TokenCache caches delegated tokens keyed by user ID.
type TokenCache interface {
	Get(ctx context.Context, userID string) (*domain.DelegatedToken, error)
	Set(ctx context.Context, token *domain.DelegatedToken) error
	Delete(ctx context.Context, userID string) error
}
