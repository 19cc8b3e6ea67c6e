package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
)

const hiddenStoresCacheKey = "visibility:hidden_stores"

// VisibilityProvider serves the set of hidden store ids, cached for a short TTL.
type VisibilityProvider struct {
	store  domain.VisibilityStore
	cache  domain.CacheRepository
	ttl    time.Duration
	logger zerolog.Logger
}

// NewVisibilityProvider creates a provider. A nil cache or non-positive ttl reads the store on every call.
func NewVisibilityProvider(store domain.VisibilityStore, cache domain.CacheRepository, ttl time.Duration, logger zerolog.Logger) *VisibilityProvider {
	return &VisibilityProvider{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "visibility").Logger(),
	}
}

// HiddenStores returns the hidden store ids. A failed lookup is logged and treated
// as no hidden stores.
func (v *VisibilityProvider) HiddenStores(ctx context.Context) map[string]struct{} {
	if v == nil || v.store == nil {
		return map[string]struct{}{}
	}

	if v.cacheEnabled() {
		if cached, err := v.cache.Get(ctx, hiddenStoresCacheKey); err == nil {
			if hidden, ok := cached.(map[string]struct{}); ok {
				return hidden
			}
		}
	}

	hidden, err := v.store.HiddenStoreIDs(ctx)
	if err != nil {
		v.logger.Warn().Err(err).Msg("loading hidden stores failed")
		return map[string]struct{}{}
	}

	if v.cacheEnabled() {
		if err := v.cache.Set(ctx, hiddenStoresCacheKey, hidden, v.ttl); err != nil {
			v.logger.Warn().Err(err).Msg("caching hidden stores failed")
		}
	}
	return hidden
}

// Invalidate drops the cached set so the next call reads the store.
func (v *VisibilityProvider) Invalidate(ctx context.Context) {
	if v.cacheEnabled() {
		_ = v.cache.Delete(ctx, hiddenStoresCacheKey)
	}
}

func (v *VisibilityProvider) cacheEnabled() bool {
	return v != nil && v.cache != nil && v.ttl > 0
}
