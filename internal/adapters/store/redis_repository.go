package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/diogoX451/bazaar/internal/core/ports"
	"github.com/diogoX451/bazaar/internal/messaging"
	redisstore "github.com/diogoX451/bazaar/internal/store/redis"
	"github.com/diogoX451/bazaar/pkg/types"
)

// ListingCacheImpl adapta o Redis store para o cache de listings do Core
type ListingCacheImpl struct {
	store *redisstore.RedisStore
}

// Verifica interface
var _ ports.ListingCache = (*ListingCacheImpl)(nil)

func NewListingCache(store *redisstore.RedisStore) *ListingCacheImpl {
	return &ListingCacheImpl{store: store}
}

func (c *ListingCacheImpl) Put(ctx context.Context, listing types.Listing) error {
	return c.store.PutListing(ctx, listing)
}

func (c *ListingCacheImpl) Remove(ctx context.Context, id uuid.UUID) error {
	return c.store.DeleteListing(ctx, id)
}

func (c *ListingCacheImpl) Get(ctx context.Context, id uuid.UUID) (types.Listing, bool, error) {
	return c.store.GetListing(ctx, id)
}

func (c *ListingCacheImpl) All(ctx context.Context) ([]types.Listing, error) {
	return c.store.AllListings(ctx)
}

func (c *ListingCacheImpl) CountByLister(ctx context.Context, lister uuid.UUID, now time.Time) (int, error) {
	return c.store.CountByLister(ctx, lister, now)
}

// DedupImpl usa SET NX no Redis como cache de ids, com a mesma janela do
// dedup local. Sobrevive a reinícios do processo.
type DedupImpl struct {
	store  *redisstore.RedisStore
	window time.Duration
}

var _ messaging.Deduplicator = (*DedupImpl)(nil)

func NewDedup(store *redisstore.RedisStore, window time.Duration) *DedupImpl {
	return &DedupImpl{store: store, window: window}
}

func (d *DedupImpl) Observe(ctx context.Context, id uuid.UUID) (bool, error) {
	return d.store.Observe(ctx, id, d.window)
}
