package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diogoX451/bazaar/internal/core/ports"
	"github.com/diogoX451/bazaar/pkg/types"
)

// MemoryCache é o ListingCache padrão de um nó: um mapa protegido por mutex
type MemoryCache struct {
	mu       sync.RWMutex
	listings map[uuid.UUID]types.Listing
}

var _ ports.ListingCache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{listings: make(map[uuid.UUID]types.Listing)}
}

func (c *MemoryCache) Put(_ context.Context, listing types.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings[listing.GetID()] = listing
	return nil
}

func (c *MemoryCache) Remove(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listings, id)
	return nil
}

func (c *MemoryCache) Get(_ context.Context, id uuid.UUID) (types.Listing, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.listings[id]
	return l, ok, nil
}

func (c *MemoryCache) CountByLister(_ context.Context, lister uuid.UUID, now time.Time) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, l := range c.listings {
		if l.GetLister() == lister && now.Before(l.GetExpiration()) {
			n++
		}
	}
	return n, nil
}

// All devolve os listings ordenados por expiração
func (c *MemoryCache) All(_ context.Context) ([]types.Listing, error) {
	c.mu.RLock()
	out := make([]types.Listing, 0, len(c.listings))
	for _, l := range c.listings {
		out = append(out, l)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].GetExpiration().Before(out[j].GetExpiration())
	})
	return out, nil
}
