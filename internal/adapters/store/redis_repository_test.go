package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoX451/bazaar/internal/messaging"
	redisstore "github.com/diogoX451/bazaar/internal/store/redis"
	"github.com/diogoX451/bazaar/pkg/types"
)

func TestRedisAdapters(t *testing.T) {
	client, err := redisstore.New(redisstore.Config{
		Addr:   "localhost:6379",
		Server: "adapter-" + uuid.NewString(),
	})
	if err != nil {
		t.Skip("Redis não disponível:", err)
	}
	defer client.Close()

	ctx := context.Background()

	t.Run("Dedup drives the consumer", func(t *testing.T) {
		consumer, err := messaging.NewConsumer(messaging.ConsumerOptions{Dedup: NewDedup(client, time.Minute), Logger: zerolog.Nop()})
		require.NoError(t, err)

		handled := 0
		consumer.RegisterInternalConsumer(messaging.TypeListingRemoved, func(context.Context, messaging.Update) error {
			handled++
			return nil
		})

		update := messaging.NewListingRemoved(uuid.New(), uuid.New(), "expired")
		for i := 0; i < 2; i++ {
			_, err := consumer.ConsumeMessage(ctx, update)
			require.NoError(t, err)
		}
		assert.Equal(t, 1, handled)
	})

	t.Run("Listing cache", func(t *testing.T) {
		cache := NewListingCache(client)
		listing := &types.BuyItNow{ListingBase: types.ListingBase{
			ID:         uuid.New(),
			Lister:     uuid.New(),
			Entry:      types.Entry{Type: "item", Name: "Trident"},
			Price:      types.CurrencyPrice(12),
			Expiration: time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond),
		}}

		require.NoError(t, cache.Put(ctx, listing))

		got, ok, err := cache.Get(ctx, listing.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, listing.ID, got.GetID())

		count, err := cache.CountByLister(ctx, listing.Lister, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		require.NoError(t, cache.Remove(ctx, listing.ID))
		_, ok, err = cache.Get(ctx, listing.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		count, err = cache.CountByLister(ctx, listing.Lister, time.Now())
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
