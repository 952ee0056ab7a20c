package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/diogoX451/bazaar/pkg/types"
)

// openMemoryDB abre um sqlite em memória exclusivo do teste
func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewWithDB(openMemoryDB(t), Config{Driver: "sqlite", IncrementRate: 0.1}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func testBIN(price float64) *types.BuyItNow {
	return &types.BuyItNow{ListingBase: types.ListingBase{
		ID:         uuid.New(),
		Lister:     uuid.New(),
		Entry:      types.Entry{Type: "item", Name: "Enchanted Golden Apple", Data: types.Data(`{"count":3}`)},
		Price:      types.CurrencyPrice(price),
		Expiration: time.Now().UTC().Truncate(time.Second).Add(24 * time.Hour),
	}}
}

func testAuction(start float64) *types.Auction {
	return &types.Auction{ListingBase: types.ListingBase{
		ID:         uuid.New(),
		Lister:     uuid.New(),
		Entry:      types.Entry{Type: "pokemon", Name: "Charizard"},
		Price:      types.CurrencyPrice(start),
		Expiration: time.Now().UTC().Truncate(time.Second).Add(time.Hour),
	}}
}
