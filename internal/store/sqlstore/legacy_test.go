package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoX451/bazaar/pkg/types"
)

const createLegacyTable = "CREATE TABLE `{prefix}listings_v3` (id VARCHAR(36), owner VARCHAR(36), price REAL, expiration BIGINT, entry TEXT)"

func seedLegacy(t *testing.T, s *Store, rows ...LegacyRow) {
	t.Helper()
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, s.q(createLegacyTable))
	require.NoError(t, err)
	for _, r := range rows {
		_, err := s.db.ExecContext(ctx, s.q("INSERT INTO `{prefix}listings_v3` (id, owner, price, expiration, entry) VALUES (?, ?, ?, ?, ?)"),
			r.ID, r.Owner, r.Price, r.Expiration, r.Entry)
		require.NoError(t, err)
	}
}

func legacyRow(entry string) LegacyRow {
	return LegacyRow{
		ID:         uuid.NewString(),
		Owner:      uuid.NewString(),
		Price:      250,
		Expiration: time.Now().Add(time.Hour).UnixMilli(),
		Entry:      entry,
	}
}

func TestMigrateLegacyPartialFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	good := legacyRow(`{"type":"item","name":"Diamond"}`)
	seedLegacy(t, s,
		good,
		legacyRow(`{"type":"pokemon","name":"Pikachu"}`),
		legacyRow(`{"name":"no type here"`),
	)

	report, err := s.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Parsed)
	assert.Equal(t, 2, report.Migrated)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.Dropped)

	exists, err := s.tableExists(ctx, s.db, "gts_listings_v3")
	require.NoError(t, err)
	assert.True(t, exists, "legacy table kept after a partial failure")

	listing, err := s.GetListing(ctx, uuid.MustParse(good.ID))
	require.NoError(t, err)
	bin, ok := listing.(*types.BuyItNow)
	require.True(t, ok)
	assert.Equal(t, "item", bin.Entry.Type)
	assert.Equal(t, "Diamond", bin.Entry.Name)
	assert.Equal(t, 250.0, bin.Price.Amount)
	assert.Equal(t, good.Expiration, bin.Expiration.UnixMilli())

	// o marcador impede uma segunda passada
	again, err := s.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.True(t, again.AlreadyApplied)
	assert.Zero(t, again.Parsed)
}

func TestMigrateLegacyDropsTableOnFullSuccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	existing := testBIN(5)
	_, err := s.AddListing(ctx, existing)
	require.NoError(t, err)

	dup := legacyRow(`{"type":"item"}`)
	dup.ID = existing.ID.String()
	seedLegacy(t, s, legacyRow(`{"type":"item"}`), dup)

	// a primeira leitura dispara a migração
	result, err := s.GetListings(ctx)
	require.NoError(t, err)
	assert.Len(t, result.Listings, 2)

	exists, err := s.tableExists(ctx, s.db, "gts_listings_v3")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := s.GetListing(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, existing, got, "existing listing is not overwritten")
}

func TestMigrateLegacyWithoutTable(t *testing.T) {
	s := newTestStore(t)

	report, err := s.MigrateLegacy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LegacyReport{}, report)
}

func TestTranslateLegacyRow(t *testing.T) {
	_, err := TranslateLegacyRow(legacyRow(`not json`))
	assert.Error(t, err)

	row := legacyRow(`{"type":"item"}`)
	row.Owner = "nope"
	_, err = TranslateLegacyRow(row)
	assert.Error(t, err)

	row = legacyRow(`{"type":"item"}`)
	row.Expiration = 0
	listing, err := TranslateLegacyRow(row)
	require.NoError(t, err)
	assert.True(t, listing.GetExpiration().IsZero())
}

func TestMigrateLegacyNullColumns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	good := legacyRow(`{"type":"item","name":"Emerald"}`)
	seedLegacy(t, s, good)
	_, err := s.db.ExecContext(ctx, s.q("INSERT INTO `{prefix}listings_v3` (id, owner, price, expiration, entry) VALUES (?, NULL, ?, NULL, ?)"),
		"bad", 10.0, `{"type":"item"}`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, s.q("INSERT INTO `{prefix}listings_v3` (id, owner, price, expiration, entry) VALUES (NULL, NULL, NULL, NULL, NULL)"))
	require.NoError(t, err)

	// a migração roda pela primeira leitura e não perde a linha boa
	result, err := s.GetListings(ctx)
	require.NoError(t, err)
	require.Len(t, result.Listings, 1)
	assert.Equal(t, good.ID, result.Listings[0].GetID().String())

	var report string
	require.NoError(t, s.db.QueryRowContext(ctx, s.q("SELECT report FROM `{prefix}migrations` WHERE name = ?"), legacyMigration).Scan(&report))
	assert.JSONEq(t, `{"parsed":3,"migrated":1,"skipped":0,"failed":2,"dropped":false}`, report)
}

func TestReadLegacyRowsMarksNulls(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedLegacy(t, s)
	_, err := s.db.ExecContext(ctx, s.q("INSERT INTO `{prefix}listings_v3` (id, owner, price, expiration, entry) VALUES (?, NULL, ?, NULL, NULL)"),
		"bad", 10.0)
	require.NoError(t, err)

	tx, err := s.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	rows, err := s.readLegacyRows(ctx, tx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bad", rows[0].ID)
	assert.Equal(t, []string{"owner", "entry"}, rows[0].Nulls)
	assert.Zero(t, rows[0].Expiration)
}

func TestMigrateLegacyCustomTranslator(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	row := legacyRow(`{"type":"pokemon","name":"Lapras"}`)
	seedLegacy(t, s, row)

	s.SetLegacyTranslator(func(r LegacyRow) (types.Listing, error) {
		listing, err := TranslateLegacyRow(r)
		if err != nil {
			return nil, err
		}
		return &types.Auction{ListingBase: listing.(*types.BuyItNow).ListingBase}, nil
	})

	report, err := s.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Migrated)
	assert.True(t, report.Dropped)

	got, err := s.GetListing(ctx, uuid.MustParse(row.ID))
	require.NoError(t, err)
	assert.Equal(t, types.KindAuction, got.Kind())
}
