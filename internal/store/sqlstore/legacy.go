package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/diogoX451/bazaar/pkg/types"
)

const legacyMigration = "listings_v3"

// LegacyRow é uma linha da tabela {prefix}listings_v3
type LegacyRow struct {
	ID         string
	Owner      string
	Price      float64
	Expiration int64
	Entry      string
	// Nulls lista as colunas que vieram NULL; a linha não é traduzida
	Nulls []string
}

// LegacyTranslator converte uma linha antiga no listing atual
type LegacyTranslator func(row LegacyRow) (types.Listing, error)

// LegacyReport resume uma passada da migração
type LegacyReport struct {
	Parsed   int  `json:"parsed"`
	Migrated int  `json:"migrated"`
	Skipped  int  `json:"skipped"`
	Failed   int  `json:"failed"`
	Dropped  bool `json:"dropped"`
	// AlreadyApplied indica que o marcador já existia e nada foi feito
	AlreadyApplied bool `json:"-"`
}

// TranslateLegacyRow é a tradução padrão: toda linha antiga vira buy-it-now,
// com o entry JSON carregando o "type" do item
func TranslateLegacyRow(row LegacyRow) (types.Listing, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	owner, err := uuid.Parse(row.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if !gjson.Valid(row.Entry) {
		return nil, errors.New("entry is not valid json")
	}

	entry := gjson.Parse(row.Entry)
	kind := entry.Get("type")
	if !kind.Exists() || kind.String() == "" {
		return nil, errors.New("entry has no type")
	}

	return &types.BuyItNow{ListingBase: types.ListingBase{
		ID:     id,
		Lister: owner,
		Entry: types.Entry{
			Type: kind.String(),
			Name: entry.Get("name").String(),
			Data: json.RawMessage(row.Entry),
		},
		Price:      types.CurrencyPrice(row.Price),
		Expiration: fromMillis(row.Expiration),
	}}, nil
}

// MigrateLegacy copia a tabela antiga para a atual numa única transação.
// O marcador em {prefix}migrations é gravado junto, então a migração roda
// uma vez só mesmo entre reinícios. A tabela antiga só é removida se todas
// as linhas foram migradas.
func (s *Store) MigrateLegacy(ctx context.Context) (LegacyReport, error) {
	var report LegacyReport
	legacyTable := s.table("listings_v3")

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := s.tableExists(ctx, tx, legacyTable)
		if err != nil || !exists {
			return err
		}

		var applied int
		if err := tx.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM `{prefix}migrations` WHERE name = ?"), legacyMigration).Scan(&applied); err != nil {
			return err
		}
		if applied > 0 {
			report.AlreadyApplied = true
			return nil
		}

		rows, err := s.readLegacyRows(ctx, tx)
		if err != nil {
			return err
		}

		for _, row := range rows {
			report.Parsed++

			if len(row.Nulls) > 0 {
				report.Failed++
				s.log.Error().
					Str("listing", row.ID).
					Str("columns", strings.Join(row.Nulls, ",")).
					Msg("legacy listing has null columns")
				continue
			}

			listing, err := s.translate(row)
			if err != nil {
				report.Failed++
				s.log.Error().Err(err).Str("listing", row.ID).Msg("legacy listing could not be translated")
				continue
			}

			present, err := s.listingExists(ctx, tx, listing.GetID())
			if err != nil {
				return err
			}
			if present {
				report.Skipped++
				continue
			}

			data, err := types.EncodeListing(listing)
			if err != nil {
				report.Failed++
				s.log.Error().Err(err).Str("listing", row.ID).Msg("legacy listing could not be encoded")
				continue
			}
			if err := s.insertListing(ctx, tx, listing, data); err != nil {
				return fmt.Errorf("insert legacy listing %s: %w", row.ID, err)
			}
			report.Migrated++
		}

		if report.Failed == 0 {
			if _, err := tx.ExecContext(ctx, s.q("DROP TABLE `"+legacyTable+"`")); err != nil {
				return fmt.Errorf("drop %s: %w", legacyTable, err)
			}
			report.Dropped = true
		}

		summary, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("encode migration report: %w", err)
		}
		_, err = tx.ExecContext(ctx, s.q("INSERT INTO `{prefix}migrations` (name, applied_at, report) VALUES (?, ?, ?)"),
			legacyMigration, s.now().UnixMilli(), string(summary))
		return err
	})
	if err != nil {
		return LegacyReport{}, err
	}

	if report.Parsed > 0 {
		event := s.log.Info()
		if report.Failed > 0 {
			event = s.log.Warn()
		}
		event.
			Int("parsed", report.Parsed).
			Int("migrated", report.Migrated).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Bool("dropped", report.Dropped).
			Msg("legacy listings migrated")
	}
	return report, nil
}

func (s *Store) readLegacyRows(ctx context.Context, tx *sql.Tx) ([]LegacyRow, error) {
	rows, err := tx.QueryContext(ctx, s.q("SELECT id, owner, price, expiration, entry FROM `{prefix}listings_v3`"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LegacyRow
	for rows.Next() {
		var (
			id, owner, entry sql.NullString
			price            sql.NullFloat64
			expiration       sql.NullInt64
		)
		if err := rows.Scan(&id, &owner, &price, &expiration, &entry); err != nil {
			return nil, err
		}

		row := LegacyRow{
			ID:         id.String,
			Owner:      owner.String,
			Price:      price.Float64,
			Expiration: expiration.Int64,
			Entry:      entry.String,
		}
		// expiration NULL vale como sem prazo, igual a 0
		for _, col := range []struct {
			name  string
			valid bool
		}{{"id", id.Valid}, {"owner", owner.Valid}, {"price", price.Valid}, {"entry", entry.Valid}} {
			if !col.valid {
				row.Nulls = append(row.Nulls, col.name)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
