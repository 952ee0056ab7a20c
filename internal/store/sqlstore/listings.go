package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diogoX451/bazaar/internal/core/domain"
	"github.com/diogoX451/bazaar/internal/store"
	"github.com/diogoX451/bazaar/pkg/types"
)

const (
	insertListing  = "INSERT INTO `{prefix}listings` (id, lister, expiration, listing) VALUES (?, ?, ?, ?)"
	selectListing  = "SELECT listing FROM `{prefix}listings` WHERE id = ?"
	selectListings = "SELECT id, listing FROM `{prefix}listings`"
	updateListing  = "UPDATE `{prefix}listings` SET listing = ?, expiration = ? WHERE id = ?"
	deleteListing  = "DELETE FROM `{prefix}listings` WHERE id = ?"
	countListing   = "SELECT COUNT(*) FROM `{prefix}listings` WHERE id = ?"
	countActive    = "SELECT COUNT(*) FROM `{prefix}listings` WHERE lister = ? AND (expiration = 0 OR expiration > ?)"
	selectExpired  = "SELECT id, listing FROM `{prefix}listings` WHERE expiration > 0 AND expiration <= ?"

	insertIgnorer  = "INSERT INTO `{prefix}ignorers` (uuid) VALUES (?) ON CONFLICT (uuid) DO NOTHING"
	deleteIgnorer  = "DELETE FROM `{prefix}ignorers` WHERE uuid = ?"
	selectIgnorers = "SELECT uuid FROM `{prefix}ignorers`"

	insertSold = "INSERT INTO `{prefix}sold` (id, owner, name, price) VALUES (?, ?, ?, ?)"
	selectSold = "SELECT id, name, price FROM `{prefix}sold` WHERE owner = ?"
	deleteSold = "DELETE FROM `{prefix}sold` WHERE id = ? AND owner = ?"
)

// AddListing nunca sobrescreve: id repetido é ErrDuplicateListing. Com
// MaxListingsPerLister, a contagem e o insert ficam na mesma transação.
func (s *Store) AddListing(ctx context.Context, listing types.Listing) (bool, error) {
	data, err := types.EncodeListing(listing)
	if err != nil {
		return false, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := s.listingExists(ctx, tx, listing.GetID())
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", store.ErrDuplicateListing, listing.GetID())
		}
		if err := s.checkListerLimit(ctx, tx, listing.GetLister()); err != nil {
			return err
		}
		return s.insertListing(ctx, tx, listing, data)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) checkListerLimit(ctx context.Context, tx *sql.Tx, lister uuid.UUID) error {
	limit := s.cfg.MaxListingsPerLister
	if limit <= 0 {
		return nil
	}

	if s.dialect.lockLister != "" {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.lockLister), s.prefix+lister.String()); err != nil {
			return fmt.Errorf("lock lister %s: %w", lister, err)
		}
	}

	var active int
	if err := tx.QueryRowContext(ctx, s.q(countActive), lister.String(), toMillis(s.now())).Scan(&active); err != nil {
		return err
	}
	if active >= limit {
		return fmt.Errorf("%w (%d)", domain.ErrTooManyListings, limit)
	}
	return nil
}

func (s *Store) insertListing(ctx context.Context, tx *sql.Tx, listing types.Listing, data []byte) error {
	_, err := tx.ExecContext(ctx, s.q(insertListing),
		listing.GetID().String(),
		listing.GetLister().String(),
		toMillis(listing.GetExpiration()),
		string(data),
	)
	return err
}

func (s *Store) listingExists(ctx context.Context, q queryer, id uuid.UUID) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, s.q(countListing), id.String()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (types.Listing, error) {
	return s.loadListing(ctx, s.db, id, false)
}

// loadListing lê e decodifica um listing. forUpdate trava a linha no postgres.
func (s *Store) loadListing(ctx context.Context, q queryer, id uuid.UUID, forUpdate bool) (types.Listing, error) {
	query := selectListing
	if forUpdate {
		query += s.dialect.forUpdate
	}

	var data string
	err := q.QueryRowContext(ctx, s.q(query), id.String()).Scan(&data)
	if isNoRows(err) {
		return nil, fmt.Errorf("%w: %s", store.ErrListingNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return types.DecodeListing([]byte(data))
}

// GetListings lê todos os listings. Linhas que não decodificam são contadas
// e puladas. Na primeira chamada roda a migração do formato antigo.
func (s *Store) GetListings(ctx context.Context) (store.ListingsResult, error) {
	if s.legacyChecked.CompareAndSwap(false, true) {
		if _, err := s.MigrateLegacy(ctx); err != nil {
			// a transação voltou inteira; a próxima leitura tenta de novo
			s.legacyChecked.Store(false)
			s.log.Error().Err(err).Msg("legacy migration failed")
		}
	}

	rows, err := s.db.QueryContext(ctx, s.q(selectListings))
	if err != nil {
		return store.ListingsResult{}, err
	}
	defer rows.Close()

	var result store.ListingsResult
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return result, err
		}
		listing, err := types.DecodeListing([]byte(data))
		if err != nil {
			result.Skipped++
			s.log.Error().Err(err).Str("listing", id).Msg("skipping undecodable listing")
			continue
		}
		result.Listings = append(result.Listings, listing)
	}
	if err := rows.Err(); err != nil {
		return result, err
	}

	if result.Skipped > 0 {
		s.log.Warn().Int("skipped", result.Skipped).Int("loaded", len(result.Listings)).Msg("some listings could not be read")
	}
	return result, nil
}

func (s *Store) UpdateListing(ctx context.Context, listing types.Listing) (bool, error) {
	data, err := types.EncodeListing(listing)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, s.q(updateListing), string(data), toMillis(listing.GetExpiration()), listing.GetID().String())
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *Store) updateListingTx(ctx context.Context, tx *sql.Tx, listing types.Listing) error {
	data, err := types.EncodeListing(listing)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.q(updateListing), string(data), toMillis(listing.GetExpiration()), listing.GetID().String())
	return err
}

// DeleteListing devolve false quando a linha já não existia
func (s *Store) DeleteListing(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(deleteListing), id.String())
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *Store) Purge(ctx context.Context, now time.Time) ([]types.Listing, error) {
	var purged []types.Listing

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, s.q(selectExpired), now.UnixMilli())
		if err != nil {
			return err
		}

		var ids []string
		for rows.Next() {
			var id, data string
			if err := rows.Scan(&id, &data); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)

			listing, err := types.DecodeListing([]byte(data))
			if err != nil {
				s.log.Error().Err(err).Str("listing", id).Msg("purging undecodable listing")
				continue
			}
			purged = append(purged, listing)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, s.q(deleteListing), id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purged, nil
}

// --- Ignorers ---

func (s *Store) AddIgnorer(ctx context.Context, player uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(insertIgnorer), player.String())
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *Store) RemoveIgnorer(ctx context.Context, player uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(deleteIgnorer), player.String())
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *Store) GetAllIgnorers(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, s.q(selectIgnorers))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			s.log.Warn().Str("uuid", raw).Msg("ignoring invalid ignorer id")
			continue
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// --- Vendas concluídas ---

func (s *Store) AddToSoldListings(ctx context.Context, owner uuid.UUID, sold types.SoldListing) (bool, error) {
	_, err := s.db.ExecContext(ctx, s.q(insertSold), sold.ID.String(), owner.String(), sold.NameOfEntry, sold.MoneyReceived)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) addSoldTx(ctx context.Context, tx *sql.Tx, owner uuid.UUID, sold types.SoldListing) error {
	_, err := tx.ExecContext(ctx, s.q(insertSold), sold.ID.String(), owner.String(), sold.NameOfEntry, sold.MoneyReceived)
	return err
}

func (s *Store) GetAllSoldListingsForPlayer(ctx context.Context, owner uuid.UUID) ([]types.SoldListing, error) {
	rows, err := s.db.QueryContext(ctx, s.q(selectSold), owner.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.SoldListing
	for rows.Next() {
		var (
			raw  string
			sold types.SoldListing
		)
		if err := rows.Scan(&raw, &sold.NameOfEntry, &sold.MoneyReceived); err != nil {
			return nil, err
		}
		if sold.ID, err = uuid.Parse(raw); err != nil {
			return nil, fmt.Errorf("sold listing id %q: %w", raw, err)
		}
		out = append(out, sold)
	}
	return out, rows.Err()
}

// DeleteSoldListing exige id e dono, para que ninguém apague a venda de outro
func (s *Store) DeleteSoldListing(ctx context.Context, id, owner uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(deleteSold), id.String(), owner.String())
	if err != nil {
		return false, err
	}
	return affected(res)
}
