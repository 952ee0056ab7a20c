package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/diogoX451/bazaar/internal/core/domain"
	"github.com/diogoX451/bazaar/internal/store"
	"github.com/diogoX451/bazaar/pkg/types"
)

// ProcessBid aplica o lance dentro de uma transação. Recusas não são erro:
// voltam com Successful=false e o motivo.
func (s *Store) ProcessBid(ctx context.Context, req types.BidRequest) (types.BidResult, error) {
	result := types.BidResult{BidRequest: req}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		listing, err := s.loadListing(ctx, tx, req.Listing, true)
		if errors.Is(err, store.ErrListingNotFound) {
			result.Error = types.ReasonNoListing
			return nil
		}
		if err != nil {
			return err
		}

		auction, ok := listing.(*types.Auction)
		if !ok {
			result.Error = types.ReasonNotAuction
			return nil
		}

		result = domain.PlaceBid(auction, req, s.cfg.IncrementRate, s.now())
		if !result.Successful {
			return nil
		}
		return s.updateListingTx(ctx, tx, auction)
	})
	if err != nil {
		return types.BidResult{BidRequest: req}, err
	}
	return result, nil
}

// ProcessPurchase remove o listing buy-it-now e registra a venda para o dono
func (s *Store) ProcessPurchase(ctx context.Context, req types.PurchaseRequest) (types.PurchaseResult, error) {
	result := types.PurchaseResult{PurchaseRequest: req}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		listing, err := s.loadListing(ctx, tx, req.Listing, true)
		if errors.Is(err, store.ErrListingNotFound) {
			result.Error = types.ReasonNoListing
			return nil
		}
		if err != nil {
			return err
		}

		bin, ok := listing.(*types.BuyItNow)
		switch {
		case !ok:
			result.Error = types.ReasonNotBuyItNow
			return nil
		case bin.Expired(s.now()):
			result.Error = types.ReasonExpired
			return nil
		case bin.Lister == req.Actor:
			result.Error = types.ReasonOwnListing
			return nil
		}

		res, err := tx.ExecContext(ctx, s.q(deleteListing), bin.ID.String())
		if err != nil {
			return err
		}
		if removed, err := affected(res); err != nil {
			return err
		} else if !removed {
			result.Error = types.ReasonNoListing
			return nil
		}

		sold := types.SoldListing{
			ID:            bin.ID,
			NameOfEntry:   bin.Entry.Name,
			MoneyReceived: bin.Price.Amount,
		}
		if err := s.addSoldTx(ctx, tx, bin.Lister, sold); err != nil {
			return err
		}

		result.Successful = true
		result.Seller = bin.Lister
		result.Price = bin.Price.Amount
		result.Sold = &sold
		return nil
	})
	if err != nil {
		return types.PurchaseResult{PurchaseRequest: req}, err
	}
	return result, nil
}

// ProcessListingRemoveRequest tenta apagar o listing e ecoa o pedido na
// resposta. Listing ausente é a corrida com compra ou expiração.
func (s *Store) ProcessListingRemoveRequest(ctx context.Context, req types.RemoveRequest) (types.RemoveResult, error) {
	result := types.RemoveResult{RemoveRequest: req}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		listing, err := s.loadListing(ctx, tx, req.Listing, true)
		if errors.Is(err, store.ErrListingNotFound) {
			result.Error = types.ReasonNoListing
			return nil
		}
		if err != nil {
			return err
		}

		// leilão com lance só sai pelo fim do prazo
		if auction, ok := listing.(*types.Auction); ok {
			if _, hasBid := auction.HighBid(); hasBid {
				result.Error = types.ReasonAuctionHasBids
				return nil
			}
		}

		res, err := tx.ExecContext(ctx, s.q(deleteListing), req.Listing.String())
		if err != nil {
			return err
		}
		removed, err := affected(res)
		if err != nil {
			return err
		}
		if !removed {
			result.Error = types.ReasonNoListing
			return nil
		}
		result.Successful = true
		return nil
	})
	if err != nil {
		return types.RemoveResult{RemoveRequest: req}, err
	}
	return result, nil
}
