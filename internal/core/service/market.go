package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diogoX451/bazaar/internal/core/domain"
	"github.com/diogoX451/bazaar/internal/core/ports"
	"github.com/diogoX451/bazaar/internal/messaging"
	"github.com/diogoX451/bazaar/internal/store"
	"github.com/diogoX451/bazaar/pkg/types"
)

// Motivos anunciados em Listing - Removed
const (
	RemovedPurchased = "purchased"
	RemovedByActor   = "removed"
	RemovedExpired   = "expired"
	RemovedSold      = "sold"
)

// Market orquestra o mercado de um nó: valida, persiste, envia Requests
// pelo barramento e mantém o cache local em dia
type Market struct {
	storage   ports.Storage
	messenger *messaging.Messenger
	cache     ports.ListingCache
	policy    domain.Policy
	log       zerolog.Logger
	now       func() time.Time
}

func NewMarket(storage ports.Storage, messenger *messaging.Messenger, cache ports.ListingCache, policy domain.Policy, log zerolog.Logger) *Market {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Market{
		storage:   storage,
		messenger: messenger,
		cache:     cache,
		policy:    policy,
		log:       log.With().Str("component", "market").Logger(),
		now:       time.Now,
	}
}

// RegisterConsumers liga os Updates recebidos de outros nós ao cache
func (m *Market) RegisterConsumers() {
	consumer := m.messenger.Consumer()

	consumer.RegisterInternalConsumer(messaging.TypeListingPublish, func(ctx context.Context, u messaging.Update) error {
		published, ok := u.(*messaging.ListingPublished)
		if !ok {
			return fmt.Errorf("unexpected update %T", u)
		}
		return m.cache.Put(ctx, published.Listing)
	})

	consumer.RegisterInternalConsumer(messaging.TypeListingRemoved, func(ctx context.Context, u messaging.Update) error {
		removed, ok := u.(*messaging.ListingRemoved)
		if !ok {
			return fmt.Errorf("unexpected update %T", u)
		}
		m.log.Debug().
			Str("listing", removed.Listing.String()).
			Str("reason", removed.Reason).
			Msg("listing removed remotely")
		return m.cache.Remove(ctx, removed.Listing)
	})
}

// Sync carrega o cache a partir do storage
func (m *Market) Sync(ctx context.Context) (int, error) {
	result, err := m.storage.GetListings(ctx).Await(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync listings: %w", err)
	}
	for _, l := range result.Listings {
		if err := m.cache.Put(ctx, l); err != nil {
			return 0, fmt.Errorf("sync listings: %w", err)
		}
	}
	if result.Skipped > 0 {
		m.log.Warn().Int("skipped", result.Skipped).Msg("undecodable listings ignored during sync")
	}
	return len(result.Listings), nil
}

// Publish valida e grava um listing novo, depois anuncia aos outros nós
func (m *Market) Publish(ctx context.Context, listing types.Listing) error {
	now := m.now()
	if listing == nil {
		return m.policy.ValidateListing(nil, now, 0)
	}

	active, err := m.activeListings(ctx, listing.GetLister(), now)
	if err != nil {
		return err
	}
	if err := m.policy.ValidateListing(listing, now, active); err != nil {
		return err
	}

	if _, err := m.storage.AddListing(ctx, listing).Await(ctx); err != nil {
		return fmt.Errorf("publish listing %s: %w", listing.GetID(), err)
	}
	m.cachePut(ctx, listing)

	if err := m.messenger.Publish(ctx, messaging.NewListingPublished(listing)); err != nil {
		// já está persistido; os outros nós veem no próximo Sync
		m.log.Error().Err(err).Str("listing", listing.GetID().String()).Msg("broadcast publish failed")
	}

	m.log.Info().
		Str("listing", listing.GetID().String()).
		Str("lister", listing.GetLister().String()).
		Str("kind", listing.Kind().String()).
		Msg("listing published")
	return nil
}

// activeListings lê a contagem do cache para recusar cedo. O limite
// definitivo é aplicado pelo storage dentro da transação do AddListing.
func (m *Market) activeListings(ctx context.Context, lister uuid.UUID, now time.Time) (int, error) {
	active, err := m.cache.CountByLister(ctx, lister, now)
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return active, nil
}

// Purchase envia o pedido de compra e espera o responder
func (m *Market) Purchase(ctx context.Context, req types.PurchaseRequest) (types.PurchaseResult, error) {
	resp, err := messaging.Send[*messaging.PurchaseResponse](ctx, m.messenger, messaging.NewPurchaseRequest(req))
	if err != nil {
		return types.PurchaseResult{PurchaseRequest: req}, err
	}
	if resp.Succeeded() {
		m.announceRemoval(ctx, req.Listing, req.Actor, RemovedPurchased)
	}
	return resp.Result, nil
}

// Bid envia o lance. Aceito, o leilão atualizado é reanunciado.
func (m *Market) Bid(ctx context.Context, req types.BidRequest) (types.BidResult, error) {
	resp, err := messaging.Send[*messaging.BidResponse](ctx, m.messenger, messaging.NewBidRequest(req))
	if err != nil {
		return types.BidResult{BidRequest: req}, err
	}
	if resp.Succeeded() {
		m.refresh(ctx, req.Listing)
	}
	return resp.Result, nil
}

// Remove envia o pedido de remoção em nome de Actor
func (m *Market) Remove(ctx context.Context, req types.RemoveRequest) (types.RemoveResult, error) {
	resp, err := messaging.Send[*messaging.RemovalResponse](ctx, m.messenger, messaging.NewRemovalRequest(req))
	if err != nil {
		return types.RemoveResult{RemoveRequest: req}, err
	}
	if resp.Succeeded() {
		m.announceRemoval(ctx, req.Listing, req.Actor, RemovedByActor)
	}
	return resp.Result, nil
}

func (m *Market) refresh(ctx context.Context, id uuid.UUID) {
	listing, err := m.storage.GetListing(ctx, id).Await(ctx)
	if err != nil {
		m.log.Warn().Err(err).Str("listing", id.String()).Msg("refresh failed")
		return
	}
	m.cachePut(ctx, listing)
	if err := m.messenger.Publish(ctx, messaging.NewListingPublished(listing)); err != nil {
		m.log.Error().Err(err).Str("listing", id.String()).Msg("broadcast refresh failed")
	}
}

func (m *Market) announceRemoval(ctx context.Context, id, actor uuid.UUID, reason string) {
	if err := m.cache.Remove(ctx, id); err != nil {
		m.log.Warn().Err(err).Str("listing", id.String()).Msg("cache remove failed")
	}
	if err := m.messenger.Publish(ctx, messaging.NewListingRemoved(id, actor, reason)); err != nil {
		m.log.Error().Err(err).Str("listing", id.String()).Str("reason", reason).Msg("broadcast removal failed")
	}
}

func (m *Market) cachePut(ctx context.Context, listing types.Listing) {
	if err := m.cache.Put(ctx, listing); err != nil {
		m.log.Warn().Err(err).Str("listing", listing.GetID().String()).Msg("cache put failed")
	}
}

// Listings lê direto do storage, que é a fonte de verdade
func (m *Market) Listings(ctx context.Context) ([]types.Listing, error) {
	result, err := m.storage.GetListings(ctx).Await(ctx)
	if err != nil {
		return nil, err
	}
	return result.Listings, nil
}

// Listing consulta o cache e cai para o storage
func (m *Market) Listing(ctx context.Context, id uuid.UUID) (types.Listing, error) {
	if l, ok, err := m.cache.Get(ctx, id); err == nil && ok {
		return l, nil
	}
	l, err := m.storage.GetListing(ctx, id).Await(ctx)
	if err != nil {
		return nil, err
	}
	m.cachePut(ctx, l)
	return l, nil
}

// CachedListings é a visão local, sem ir ao storage
func (m *Market) CachedListings(ctx context.Context) ([]types.Listing, error) {
	return m.cache.All(ctx)
}

func (m *Market) Ignore(ctx context.Context, player uuid.UUID) error {
	_, err := m.storage.AddIgnorer(ctx, player).Await(ctx)
	return err
}

func (m *Market) Unignore(ctx context.Context, player uuid.UUID) (bool, error) {
	return m.storage.RemoveIgnorer(ctx, player).Await(ctx)
}

func (m *Market) Ignorers(ctx context.Context) ([]uuid.UUID, error) {
	return m.storage.GetAllIgnorers(ctx).Await(ctx)
}

func (m *Market) SoldFor(ctx context.Context, owner uuid.UUID) ([]types.SoldListing, error) {
	return m.storage.GetAllSoldListingsForPlayer(ctx, owner).Await(ctx)
}

// Claim remove a venda depois que o dono recebeu o valor
func (m *Market) Claim(ctx context.Context, id, owner uuid.UUID) (bool, error) {
	return m.storage.DeleteSoldListing(ctx, id, owner).Await(ctx)
}

// SweepExpired remove os listings vencidos. Leilões com lance viram venda
// para o lister pelo maior lance.
func (m *Market) SweepExpired(ctx context.Context) (int, error) {
	purged, err := m.storage.Purge(ctx, m.now()).Await(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}

	var errs []error
	for _, listing := range purged {
		reason, actor := RemovedExpired, listing.GetLister()

		if auction, ok := listing.(*types.Auction); ok {
			if high, hasBid := auction.HighBid(); hasBid {
				sold := types.SoldListing{
					ID:            auction.ID,
					NameOfEntry:   auction.Entry.Name,
					MoneyReceived: high.Amount,
				}
				if _, err := m.storage.AddToSoldListings(ctx, auction.Lister, sold).Await(ctx); err != nil {
					errs = append(errs, fmt.Errorf("settle auction %s: %w", auction.ID, err))
					continue
				}
				reason, actor = RemovedSold, high.Bidder
				m.log.Info().
					Str("listing", auction.ID.String()).
					Str("winner", high.Bidder.String()).
					Float64("amount", high.Amount).
					Msg("auction settled")
			}
		}

		m.announceRemoval(ctx, listing.GetID(), actor, reason)
	}

	if len(purged) > 0 {
		m.log.Info().Int("purged", len(purged)).Msg("expired listings swept")
	}
	return len(purged), errors.Join(errs...)
}

// RunSweeper roda SweepExpired a cada intervalo até ctx ser cancelado
func (m *Market) RunSweeper(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.SweepExpired(ctx); err != nil && !errors.Is(err, store.ErrStorageClosed) {
				m.log.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}
