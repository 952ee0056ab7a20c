package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/diogoX451/bazaar/internal/store"
	"github.com/diogoX451/bazaar/pkg/types"
)

// RequestExecutor é o que um Request precisa para gerar sua Response.
// Nenhuma chamada bloqueia: o resultado chega pela future.
type RequestExecutor interface {
	ProcessListingRemoveRequest(ctx context.Context, req types.RemoveRequest) *store.Future[types.RemoveResult]
	ProcessPurchase(ctx context.Context, req types.PurchaseRequest) *store.Future[types.PurchaseResult]
	ProcessBid(ctx context.Context, req types.BidRequest) *store.Future[types.BidResult]
}

// Storage é a fachada assíncrona usada pelo core.
// Implementado por store.Async.
type Storage interface {
	RequestExecutor

	AddListing(ctx context.Context, listing types.Listing) *store.Future[bool]
	GetListing(ctx context.Context, id uuid.UUID) *store.Future[types.Listing]
	GetListings(ctx context.Context) *store.Future[store.ListingsResult]
	DeleteListing(ctx context.Context, id uuid.UUID) *store.Future[bool]
	Purge(ctx context.Context, now time.Time) *store.Future[[]types.Listing]

	AddIgnorer(ctx context.Context, player uuid.UUID) *store.Future[bool]
	RemoveIgnorer(ctx context.Context, player uuid.UUID) *store.Future[bool]
	GetAllIgnorers(ctx context.Context) *store.Future[[]uuid.UUID]

	AddToSoldListings(ctx context.Context, owner uuid.UUID, sold types.SoldListing) *store.Future[bool]
	GetAllSoldListingsForPlayer(ctx context.Context, owner uuid.UUID) *store.Future[[]types.SoldListing]
	DeleteSoldListing(ctx context.Context, id, owner uuid.UUID) *store.Future[bool]
}

// ListingCache mantém a visão local dos listings, atualizada por Updates
type ListingCache interface {
	Put(ctx context.Context, listing types.Listing) error
	Remove(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (types.Listing, bool, error)
	All(ctx context.Context) ([]types.Listing, error)
	// CountByLister conta os listings do lister que vencem depois de now
	CountByLister(ctx context.Context, lister uuid.UUID, now time.Time) (int, error)
}
