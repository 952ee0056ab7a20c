package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/diogoX451/bazaar/pkg/types"
)

var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrDuplicateListing = errors.New("listing already exists")
	ErrStorageClosed    = errors.New("storage is closed")
	ErrQueueFull        = errors.New("storage queue is full")
)

// ListingsResult é a leitura em lote. Linhas que não decodificam são
// contadas em Skipped em vez de abortar a leitura.
type ListingsResult struct {
	Listings []types.Listing
	Skipped  int
}

// Meta descreve o backend em uso
type Meta struct {
	Name    string
	Driver  string
	Prefix  string
	Version string
}

// Implementation é o backend de persistência. Todas as chamadas bloqueiam;
// quem está em thread de entrega usa o Async.
type Implementation interface {
	Name() string
	Meta() Meta

	// Init abre o pool e aplica o schema. Erro aqui é fatal no startup.
	Init(ctx context.Context) error
	Shutdown() error

	// Listings
	AddListing(ctx context.Context, listing types.Listing) (bool, error)
	GetListing(ctx context.Context, id uuid.UUID) (types.Listing, error)
	GetListings(ctx context.Context) (ListingsResult, error)
	UpdateListing(ctx context.Context, listing types.Listing) (bool, error)
	DeleteListing(ctx context.Context, id uuid.UUID) (bool, error)
	// Purge apaga os listings expirados em now e devolve o que foi apagado
	Purge(ctx context.Context, now time.Time) ([]types.Listing, error)

	// Ignorers
	AddIgnorer(ctx context.Context, player uuid.UUID) (bool, error)
	RemoveIgnorer(ctx context.Context, player uuid.UUID) (bool, error)
	GetAllIgnorers(ctx context.Context) ([]uuid.UUID, error)

	// Vendas concluídas
	AddToSoldListings(ctx context.Context, owner uuid.UUID, sold types.SoldListing) (bool, error)
	GetAllSoldListingsForPlayer(ctx context.Context, owner uuid.UUID) ([]types.SoldListing, error)
	DeleteSoldListing(ctx context.Context, id, owner uuid.UUID) (bool, error)

	// Requests vindos do barramento
	ProcessBid(ctx context.Context, req types.BidRequest) (types.BidResult, error)
	ProcessPurchase(ctx context.Context, req types.PurchaseRequest) (types.PurchaseResult, error)
	ProcessListingRemoveRequest(ctx context.Context, req types.RemoveRequest) (types.RemoveResult, error)
}
