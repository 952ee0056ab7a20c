package dto

import (
	"github.com/google/uuid"

	"github.com/diogoX451/bazaar/pkg/types"
)

type PublishListingRequest struct {
	Kind   types.ListingKind `json:"kind"` // bin | auction
	Lister uuid.UUID         `json:"lister"`
	Entry  types.Entry       `json:"entry"`
	Price  types.Price       `json:"price"`
	// Duration no formato de time.ParseDuration; vazio usa o padrão do mercado
	Duration string `json:"duration,omitempty"`
}

type RemoveListingRequest struct {
	Actor         uuid.UUID  `json:"actor"`
	Receiver      *uuid.UUID `json:"receiver,omitempty"`
	ShouldReceive bool       `json:"should_receive"`
}

type PurchaseRequest struct {
	Actor uuid.UUID `json:"actor"`
}

type BidRequest struct {
	Actor  uuid.UUID `json:"actor"`
	Amount float64   `json:"amount"`
}
