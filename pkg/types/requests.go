package types

import "github.com/google/uuid"

// Motivos devolvidos quando uma operação encontra estado conflitante
const (
	ReasonNoListing      = "no listing exists with that ID"
	ReasonNotBuyItNow    = "listing is not a buy-it-now listing"
	ReasonNotAuction     = "listing is not an auction"
	ReasonExpired        = "listing has expired"
	ReasonOwnListing     = "cannot act on your own listing"
	ReasonBidTooLow      = "bid does not meet the minimum increment"
	ReasonAuctionHasBids = "auction already has bids"
)

type RemoveRequest struct {
	Listing       uuid.UUID  `json:"listing"`
	Actor         uuid.UUID  `json:"actor"`
	Recipient     *uuid.UUID `json:"receiver,omitempty"`
	ShouldReceive bool       `json:"shouldReceive"`
}

type RemoveResult struct {
	RemoveRequest
	Successful bool   `json:"successful"`
	Error      string `json:"error,omitempty"`
}

type BidRequest struct {
	Listing uuid.UUID `json:"listing"`
	Actor   uuid.UUID `json:"actor"`
	Amount  float64   `json:"amount"`
}

type BidResult struct {
	BidRequest
	Successful bool   `json:"successful"`
	Error      string `json:"error,omitempty"`
	// HighBid é o maior lance após o processamento
	HighBid float64 `json:"highBid"`
	// PreviousBidder recebe o reembolso quando o lance é superado
	PreviousBidder *uuid.UUID `json:"previousBidder,omitempty"`
}

type PurchaseRequest struct {
	Listing uuid.UUID `json:"listing"`
	Actor   uuid.UUID `json:"actor"`
}

type PurchaseResult struct {
	PurchaseRequest
	Successful bool         `json:"successful"`
	Error      string       `json:"error,omitempty"`
	Seller     uuid.UUID    `json:"seller,omitempty"`
	Price      float64      `json:"price,omitempty"`
	Sold       *SoldListing `json:"sold,omitempty"`
}
