package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Listing é um tipo soma fechado: só *BuyItNow e *Auction o implementam.
type Listing interface {
	GetID() uuid.UUID
	GetLister() uuid.UUID
	GetEntry() Entry
	GetPrice() Price
	GetExpiration() time.Time
	Kind() ListingKind
	isListing()
}

type ListingBase struct {
	ID         uuid.UUID `json:"id"`
	Lister     uuid.UUID `json:"lister"`
	Entry      Entry     `json:"entry"`
	Price      Price     `json:"price"`
	Expiration time.Time `json:"expiration"`
}

func (b ListingBase) GetID() uuid.UUID         { return b.ID }
func (b ListingBase) GetLister() uuid.UUID     { return b.Lister }
func (b ListingBase) GetEntry() Entry          { return b.Entry }
func (b ListingBase) GetPrice() Price          { return b.Price }
func (b ListingBase) GetExpiration() time.Time { return b.Expiration }
func (ListingBase) isListing()                 {}

// Expired indica se o listing já venceu em now. Expiração zero nunca vence.
func (b ListingBase) Expired(now time.Time) bool {
	return !b.Expiration.IsZero() && !now.Before(b.Expiration)
}

type BuyItNow struct {
	ListingBase
}

func (*BuyItNow) Kind() ListingKind { return KindBuyItNow }

type Bid struct {
	Bidder   uuid.UUID `json:"bidder"`
	Amount   float64   `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
}

// Auction usa Price.Amount como lance inicial
type Auction struct {
	ListingBase
	Bids []Bid `json:"bids,omitempty"`
}

func (*Auction) Kind() ListingKind { return KindAuction }

// HighBid retorna o maior lance. Lances são sempre anexados em ordem crescente.
func (a *Auction) HighBid() (Bid, bool) {
	if len(a.Bids) == 0 {
		return Bid{}, false
	}
	return a.Bids[len(a.Bids)-1], true
}

func (a *Auction) CurrentPrice() float64 {
	if bid, ok := a.HighBid(); ok {
		return bid.Amount
	}
	return a.Price.Amount
}

type listingDecoder func(data []byte) (Listing, error)

var listingDecoders = map[ListingKind]listingDecoder{
	KindBuyItNow: func(data []byte) (Listing, error) {
		var bin BuyItNow
		if err := json.Unmarshal(data, &bin); err != nil {
			return nil, err
		}
		return &bin, nil
	},
	KindAuction: func(data []byte) (Listing, error) {
		var auction Auction
		if err := json.Unmarshal(data, &auction); err != nil {
			return nil, err
		}
		return &auction, nil
	},
}

// EncodeListing serializa o listing com o campo "type" discriminador
func EncodeListing(l Listing) ([]byte, error) {
	if l == nil {
		return nil, fmt.Errorf("encode listing: nil listing")
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encode listing %s: %w", l.GetID(), err)
	}
	return sjson.SetBytes(data, "type", string(l.Kind()))
}

// DecodeListing lê o discriminador e delega para o decoder do tipo
func DecodeListing(data []byte) (Listing, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid listing: malformed json")
	}
	kind := gjson.GetBytes(data, "type")
	if !kind.Exists() {
		return nil, fmt.Errorf("invalid listing: missing type")
	}
	decode, ok := listingDecoders[ListingKind(kind.String())]
	if !ok {
		return nil, fmt.Errorf("invalid listing: unknown type %q", kind.String())
	}
	listing, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("invalid listing: %w", err)
	}
	if listing.GetID() == uuid.Nil {
		return nil, fmt.Errorf("invalid listing: missing id")
	}
	return listing, nil
}
