package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

type Data = json.RawMessage

// ListingKind é o discriminador gravado junto de cada listing serializado
type ListingKind string

const (
	KindBuyItNow ListingKind = "bin"
	KindAuction  ListingKind = "auction"
)

func (k ListingKind) String() string {
	return string(k)
}

type PriceKind string

const (
	PriceCurrency PriceKind = "currency"
	PriceItem     PriceKind = "item"
)

// Entry é o conteúdo vendável. A definição de cada tipo de item vive fora
// deste módulo; aqui só transportamos o payload.
type Entry struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Data Data   `json:"data,omitempty"`
}

// Price pode ser moeda ou um item. Para preços em item, Amount guarda a
// valoração usada nas regras de mercado.
type Price struct {
	Kind   PriceKind `json:"kind"`
	Amount float64   `json:"amount"`
	Item   *Entry    `json:"item,omitempty"`
}

func CurrencyPrice(amount float64) Price {
	return Price{Kind: PriceCurrency, Amount: amount}
}

type SoldListing struct {
	ID            uuid.UUID `json:"id"`
	NameOfEntry   string    `json:"name"`
	MoneyReceived float64   `json:"price"`
}
