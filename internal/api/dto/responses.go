package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/diogoX451/bazaar/pkg/types"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Server    string    `json:"server,omitempty"`
	Storage   string    `json:"storage,omitempty"`
}

type ListingsResponse struct {
	Listings []json.RawMessage `json:"listings"`
	Count    int               `json:"count"`
}

type SoldListingsResponse struct {
	Owner uuid.UUID           `json:"owner"`
	Sold  []types.SoldListing `json:"sold"`
}

type IgnorersResponse struct {
	Ignorers []uuid.UUID `json:"ignorers"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
