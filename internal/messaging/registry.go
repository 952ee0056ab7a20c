package messaging

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Tags de tipo no envelope
const (
	TypeListingPublish   = "Listing - Publish"
	TypeListingRemoved   = "Listing - Removed"
	TypeRemoveRequest    = "BIN - Remove Request"
	TypeRemoveResponse   = "BIN - Remove Response"
	TypePurchaseRequest  = "BIN - Purchase Request"
	TypePurchaseResponse = "BIN - Purchase Response"
	TypeBidRequest       = "Auction - Bid Request"
	TypeBidResponse      = "Auction - Bid Response"
)

// Decoder reconstrói a mensagem concreta a partir do content
type Decoder func(id uuid.UUID, content gjson.Result) (Message, error)

// Registry mapeia tag de tipo -> decoder
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// DefaultRegistry registra todos os tipos conhecidos
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeListingPublish, decodeListingPublished)
	r.Register(TypeListingRemoved, decodeListingRemoved)
	r.Register(TypeRemoveRequest, decodeRemovalRequest)
	r.Register(TypeRemoveResponse, decodeRemovalResponse)
	r.Register(TypePurchaseRequest, decodePurchaseRequest)
	r.Register(TypePurchaseResponse, decodePurchaseResponse)
	r.Register(TypeBidRequest, decodeBidRequest)
	r.Register(TypeBidResponse, decodeBidResponse)
	return r
}

func (r *Registry) Register(msgType string, decoder Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[msgType] = decoder
}

// Decode despacha o envelope para o decoder do tipo
func (r *Registry) Decode(env Envelope) (Message, error) {
	r.mu.RLock()
	decode, ok := r.decoders[env.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoDecoder, env.Type)
	}

	msg, err := decode(env.ID, env.Content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("decode %s: %w: decoder returned nothing", env.Type, ErrMalformedEnvelope)
	}
	return msg, nil
}
