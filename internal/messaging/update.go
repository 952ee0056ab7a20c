package messaging

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/diogoX451/bazaar/pkg/types"
)

// ListingPublished anuncia um listing novo para os outros nós
type ListingPublished struct {
	header
	Listing types.Listing
}

var _ Update = (*ListingPublished)(nil)

func NewListingPublished(listing types.Listing) *ListingPublished {
	return &ListingPublished{header: newHeader(), Listing: listing}
}

func (*ListingPublished) Type() string { return TypeListingPublish }
func (*ListingPublished) update()      {}

func (m *ListingPublished) Content() ([]byte, error) {
	listing, err := types.EncodeListing(m.Listing)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Listing json.RawMessage `json:"listing"`
	}{Listing: listing})
}

func decodeListingPublished(id uuid.UUID, content gjson.Result) (Message, error) {
	raw := content.Get("listing")
	if !raw.Exists() || !raw.IsObject() {
		return nil, missing("listing")
	}
	listing, err := types.DecodeListing([]byte(raw.Raw))
	if err != nil {
		return nil, invalid("listing", err.Error())
	}
	return &ListingPublished{header: header{id: id}, Listing: listing}, nil
}

// ListingRemoved avisa que um listing saiu do mercado (compra, expiração, remoção)
type ListingRemoved struct {
	header
	Listing uuid.UUID
	Actor   uuid.UUID
	Reason  string
}

var _ Update = (*ListingRemoved)(nil)

func NewListingRemoved(listing, actor uuid.UUID, reason string) *ListingRemoved {
	return &ListingRemoved{header: newHeader(), Listing: listing, Actor: actor, Reason: reason}
}

func (*ListingRemoved) Type() string { return TypeListingRemoved }
func (*ListingRemoved) update()      {}

func (m *ListingRemoved) Content() ([]byte, error) {
	return json.Marshal(struct {
		Listing uuid.UUID `json:"listing"`
		Actor   uuid.UUID `json:"actor"`
		Reason  string    `json:"reason,omitempty"`
	}{m.Listing, m.Actor, m.Reason})
}

func decodeListingRemoved(id uuid.UUID, content gjson.Result) (Message, error) {
	listing, err := requireUUID(content, "listing")
	if err != nil {
		return nil, err
	}
	actor, err := requireUUID(content, "actor")
	if err != nil {
		return nil, err
	}
	return &ListingRemoved{
		header:  header{id: id},
		Listing: listing,
		Actor:   actor,
		Reason:  content.Get("reason").String(),
	}, nil
}
