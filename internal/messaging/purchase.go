package messaging

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/diogoX451/bazaar/internal/core/ports"
	"github.com/diogoX451/bazaar/internal/store"
	"github.com/diogoX451/bazaar/pkg/types"
)

// PurchaseRequest compra um listing buy-it-now
type PurchaseRequest struct {
	header
	types.PurchaseRequest
}

var _ Request = (*PurchaseRequest)(nil)

func NewPurchaseRequest(req types.PurchaseRequest) *PurchaseRequest {
	return &PurchaseRequest{header: newHeader(), PurchaseRequest: req}
}

func (*PurchaseRequest) Type() string { return TypePurchaseRequest }

func (r *PurchaseRequest) Content() ([]byte, error) {
	return json.Marshal(r.PurchaseRequest)
}

func (r *PurchaseRequest) Execute(ctx context.Context, storage ports.RequestExecutor) *store.Future[Response] {
	return store.Map(storage.ProcessPurchase(ctx, r.PurchaseRequest), func(res types.PurchaseResult) (Response, error) {
		return &PurchaseResponse{
			responseHeader: responseHeader{header: newHeader(), request: r.id},
			Result:         res,
		}, nil
	})
}

func decodePurchaseFields(content gjson.Result) (types.PurchaseRequest, error) {
	var req types.PurchaseRequest
	var err error

	if req.Listing, err = requireUUID(content, "listing"); err != nil {
		return req, err
	}
	if req.Actor, err = requireUUID(content, "actor"); err != nil {
		return req, err
	}
	return req, nil
}

func decodePurchaseRequest(id uuid.UUID, content gjson.Result) (Message, error) {
	req, err := decodePurchaseFields(content)
	if err != nil {
		return nil, err
	}
	return &PurchaseRequest{header: header{id: id}, PurchaseRequest: req}, nil
}

type PurchaseResponse struct {
	responseHeader
	Result types.PurchaseResult
}

var _ Response = (*PurchaseResponse)(nil)

func (*PurchaseResponse) Type() string     { return TypePurchaseResponse }
func (r *PurchaseResponse) Succeeded() bool { return r.Result.Successful }
func (r *PurchaseResponse) Reason() string  { return r.Result.Error }

func (r *PurchaseResponse) Content() ([]byte, error) {
	return json.Marshal(struct {
		Request uuid.UUID `json:"request"`
		types.PurchaseResult
	}{r.request, r.Result})
}

func decodePurchaseResponse(id uuid.UUID, content gjson.Result) (Message, error) {
	request, err := requireUUID(content, "request")
	if err != nil {
		return nil, err
	}
	req, err := decodePurchaseFields(content)
	if err != nil {
		return nil, err
	}
	successful, err := requireBool(content, "successful")
	if err != nil {
		return nil, err
	}

	result := types.PurchaseResult{
		PurchaseRequest: req,
		Successful:      successful,
		Error:           content.Get("error").String(),
		Price:           content.Get("price").Float(),
	}
	if seller, err := optionalUUID(content, "seller"); err != nil {
		return nil, err
	} else if seller != nil {
		result.Seller = *seller
	}
	if sold := content.Get("sold"); sold.IsObject() {
		var listing types.SoldListing
		if err := json.Unmarshal([]byte(sold.Raw), &listing); err != nil {
			return nil, invalid("sold", err.Error())
		}
		result.Sold = &listing
	}

	return &PurchaseResponse{
		responseHeader: responseHeader{header: header{id: id}, request: request},
		Result:         result,
	}, nil
}
