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

// BidRequest é um lance num leilão
type BidRequest struct {
	header
	types.BidRequest
}

var _ Request = (*BidRequest)(nil)

func NewBidRequest(req types.BidRequest) *BidRequest {
	return &BidRequest{header: newHeader(), BidRequest: req}
}

func (*BidRequest) Type() string { return TypeBidRequest }

func (r *BidRequest) Content() ([]byte, error) {
	return json.Marshal(r.BidRequest)
}

func (r *BidRequest) Execute(ctx context.Context, storage ports.RequestExecutor) *store.Future[Response] {
	return store.Map(storage.ProcessBid(ctx, r.BidRequest), func(res types.BidResult) (Response, error) {
		return &BidResponse{
			responseHeader: responseHeader{header: newHeader(), request: r.id},
			Result:         res,
		}, nil
	})
}

func decodeBidFields(content gjson.Result) (types.BidRequest, error) {
	var req types.BidRequest
	var err error

	if req.Listing, err = requireUUID(content, "listing"); err != nil {
		return req, err
	}
	if req.Actor, err = requireUUID(content, "actor"); err != nil {
		return req, err
	}
	if req.Amount, err = requireNumber(content, "amount"); err != nil {
		return req, err
	}
	return req, nil
}

func decodeBidRequest(id uuid.UUID, content gjson.Result) (Message, error) {
	req, err := decodeBidFields(content)
	if err != nil {
		return nil, err
	}
	return &BidRequest{header: header{id: id}, BidRequest: req}, nil
}

type BidResponse struct {
	responseHeader
	Result types.BidResult
}

var _ Response = (*BidResponse)(nil)

func (*BidResponse) Type() string     { return TypeBidResponse }
func (r *BidResponse) Succeeded() bool { return r.Result.Successful }
func (r *BidResponse) Reason() string  { return r.Result.Error }

func (r *BidResponse) Content() ([]byte, error) {
	return json.Marshal(struct {
		Request uuid.UUID `json:"request"`
		types.BidResult
	}{r.request, r.Result})
}

func decodeBidResponse(id uuid.UUID, content gjson.Result) (Message, error) {
	request, err := requireUUID(content, "request")
	if err != nil {
		return nil, err
	}
	req, err := decodeBidFields(content)
	if err != nil {
		return nil, err
	}
	successful, err := requireBool(content, "successful")
	if err != nil {
		return nil, err
	}
	previous, err := optionalUUID(content, "previousBidder")
	if err != nil {
		return nil, err
	}

	return &BidResponse{
		responseHeader: responseHeader{header: header{id: id}, request: request},
		Result: types.BidResult{
			BidRequest:     req,
			Successful:     successful,
			Error:          content.Get("error").String(),
			HighBid:        content.Get("highBid").Float(),
			PreviousBidder: previous,
		},
	}, nil
}
