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

// RemovalRequest pede a retirada de um listing. Recipient e ShouldReceive
// dizem quem recebe o item de volta e são ecoados na resposta.
type RemovalRequest struct {
	header
	types.RemoveRequest
}

var _ Request = (*RemovalRequest)(nil)

func NewRemovalRequest(req types.RemoveRequest) *RemovalRequest {
	return &RemovalRequest{header: newHeader(), RemoveRequest: req}
}

func (*RemovalRequest) Type() string { return TypeRemoveRequest }

func (r *RemovalRequest) Content() ([]byte, error) {
	return json.Marshal(r.RemoveRequest)
}

func (r *RemovalRequest) Execute(ctx context.Context, storage ports.RequestExecutor) *store.Future[Response] {
	return store.Map(storage.ProcessListingRemoveRequest(ctx, r.RemoveRequest), func(res types.RemoveResult) (Response, error) {
		return &RemovalResponse{
			responseHeader: responseHeader{header: newHeader(), request: r.id},
			Result:         res,
		}, nil
	})
}

func decodeRemoveFields(content gjson.Result) (types.RemoveRequest, error) {
	var req types.RemoveRequest
	var err error

	if req.Listing, err = requireUUID(content, "listing"); err != nil {
		return req, err
	}
	if req.Actor, err = requireUUID(content, "actor"); err != nil {
		return req, err
	}
	if req.Recipient, err = optionalUUID(content, "receiver"); err != nil {
		return req, err
	}
	if req.ShouldReceive, err = requireBool(content, "shouldReceive"); err != nil {
		return req, err
	}
	return req, nil
}

func decodeRemovalRequest(id uuid.UUID, content gjson.Result) (Message, error) {
	req, err := decodeRemoveFields(content)
	if err != nil {
		return nil, err
	}
	return &RemovalRequest{header: header{id: id}, RemoveRequest: req}, nil
}

type RemovalResponse struct {
	responseHeader
	Result types.RemoveResult
}

var _ Response = (*RemovalResponse)(nil)

func (*RemovalResponse) Type() string     { return TypeRemoveResponse }
func (r *RemovalResponse) Succeeded() bool { return r.Result.Successful }
func (r *RemovalResponse) Reason() string  { return r.Result.Error }

func (r *RemovalResponse) Content() ([]byte, error) {
	return json.Marshal(struct {
		Request uuid.UUID `json:"request"`
		types.RemoveResult
	}{r.request, r.Result})
}

func decodeRemovalResponse(id uuid.UUID, content gjson.Result) (Message, error) {
	request, err := requireUUID(content, "request")
	if err != nil {
		return nil, err
	}
	req, err := decodeRemoveFields(content)
	if err != nil {
		return nil, err
	}
	successful, err := requireBool(content, "successful")
	if err != nil {
		return nil, err
	}
	return &RemovalResponse{
		responseHeader: responseHeader{header: header{id: id}, request: request},
		Result: types.RemoveResult{
			RemoveRequest: req,
			Successful:    successful,
			Error:         content.Get("error").String(),
		},
	}, nil
}
