package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/diogoX451/bazaar/internal/core/ports"
	"github.com/diogoX451/bazaar/internal/store"
)

// Message é a unidade trocada entre processos
type Message interface {
	ID() uuid.UUID
	Type() string
	Content() ([]byte, error)
}

// Update é uma notificação sem resposta, entregue a um consumer interno
type Update interface {
	Message
	update()
}

// Request é executado pelo nó responder contra o storage local
type Request interface {
	Message
	Execute(ctx context.Context, storage ports.RequestExecutor) *store.Future[Response]
}

// Response volta para o nó que emitiu o Request
type Response interface {
	Message
	RequestID() uuid.UUID
	Succeeded() bool
	Reason() string
}

type header struct {
	id uuid.UUID
}

func newHeader() header {
	return header{id: uuid.New()}
}

func (h header) ID() uuid.UUID { return h.id }

type responseHeader struct {
	header
	request uuid.UUID
}

func (h responseHeader) RequestID() uuid.UUID { return h.request }

// EncodeMessage serializa a mensagem no envelope de transporte
func EncodeMessage(msg Message) (string, error) {
	content, err := msg.Content()
	if err != nil {
		return "", fmt.Errorf("encode %s content: %w", msg.Type(), err)
	}
	return Encode(msg.Type(), msg.ID(), content)
}
