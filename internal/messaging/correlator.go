package messaging

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diogoX451/bazaar/internal/store"
)

type pendingRequest struct {
	callback func(Response, error)
	timer    *time.Timer
}

// Correlator liga o id de um Request ao callback que espera a Response.
// Cada callback roda no máximo uma vez.
type Correlator struct {
	mu      sync.Mutex
	pending map[uuid.UUID]*pendingRequest
}

func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[uuid.UUID]*pendingRequest)}
}

// RegisterRequest guarda o callback sem prazo. Quem chama decide quando desistir.
func (c *Correlator) RegisterRequest(id uuid.UUID, callback func(Response)) {
	c.register(id, &pendingRequest{
		callback: func(resp Response, err error) {
			if err == nil {
				callback(resp)
			}
		},
	})
}

// RegisterWithDeadline remove a entrada depois de timeout e chama o
// callback com ErrRequestTimeout
func (c *Correlator) RegisterWithDeadline(id uuid.UUID, timeout time.Duration, callback func(Response, error)) {
	p := &pendingRequest{callback: callback}

	c.mu.Lock()
	if old, ok := c.pending[id]; ok && old.timer != nil {
		old.timer.Stop()
	}
	c.pending[id] = p
	if timeout > 0 {
		p.timer = time.AfterFunc(timeout, func() { c.expire(id, p) })
	}
	c.mu.Unlock()
}

// Expect registra o id e devolve uma future resolvida pela Response
// ou por ErrRequestTimeout
func (c *Correlator) Expect(id uuid.UUID, timeout time.Duration) *store.Future[Response] {
	f := store.NewFuture[Response]()
	c.RegisterWithDeadline(id, timeout, func(resp Response, err error) {
		f.Complete(resp, err)
	})
	return f
}

// ProcessRequest entrega a Response ao callback registrado em id.
// Id desconhecido é no-op e devolve false.
func (c *Correlator) ProcessRequest(id uuid.UUID, resp Response) bool {
	p, ok := c.take(id)
	if !ok {
		return false
	}
	p.callback(resp, nil)
	return true
}

// Cancel descarta a entrada sem chamar o callback
func (c *Correlator) Cancel(id uuid.UUID) bool {
	_, ok := c.take(id)
	return ok
}

func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Correlator) register(id uuid.UUID, p *pendingRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.pending[id]; ok && old.timer != nil {
		old.timer.Stop()
	}
	c.pending[id] = p
}

func (c *Correlator) take(id uuid.UUID) (*pendingRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[id]
	if !ok {
		return nil, false
	}
	delete(c.pending, id)
	if p.timer != nil {
		p.timer.Stop()
	}
	return p, true
}

func (c *Correlator) expire(id uuid.UUID, p *pendingRequest) {
	c.mu.Lock()
	current, ok := c.pending[id]
	if !ok || current != p {
		c.mu.Unlock()
		return
	}
	delete(c.pending, id)
	c.mu.Unlock()

	p.callback(nil, ErrRequestTimeout)
}
