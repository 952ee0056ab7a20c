package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Deduplicator marca ids de mensagem já processados.
// Observe devolve true apenas na primeira vez que um id é visto.
type Deduplicator interface {
	Observe(ctx context.Context, id uuid.UUID) (bool, error)
}

type seenEntry struct {
	id uuid.UUID
	at time.Time
}

// LocalDedup guarda os ids em memória, por processo.
// Com window > 0 um id expira depois da janela; com max > 0 os mais antigos
// são descartados acima do limite. window == 0 mantém os ids para sempre.
type LocalDedup struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	seen   map[uuid.UUID]time.Time
	order  []seenEntry
	now    func() time.Time
}

var _ Deduplicator = (*LocalDedup)(nil)

func NewLocalDedup(window time.Duration, max int) *LocalDedup {
	return &LocalDedup{
		window: window,
		max:    max,
		seen:   make(map[uuid.UUID]time.Time),
		now:    time.Now,
	}
}

func (d *LocalDedup) Observe(_ context.Context, id uuid.UUID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.evict(now)

	if at, ok := d.seen[id]; ok && !d.expired(at, now) {
		return false, nil
	}

	d.seen[id] = now
	d.order = append(d.order, seenEntry{id: id, at: now})

	if d.max > 0 {
		for len(d.seen) > d.max && len(d.order) > 0 {
			d.pop()
		}
	}
	return true, nil
}

// Len devolve quantos ids estão retidos
func (d *LocalDedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func (d *LocalDedup) expired(at, now time.Time) bool {
	return d.window > 0 && now.Sub(at) >= d.window
}

func (d *LocalDedup) evict(now time.Time) {
	if d.window <= 0 {
		return
	}
	for len(d.order) > 0 && d.expired(d.order[0].at, now) {
		d.pop()
	}
}

func (d *LocalDedup) pop() {
	head := d.order[0]
	d.order = d.order[1:]
	// o id pode ter sido reinserido depois desta entrada
	if at, ok := d.seen[head.id]; ok && at.Equal(head.at) {
		delete(d.seen, head.id)
	}
}
