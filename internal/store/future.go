package store

import (
	"context"
	"sync"
)

// Future é o resultado de uma operação de storage que roda no pool.
// Completa uma única vez; chamadas seguintes a Complete são ignoradas.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed devolve uma future já resolvida
func Completed[T any](v T) *Future[T] {
	f := NewFuture[T]()
	f.Complete(v, nil)
	return f
}

// Failed devolve uma future já falhada
func Failed[T any](err error) *Future[T] {
	f := NewFuture[T]()
	var zero T
	f.Complete(zero, err)
	return f
}

// Complete resolve a future. Devolve false se ela já estava resolvida.
func (f *Future[T]) Complete(v T, err error) bool {
	completed := false
	f.once.Do(func() {
		f.val = v
		f.err = err
		completed = true
		close(f.done)
	})
	return completed
}

// Done fecha quando a future é resolvida
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await bloqueia até o resultado ou até ctx terminar
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then registra uma continuação. Roda em goroutine própria, nunca na do chamador.
func (f *Future[T]) Then(fn func(T, error)) {
	go func() {
		<-f.done
		fn(f.val, f.err)
	}()
}

// Map encadeia uma transformação sobre o valor
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	next := NewFuture[U]()
	f.Then(func(v T, err error) {
		if err != nil {
			var zero U
			next.Complete(zero, err)
			return
		}
		next.Complete(fn(v))
	})
	return next
}
