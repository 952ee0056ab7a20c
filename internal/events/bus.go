package events

import (
	"context"
	"time"
)

// Bus abstração do pub/sub entre nós. Toda mensagem publicada num subject
// chega a todos os nós inscritos nele.
type Bus interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Subscribe(subject string, handler Handler) (Subscription, error)
	Close() error
}

// Handler processa mensagens
type Handler func(ctx context.Context, msg Message) error

type Message interface {
	Data() []byte
	Subject() string
	Ack() error
}

type Subscription interface {
	Unsubscribe() error
}

type StreamConfig struct {
	Name     string
	Subjects []string
	MaxMsgs  int64
	MaxAge   time.Duration
	Storage  StorageType
	Replicas int
}

type StorageType int

const (
	StorageFile StorageType = iota
	StorageMemory
)
