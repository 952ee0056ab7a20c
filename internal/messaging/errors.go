package messaging

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedEnvelope  = errors.New("malformed envelope")
	ErrNoDecoder          = errors.New("no decoder registered for message type")
	ErrNoInternalConsumer = errors.New("no internal consumer registered for update")
	ErrRequestTimeout     = errors.New("request timed out waiting for response")
)

// MalformedError nomeia o campo ausente ou inválido
type MalformedError struct {
	Field  string
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: field %q %s", ErrMalformedEnvelope, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: missing field %q", ErrMalformedEnvelope, e.Field)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedEnvelope
}

func missing(field string) error {
	return &MalformedError{Field: field}
}

func invalid(field, reason string) error {
	return &MalformedError{Field: field, Reason: reason}
}
