package messaging

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoX451/bazaar/pkg/types"
)

func removalResponseFor(request uuid.UUID) *RemovalResponse {
	return &RemovalResponse{
		responseHeader: responseHeader{header: newHeader(), request: request},
		Result:         types.RemoveResult{Successful: true},
	}
}

func TestCorrelatorSingleShot(t *testing.T) {
	c := NewCorrelator()
	id := uuid.New()

	var calls atomic.Int32
	var got Response
	c.RegisterRequest(id, func(resp Response) {
		calls.Add(1)
		got = resp
	})
	assert.Equal(t, 1, c.Pending())

	resp := removalResponseFor(id)
	assert.True(t, c.ProcessRequest(id, resp))
	assert.False(t, c.ProcessRequest(id, resp))
	assert.False(t, c.ProcessRequest(uuid.New(), resp))

	assert.Equal(t, int32(1), calls.Load())
	assert.Same(t, resp, got)
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelatorDeadline(t *testing.T) {
	c := NewCorrelator()
	id := uuid.New()

	errs := make(chan error, 1)
	c.RegisterWithDeadline(id, 20*time.Millisecond, func(resp Response, err error) {
		errs <- err
	})

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrRequestTimeout)
	case <-time.After(time.Second):
		t.Fatal("deadline never fired")
	}

	assert.Equal(t, 0, c.Pending())
	assert.False(t, c.ProcessRequest(id, removalResponseFor(id)), "late response is dropped")
}

func TestCorrelatorExpect(t *testing.T) {
	c := NewCorrelator()
	id := uuid.New()

	pending := c.Expect(id, time.Second)
	go c.ProcessRequest(id, removalResponseFor(id))

	resp, err := pending.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, resp.RequestID())
	assert.True(t, resp.Succeeded())
}

func TestCorrelatorCancel(t *testing.T) {
	c := NewCorrelator()
	id := uuid.New()

	called := false
	c.RegisterRequest(id, func(Response) { called = true })

	assert.True(t, c.Cancel(id))
	assert.False(t, c.ProcessRequest(id, removalResponseFor(id)))
	assert.False(t, called)
}
