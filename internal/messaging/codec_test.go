package messaging

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestEncodeDecodeEnvelope(t *testing.T) {
	id := uuid.New()
	raw, err := Encode(TypeRemoveRequest, id, []byte(`{"listing":"a","shouldReceive":true}`))
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, id, env.ID)
	assert.Equal(t, TypeRemoveRequest, env.Type)
	assert.True(t, env.Content.Get("shouldReceive").Bool())
	assert.Equal(t, "a", env.Content.Get("listing").String())
}

func TestEncodeOmitsEmptyContent(t *testing.T) {
	raw, err := Encode("Ping", uuid.New(), nil)
	require.NoError(t, err)
	assert.False(t, gjson.Get(raw, "content").Exists())

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.False(t, env.Content.Exists())
}

func TestDecodeDocumentedEnvelope(t *testing.T) {
	listing, actor := uuid.New(), uuid.New()
	raw := `{"id":"` + uuid.NewString() + `","type":"BIN - Remove Request","content":{"listing":"` +
		listing.String() + `","actor":"` + actor.String() + `","shouldReceive":true}}`

	env, err := Decode(raw)
	require.NoError(t, err)

	msg, err := DefaultRegistry().Decode(env)
	require.NoError(t, err)

	req, ok := msg.(*RemovalRequest)
	require.True(t, ok)
	assert.Equal(t, listing, req.Listing)
	assert.Equal(t, actor, req.Actor)
	assert.Nil(t, req.Recipient)
	assert.True(t, req.ShouldReceive)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{name: "not json", raw: `{"id":`},
		{name: "not an object", raw: `[1,2]`},
		{name: "missing id", raw: `{"type":"x"}`, field: "id"},
		{name: "bad id", raw: `{"id":"nope","type":"x"}`, field: "id"},
		{name: "missing type", raw: `{"id":"` + uuid.NewString() + `"}`, field: "type"},
		{name: "empty type", raw: `{"id":"` + uuid.NewString() + `","type":""}`, field: "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			require.ErrorIs(t, err, ErrMalformedEnvelope)

			if tt.field != "" {
				var malformed *MalformedError
				require.True(t, errors.As(err, &malformed))
				assert.Equal(t, tt.field, malformed.Field)
			}
		})
	}
}

func TestEncodeRejectsInvalidContent(t *testing.T) {
	_, err := Encode("x", uuid.New(), []byte(`{broken`))
	assert.Error(t, err)

	_, err = Encode("", uuid.New(), nil)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)

	_, err = Encode("x", uuid.Nil, nil)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}
