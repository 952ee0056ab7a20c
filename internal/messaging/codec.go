package messaging

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Envelope é a forma de transporte: {"id","type","content"}.
// Content não é interpretado aqui, só pelo decoder do tipo.
type Envelope struct {
	ID      uuid.UUID
	Type    string
	Content gjson.Result
}

// Encode monta o envelope. Content vazio omite o campo.
func Encode(msgType string, id uuid.UUID, content []byte) (string, error) {
	if msgType == "" {
		return "", missing("type")
	}
	if id == uuid.Nil {
		return "", missing("id")
	}

	raw, err := sjson.Set("", "id", id.String())
	if err != nil {
		return "", fmt.Errorf("encode id: %w", err)
	}
	raw, err = sjson.Set(raw, "type", msgType)
	if err != nil {
		return "", fmt.Errorf("encode type: %w", err)
	}

	if len(content) > 0 {
		if !gjson.ValidBytes(content) {
			return "", fmt.Errorf("encode %s: content is not valid json", msgType)
		}
		raw, err = sjson.SetRaw(raw, "content", string(content))
		if err != nil {
			return "", fmt.Errorf("encode content: %w", err)
		}
	}

	return raw, nil
}

// Decode valida o envelope e devolve o conteúdo cru
func Decode(raw string) (Envelope, error) {
	if !gjson.Valid(raw) {
		return Envelope{}, fmt.Errorf("%w: not valid json", ErrMalformedEnvelope)
	}

	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return Envelope{}, fmt.Errorf("%w: not an object", ErrMalformedEnvelope)
	}

	idField := parsed.Get("id")
	if !idField.Exists() {
		return Envelope{}, missing("id")
	}
	id, err := uuid.Parse(idField.String())
	if err != nil {
		return Envelope{}, invalid("id", "is not a uuid")
	}

	typeField := parsed.Get("type")
	if !typeField.Exists() || typeField.String() == "" {
		return Envelope{}, missing("type")
	}

	return Envelope{
		ID:      id,
		Type:    typeField.String(),
		Content: parsed.Get("content"),
	}, nil
}

// --- Leitura de campos do content ---

func requireUUID(content gjson.Result, field string) (uuid.UUID, error) {
	v := content.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		return uuid.Nil, missing(field)
	}
	id, err := uuid.Parse(v.String())
	if err != nil {
		return uuid.Nil, invalid(field, "is not a uuid")
	}
	return id, nil
}

func optionalUUID(content gjson.Result, field string) (*uuid.UUID, error) {
	v := content.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	id, err := uuid.Parse(v.String())
	if err != nil {
		return nil, invalid(field, "is not a uuid")
	}
	return &id, nil
}

func requireBool(content gjson.Result, field string) (bool, error) {
	v := content.Get(field)
	if !v.Exists() {
		return false, missing(field)
	}
	if !v.IsBool() {
		return false, invalid(field, "is not a boolean")
	}
	return v.Bool(), nil
}

func requireNumber(content gjson.Result, field string) (float64, error) {
	v := content.Get(field)
	if !v.Exists() {
		return 0, missing(field)
	}
	if v.Type != gjson.Number {
		return 0, invalid(field, "is not a number")
	}
	return v.Float(), nil
}

func requireString(content gjson.Result, field string) (string, error) {
	v := content.Get(field)
	if !v.Exists() || v.Type != gjson.String {
		return "", missing(field)
	}
	return v.String(), nil
}
