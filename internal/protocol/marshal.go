package protocol

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrMissingType is returned for envelopes without a type.
var ErrMissingType = errors.New("message type is required")

// Marshal wraps payload in an envelope of the given type and encodes it.
// A nil payload produces an envelope without data.
func Marshal(t MessageType, payload any) ([]byte, error) {
	env := Envelope{Type: t}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", t, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// Unmarshal decodes an envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, ErrMissingType
	}
	return env, nil
}

// Decode unmarshals the envelope's data into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: missing data", e.Type)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s: %w", e.Type, err)
	}
	return nil
}
