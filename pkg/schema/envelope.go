package schema

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Kind  Kind            `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// Marshal encodes a result together with its kind so it can be restored
// without knowing the stage it came from.
func Marshal(r Result) ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	value, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("schema: marshal %s: %w", r.Kind(), err)
	}
	return json.Marshal(envelope{Kind: r.Kind(), Value: value})
}

// Unmarshal restores a result encoded by Marshal.
func Unmarshal(data []byte) (Result, error) {
	if string(data) == "null" {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("schema: unmarshal envelope: %w", err)
	}
	rs, err := For(env.Kind)
	if err != nil {
		return nil, err
	}
	return rs.Decode(env.Value)
}
