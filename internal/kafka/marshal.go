package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInboxFull = errors.New("kafka: producer inbox full")

// UnwrapPayload decodes an envelope payload into its concrete type.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
