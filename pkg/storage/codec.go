package storage

import (
	"encoding/json"
	"fmt"
)

// Codec converts records to and from their stored bytes.
type Codec[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// JSONCodec stores records as JSON. Check, when set, runs on every decoded
// record and rejects loads that violate a record invariant.
type JSONCodec[T any] struct {
	Check func(T) error
}

func (c JSONCodec[T]) Marshal(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

func (c JSONCodec[T]) Unmarshal(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	if c.Check != nil {
		if err := c.Check(v); err != nil {
			return v, fmt.Errorf("stored record failed check: %w", err)
		}
	}
	return v, nil
}
