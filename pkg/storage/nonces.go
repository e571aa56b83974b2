package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/orderedcode"
)

const nonceNamespace = "nonce"

// NonceStore records the highest request nonce accepted per signer address.
type NonceStore struct{}

func NewNonceStore() *NonceStore { return &NonceStore{} }

// Last returns 0 for an address that never signed.
func (s *NonceStore) Last(kv KV, address string) (uint64, error) {
	key, err := orderedcode.Append(nil, nonceNamespace, address)
	if err != nil {
		return 0, err
	}
	raw, err := kv.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("corrupt nonce for %s: %d bytes", address, len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

// Advance stores nonce if it is strictly greater than the last one and
// reports whether it did.
func (s *NonceStore) Advance(kv KV, address string, nonce uint64) (bool, error) {
	last, err := s.Last(kv, address)
	if err != nil {
		return false, err
	}
	if nonce <= last {
		return false, nil
	}
	key, err := orderedcode.Append(nil, nonceNamespace, address)
	if err != nil {
		return false, err
	}
	return true, kv.Set(key, binary.BigEndian.AppendUint64(nil, nonce))
}
