package storage

import (
	"fmt"

	"github.com/google/orderedcode"
)

// Key schema (orderedcode tuples, so prefixes never collide and scans are
// ordered by the last component):
//
//	primary:  (namespace, id)                      -> record
//	index:    (namespace + "__" + index, value, id) -> id
//
// Example: ("ask__owner", "pb1owner", "ask-1")

func primaryKey(namespace, id string) ([]byte, error) {
	return orderedcode.Append(nil, namespace, id)
}

func primaryPrefix(namespace string) ([]byte, error) {
	return orderedcode.Append(nil, namespace)
}

func indexNamespace(namespace, index string) string {
	return namespace + "__" + index
}

func indexKey(namespace, index, value, id string) ([]byte, error) {
	return orderedcode.Append(nil, indexNamespace(namespace, index), value, id)
}

func indexPrefix(namespace, index, value string) ([]byte, error) {
	return orderedcode.Append(nil, indexNamespace(namespace, index), value)
}

// idFromIndexKey recovers the primary id from an index key.
func idFromIndexKey(key []byte) (string, error) {
	var ns, value, id string
	rest, err := orderedcode.Parse(string(key), &ns, &value, &id)
	if err != nil {
		return "", fmt.Errorf("failed to parse index key: %w", err)
	}
	if rest != "" {
		return "", fmt.Errorf("trailing bytes in index key %q", key)
	}
	return id, nil
}

// keyUpperBound returns the smallest key greater than every key with prefix.
// orderedcode prefixes never end in 0xff, so incrementing the last byte is safe.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
