package storage

import (
	"errors"
	"fmt"

	"github.com/uhyunpark/bilateral/pkg/errs"
)

// Index derives a secondary index value from a record.
type Index[T any] struct {
	Name  string
	Value func(T) string
}

// IndexedStore is a primary-key table with secondary indices. Every write
// touches the primary record and all index entries through the same KV, so
// callers running inside PebbleStore.Update never observe partial states.
type IndexedStore[T any] struct {
	namespace string
	key       func(T) string
	codec     Codec[T]
	indexes   []Index[T]
}

func NewIndexedStore[T any](namespace string, key func(T) string, codec Codec[T], indexes ...Index[T]) *IndexedStore[T] {
	return &IndexedStore[T]{
		namespace: namespace,
		key:       key,
		codec:     codec,
		indexes:   indexes,
	}
}

func (s *IndexedStore[T]) Namespace() string { return s.namespace }

// Insert writes a new record and its index entries. It fails with
// errs.ErrAlreadyExists if the id is taken.
func (s *IndexedStore[T]) Insert(kv KV, v T) error {
	id := s.key(v)
	pk, err := primaryKey(s.namespace, id)
	if err != nil {
		return err
	}
	if _, err := kv.Get(pk); err == nil {
		return errs.New(errs.CodeAlreadyExists, fmt.Sprintf("%s [%s] already exists", s.namespace, id))
	} else if !errors.Is(err, ErrKeyNotFound) {
		return err
	}

	data, err := s.codec.Marshal(v)
	if err != nil {
		return err
	}
	if err := kv.Set(pk, data); err != nil {
		return err
	}
	for _, idx := range s.indexes {
		key, err := indexKey(s.namespace, idx.Name, idx.Value(v), id)
		if err != nil {
			return err
		}
		if err := kv.Set(key, []byte(id)); err != nil {
			return err
		}
	}
	return nil
}

// Get loads a record by id. It fails with errs.ErrNotFound if absent.
func (s *IndexedStore[T]) Get(kv KV, id string) (T, error) {
	var zero T
	pk, err := primaryKey(s.namespace, id)
	if err != nil {
		return zero, err
	}
	data, err := kv.Get(pk)
	if errors.Is(err, ErrKeyNotFound) {
		return zero, errs.New(errs.CodeNotFound, fmt.Sprintf("%s [%s] not found", s.namespace, id))
	}
	if err != nil {
		return zero, err
	}
	return s.codec.Unmarshal(data)
}

// Delete removes a record and every index entry derived from it.
func (s *IndexedStore[T]) Delete(kv KV, id string) error {
	existing, err := s.Get(kv, id)
	if err != nil {
		return err
	}
	for _, idx := range s.indexes {
		key, err := indexKey(s.namespace, idx.Name, idx.Value(existing), id)
		if err != nil {
			return err
		}
		if err := kv.Delete(key); err != nil {
			return err
		}
	}
	pk, err := primaryKey(s.namespace, id)
	if err != nil {
		return err
	}
	return kv.Delete(pk)
}

// Scan visits every record in ascending id order until fn returns false.
func (s *IndexedStore[T]) Scan(kv KV, fn func(T) (bool, error)) error {
	prefix, err := primaryPrefix(s.namespace)
	if err != nil {
		return err
	}
	return kv.Iterate(prefix, false, func(_, value []byte) (bool, error) {
		v, err := s.codec.Unmarshal(value)
		if err != nil {
			return false, err
		}
		return fn(v)
	})
}

// ScanIndex visits the records whose index value equals value, in ascending
// id order, until fn returns false.
func (s *IndexedStore[T]) ScanIndex(kv KV, index, value string, fn func(T) (bool, error)) error {
	if !s.hasIndex(index) {
		return fmt.Errorf("%s has no index %q", s.namespace, index)
	}
	prefix, err := indexPrefix(s.namespace, index, value)
	if err != nil {
		return err
	}
	return kv.Iterate(prefix, false, func(key, _ []byte) (bool, error) {
		id, err := idFromIndexKey(key)
		if err != nil {
			return false, err
		}
		v, err := s.Get(kv, id)
		if err != nil {
			return false, fmt.Errorf("dangling %s index entry for [%s]: %w", index, id, err)
		}
		return fn(v)
	})
}

func (s *IndexedStore[T]) hasIndex(name string) bool {
	for _, idx := range s.indexes {
		if idx.Name == name {
			return true
		}
	}
	return false
}
