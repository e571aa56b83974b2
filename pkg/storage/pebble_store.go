package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// ErrKeyNotFound is returned by KV.Get for absent keys.
var ErrKeyNotFound = errors.New("key not found")

// KV is the key-value view of one atomic call. All reads observe the
// call's own pending writes.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	// Iterate visits keys with the given prefix in ascending order (descending
	// when reverse is set) until fn returns false or an error.
	Iterate(prefix []byte, reverse bool, fn func(key, value []byte) (bool, error)) error
}

// PebbleStore is the persistence substrate for orders.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) a store at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	opts := &pebble.Options{
		Cache:                       pebble.NewCache(128 << 20), // 128MB cache
		MemTableSize:                64 << 20,                   // 64MB memtable
		MaxConcurrentCompactions:    func() int { return 3 },
		L0CompactionThreshold:       2,
		L0StopWritesThreshold:       12,
		LBaseMaxBytes:               64 << 20, // 64MB
		MaxOpenFiles:                1000,
		BytesPerSync:                512 << 10, // 512KB
		DisableAutomaticCompactions: false,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

// NewMemPebbleStore opens a store on an in-memory filesystem.
func NewMemPebbleStore() (*PebbleStore, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory pebble: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// Update runs fn inside one indexed batch. The batch is committed with
// pebble.Sync if fn succeeds and discarded otherwise, so a failed call leaves
// no partial primary or index writes behind.
func (s *PebbleStore) Update(fn func(KV) error) error {
	txn := &Txn{batch: s.db.NewIndexedBatch()}
	defer txn.batch.Close()

	if err := fn(txn); err != nil {
		return err
	}
	if err := txn.batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// View runs fn against a batch that is always discarded.
func (s *PebbleStore) View(fn func(KV) error) error {
	txn := &Txn{batch: s.db.NewIndexedBatch()}
	defer txn.batch.Close()
	return fn(txn)
}

// Txn is a KV backed by an indexed pebble batch.
type Txn struct {
	batch *pebble.Batch
}

func (t *Txn) Get(key []byte) ([]byte, error) {
	val, closer, err := t.batch.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (t *Txn) Set(key, value []byte) error {
	if err := t.batch.Set(key, value, nil); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (t *Txn) Delete(key []byte) error {
	if err := t.batch.Delete(key, nil); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (t *Txn) Iterate(prefix []byte, reverse bool, fn func(key, value []byte) (bool, error)) error {
	iter, err := t.batch.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	first, next := iter.First, iter.Next
	if reverse {
		first, next = iter.Last, iter.Prev
	}
	for ok := first(); ok; ok = next() {
		more, err := fn(iter.Key(), iter.Value())
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return iter.Error()
}

var _ KV = (*Txn)(nil)
