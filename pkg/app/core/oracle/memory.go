package oracle

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
	"github.com/uhyunpark/bilateral/pkg/app/core/registry"
)

// MemoryRegistry is a thread-safe registry oracle backed by a map.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]registry.Entry // denom -> entry
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]registry.Entry)}
}

// RegisterEntry adds an entry. Returns error if the denom is already registered.
func (r *MemoryRegistry) RegisterEntry(e registry.Entry) error {
	if e.Denom == "" {
		return fmt.Errorf("cannot register entry without denom")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[e.Denom]; exists {
		return fmt.Errorf("registry entry %s already registered", e.Denom)
	}
	r.entries[e.Denom] = e
	return nil
}

// EntryByDenom returns a copy of the entry so callers cannot mutate shared state.
func (r *MemoryRegistry) EntryByDenom(_ context.Context, denom string) (registry.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[denom]
	if !exists {
		return registry.Entry{}, fmt.Errorf("registry entry %s not found", denom)
	}
	e.Permissions = append([]registry.AccessGrant(nil), e.Permissions...)
	e.Coins = append([]coin.Coin(nil), e.Coins...)
	return e, nil
}

// SetHoldings replaces the coins an entry holds, e.g. after a mint or withdraw.
func (r *MemoryRegistry) SetHoldings(denom string, coins ...coin.Coin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[denom]
	if !exists {
		return fmt.Errorf("registry entry %s not found", denom)
	}
	e.Coins = coins
	r.entries[denom] = e
	return nil
}

// Denoms lists registered denoms in ascending order.
func (r *MemoryRegistry) Denoms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.entries))
	for d := range r.entries {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// MemoryAttributes is a thread-safe attribute oracle backed by a map.
type MemoryAttributes struct {
	mu    sync.RWMutex
	attrs map[string][]string // address -> attribute names
}

func NewMemoryAttributes() *MemoryAttributes {
	return &MemoryAttributes{attrs: make(map[string][]string)}
}

// SetAttributes replaces the attributes held by address.
func (a *MemoryAttributes) SetAttributes(address string, names ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attrs[address] = append([]string(nil), names...)
}

// AttributesOf returns an empty set for unknown addresses.
func (a *MemoryAttributes) AttributesOf(_ context.Context, address string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.attrs[address]...), nil
}

var (
	_ RegistryOracle  = (*MemoryRegistry)(nil)
	_ AttributeOracle = (*MemoryAttributes)(nil)
)
