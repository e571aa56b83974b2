// Package oracle defines the two external read-only services the exchange
// consults during match validation, plus in-memory implementations.
package oracle

import (
	"context"

	"github.com/uhyunpark/bilateral/pkg/app/core/registry"
)

// AttributeOracle returns the attribute names currently held by an address.
type AttributeOracle interface {
	AttributesOf(ctx context.Context, address string) ([]string, error)
}

// RegistryOracle returns the live state of a registry entry by denom.
type RegistryOracle interface {
	EntryByDenom(ctx context.Context, denom string) (registry.Entry, error)
}
