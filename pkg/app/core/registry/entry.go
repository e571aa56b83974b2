// Package registry models tokenized-asset registry entries (markers) as seen
// through the registry oracle.
package registry

import (
	"fmt"

	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
)

// Permission is a capability an address holds on a registry entry.
type Permission string

const (
	PermissionAdmin    Permission = "admin"
	PermissionBurn     Permission = "burn"
	PermissionDeposit  Permission = "deposit"
	PermissionDelete   Permission = "delete"
	PermissionMint     Permission = "mint"
	PermissionTransfer Permission = "transfer"
	PermissionWithdraw Permission = "withdraw"
)

// CustodyPermissions are what the exchange contract must hold on an entry
// before it can escrow it.
var CustodyPermissions = []Permission{PermissionAdmin, PermissionWithdraw}

// Status is the lifecycle state of a registry entry.
type Status string

const (
	StatusProposed  Status = "proposed"
	StatusFinalized Status = "finalized"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusDestroyed Status = "destroyed"
)

// AccessGrant is the permission set held by one address.
type AccessGrant struct {
	Address     string       `json:"address"`
	Permissions []Permission `json:"permissions"`
}

// Has reports whether the grant includes every permission in perms.
func (g AccessGrant) Has(perms ...Permission) bool {
	for _, want := range perms {
		found := false
		for _, p := range g.Permissions {
			if p == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// FindGrant returns the grant recorded for address.
func FindGrant(grants []AccessGrant, address string) (AccessGrant, bool) {
	for _, g := range grants {
		if g.Address == address {
			return g, true
		}
	}
	return AccessGrant{}, false
}

// Entry is the live state of a registry entry.
type Entry struct {
	Address     string        `json:"address"`
	Denom       string        `json:"denom"`
	Status      Status        `json:"status"`
	Permissions []AccessGrant `json:"permissions"`
	Coins       []coin.Coin   `json:"coins"`
	TotalSupply uint64        `json:"total_supply"`
}

// HasPermissions reports whether address holds every permission in perms.
func (e Entry) HasPermissions(address string, perms ...Permission) bool {
	g, ok := FindGrant(e.Permissions, address)
	return ok && g.Has(perms...)
}

// SingleHolding returns the entry's only coin holding, which must be of the
// entry's own denom.
func (e Entry) SingleHolding() (coin.Coin, error) {
	if len(e.Coins) != 1 {
		return coin.Coin{}, fmt.Errorf("expected exactly one coin holding for denom [%s] but found %d", e.Denom, len(e.Coins))
	}
	held := e.Coins[0]
	if held.Denom != e.Denom {
		return coin.Coin{}, fmt.Errorf("coin holding denom [%s] does not match registry denom [%s]", held.Denom, e.Denom)
	}
	return held, nil
}
