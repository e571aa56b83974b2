package match

import (
	"context"
	"fmt"

	"github.com/uhyunpark/bilateral/pkg/app/core/order"
	"github.com/uhyunpark/bilateral/pkg/app/core/registry"
	"github.com/uhyunpark/bilateral/pkg/errs"
)

// ValidateAskCustody checks a marker ask against the live registry entry
// before it is stored: the owner administers the entry, the contract can take
// custody of it, and the permissions and share count the ask records are the
// ones the entry actually carries. Coin and scope asks always pass.
func (v *Validator) ValidateAskCustody(ctx context.Context, ask order.AskOrder, contract string) error {
	r := &report{prefix: fmt.Sprintf("AskOrder [%s]: ", ask.ID)}
	switch a := ask.Collateral.(type) {
	case order.MarkerTradeAsk:
		v.checkCustody(ctx, r, ask.Owner, contract, a.Address, a.Denom, a.RemovedPermissions, "share_count", a.ShareCount)
	case order.MarkerShareSaleAsk:
		v.checkCustody(ctx, r, ask.Owner, contract, a.Address, a.Denom, a.RemovedPermissions, "remaining_shares", a.RemainingShares)
	}
	return errs.Validation(r.list)
}

// ValidateBidEntry rejects a marker bid whose denom is not registered or
// whose address disagrees with the registered entry.
func (v *Validator) ValidateBidEntry(ctx context.Context, bid order.BidOrder) error {
	r := &report{prefix: fmt.Sprintf("BidOrder [%s]: ", bid.ID)}
	switch b := bid.Collateral.(type) {
	case order.MarkerTradeBid:
		v.checkBidEntry(ctx, r, b.Address, b.Denom)
	case order.MarkerShareSaleBid:
		v.checkBidEntry(ctx, r, b.Address, b.Denom)
	}
	return errs.Validation(r.list)
}

func (v *Validator) checkBidEntry(ctx context.Context, r *report, address, denom string) {
	entry, err := v.registry.EntryByDenom(ctx, denom)
	if err != nil {
		r.add("Failed to find registry entry for denom [%s]: %v", denom, err)
		return
	}
	if entry.Address != address {
		r.add("address [%s] does not match registry entry address [%s] for denom [%s]", address, entry.Address, denom)
	}
}

func (v *Validator) checkCustody(ctx context.Context, r *report, owner, contract, address, denom string,
	removed []registry.AccessGrant, field string, shares uint64) {
	entry, err := v.registry.EntryByDenom(ctx, denom)
	if err != nil {
		r.add("Failed to find registry entry for denom [%s]: %v", denom, err)
		return
	}
	if entry.Address != address {
		r.add("address [%s] does not match registry entry address [%s] for denom [%s]", address, entry.Address, denom)
	}
	if !entry.HasPermissions(owner, registry.PermissionAdmin) {
		r.add("expected owner [%s] to have admin privileges on registry entry [%s]", owner, entry.Address)
	}
	if !entry.HasPermissions(contract, registry.CustodyPermissions...) {
		r.add("expected contract [%s] to have privileges %v on registry entry [%s]", contract, registry.CustodyPermissions, entry.Address)
	}
	if entry.Status != registry.StatusActive {
		r.add("expected registry entry [%s] to be active, but was in status [%s]", entry.Address, entry.Status)
	}

	// Refunds and settlement re-grant these, so they must be real.
	for _, g := range removed {
		live, _ := registry.FindGrant(entry.Permissions, g.Address)
		if !live.Has(g.Permissions...) {
			r.add("removed_permissions for [%s] %v are not held on registry entry [%s], which grants %v",
				g.Address, g.Permissions, entry.Address, live.Permissions)
		}
	}
	if g, ok := registry.FindGrant(removed, owner); ok && !g.Has(registry.PermissionAdmin) {
		r.add("removed_permissions for owner [%s] must include admin", owner)
	}

	held, err := entry.SingleHolding()
	if err != nil {
		r.add("Registry entry [%s] had invalid coin holdings: %v", denom, err)
		return
	}
	if held.Amount.IsZero() {
		r.add("expected registry entry [%s] to hold at least one of its supply of denom [%s], but it had [0]", entry.Address, denom)
		return
	}
	if !held.Amount.IsUint64() || held.Amount.Uint64() != shares {
		r.add("%s [%d] does not match the registry entry holding of [%s]", field, shares, held.Amount.Dec())
	}
}
