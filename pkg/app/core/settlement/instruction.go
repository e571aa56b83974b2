// Package settlement turns a validated ask/bid pair into the ordered
// asset-transfer and permission instructions that settle it.
package settlement

import (
	"fmt"

	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
	"github.com/uhyunpark/bilateral/pkg/app/core/registry"
)

// Kind names an instruction.
type Kind string

const (
	KindPay            Kind = "pay"
	KindGrant          Kind = "grant_permissions"
	KindRevoke         Kind = "revoke_permissions"
	KindReassignRecord Kind = "reassign_record_owner"
)

// Instruction is one step for the host ledger to execute. Which fields are
// set depends on Kind.
type Instruction struct {
	Kind        Kind                  `json:"kind"`
	Recipient   string                `json:"recipient,omitempty"`
	Amount      []coin.Coin           `json:"amount,omitempty"`
	Denom       string                `json:"denom,omitempty"`
	Address     string                `json:"address,omitempty"`
	Permissions []registry.Permission `json:"permissions,omitempty"`
	Record      string                `json:"record,omitempty"`
}

// Pay transfers amount to recipient.
func Pay(recipient string, amount []coin.Coin) Instruction {
	return Instruction{Kind: KindPay, Recipient: recipient, Amount: amount}
}

// Grant gives address the permissions on the registry entry denom.
func Grant(denom, address string, perms []registry.Permission) Instruction {
	return Instruction{Kind: KindGrant, Denom: denom, Address: address, Permissions: perms}
}

// Revoke removes every permission address holds on denom.
func Revoke(denom, address string) Instruction {
	return Instruction{Kind: KindRevoke, Denom: denom, Address: address}
}

// ReassignRecord makes owner the sole owner of record.
func ReassignRecord(record, owner string) Instruction {
	return Instruction{Kind: KindReassignRecord, Record: record, Address: owner}
}

func (i Instruction) String() string {
	switch i.Kind {
	case KindPay:
		return fmt.Sprintf("pay(%s, %s)", i.Recipient, coin.Render(i.Amount))
	case KindGrant:
		return fmt.Sprintf("grant(%s, %s, %v)", i.Denom, i.Address, i.Permissions)
	case KindRevoke:
		return fmt.Sprintf("revoke(%s, %s)", i.Denom, i.Address)
	case KindReassignRecord:
		return fmt.Sprintf("reassign(%s, %s)", i.Record, i.Address)
	default:
		return string(i.Kind)
	}
}

// ReleaseMarker returns custody of a registry entry: every removed grant is
// restored, then the contract's own permission is revoked last.
func ReleaseMarker(denom, contract string, removed []registry.AccessGrant) []Instruction {
	out := make([]Instruction, 0, len(removed)+1)
	for _, g := range removed {
		out = append(out, Grant(denom, g.Address, g.Permissions))
	}
	return append(out, Revoke(denom, contract))
}
