package settlement

import (
	"fmt"

	"github.com/uhyunpark/bilateral/pkg/app/core/order"
	"github.com/uhyunpark/bilateral/pkg/app/core/registry"
	"github.com/uhyunpark/bilateral/pkg/errs"
	"github.com/uhyunpark/bilateral/pkg/storage"
)

// Engine settles matched pairs and retires both orders.
type Engine struct {
	asks     *storage.AskStore
	bids     *storage.BidStore
	contract string
}

// NewEngine builds an engine; contract is the custodial address whose
// permission on a registry entry is revoked once the entry changes hands.
func NewEngine(asks *storage.AskStore, bids *storage.BidStore, contract string) *Engine {
	return &Engine{asks: asks, bids: bids, contract: contract}
}

// Execute emits the settlement instructions for a pair that already passed
// match validation, then deletes the ask and the bid. On error nothing is
// deleted; the caller discards the transaction.
func (e *Engine) Execute(kv storage.KV, ask order.AskOrder, bid order.BidOrder) ([]Instruction, error) {
	instructions, err := e.instructions(ask, bid)
	if err != nil {
		return nil, err
	}
	if err := e.asks.Delete(kv, ask.ID); err != nil {
		return nil, fmt.Errorf("failed to retire ask %s: %w", ask.ID, err)
	}
	if err := e.bids.Delete(kv, bid.ID); err != nil {
		return nil, fmt.Errorf("failed to retire bid %s: %w", bid.ID, err)
	}
	return instructions, nil
}

func (e *Engine) instructions(ask order.AskOrder, bid order.BidOrder) ([]Instruction, error) {
	switch a := ask.Collateral.(type) {
	case order.CoinTradeAsk:
		if _, ok := bid.Collateral.(order.CoinTradeBid); !ok {
			return nil, shapeMismatch(ask, bid)
		}
		return []Instruction{
			Pay(ask.Owner, a.Quote),
			Pay(bid.Owner, a.Base),
		}, nil

	case order.MarkerTradeAsk:
		b, ok := bid.Collateral.(order.MarkerTradeBid)
		if !ok {
			return nil, shapeMismatch(ask, bid)
		}
		grant, ok := registry.FindGrant(a.RemovedPermissions, ask.Owner)
		if !ok {
			return nil, fmt.Errorf("invariant violated: ask %s has no removed permissions for its owner %s", ask.ID, ask.Owner)
		}
		return []Instruction{
			Grant(a.Denom, bid.Owner, grant.Permissions),
			Pay(ask.Owner, b.Quote),
			Revoke(a.Denom, e.contract),
		}, nil

	case order.MarkerShareSaleAsk, order.ScopeTradeAsk:
		return nil, errs.New(errs.CodeUnsupportedShape,
			fmt.Sprintf("settlement of %s trades is not yet supported", ask.TradeType()))

	default:
		return nil, fmt.Errorf("unknown ask collateral %T", a)
	}
}

func shapeMismatch(ask order.AskOrder, bid order.BidOrder) error {
	return errs.New(errs.CodeValidation,
		fmt.Sprintf("ask %s (%s) cannot settle against bid %s (%s)", ask.ID, ask.TradeType(), bid.ID, bid.TradeType()))
}

// AskRefund returns the escrowed collateral of a cancelled ask to its owner.
func AskRefund(ask order.AskOrder, contract string) ([]Instruction, error) {
	switch a := ask.Collateral.(type) {
	case order.CoinTradeAsk:
		return []Instruction{Pay(ask.Owner, a.Base)}, nil
	case order.MarkerTradeAsk:
		return ReleaseMarker(a.Denom, contract, a.RemovedPermissions), nil
	case order.MarkerShareSaleAsk:
		return ReleaseMarker(a.Denom, contract, a.RemovedPermissions), nil
	case order.ScopeTradeAsk:
		return []Instruction{ReassignRecord(a.ScopeAddress, ask.Owner)}, nil
	default:
		return nil, fmt.Errorf("unknown ask collateral %T", a)
	}
}

// BidRefund returns the quote a cancelled bid put up.
func BidRefund(bid order.BidOrder) ([]Instruction, error) {
	switch b := bid.Collateral.(type) {
	case order.CoinTradeBid:
		return []Instruction{Pay(bid.Owner, b.Quote)}, nil
	case order.MarkerTradeBid:
		return []Instruction{Pay(bid.Owner, b.Quote)}, nil
	case order.MarkerShareSaleBid:
		return []Instruction{Pay(bid.Owner, b.Quote)}, nil
	case order.ScopeTradeBid:
		return []Instruction{Pay(bid.Owner, b.Quote)}, nil
	default:
		return nil, fmt.Errorf("unknown bid collateral %T", b)
	}
}
