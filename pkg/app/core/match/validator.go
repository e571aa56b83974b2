// Package match cross-checks an ask and a bid before settlement.
//
// Validation is not fail-fast: every discrepancy is collected and returned
// as a single *errs.ValidationError so the caller can fix all of them in one
// round trip. Oracle failures become messages, never hard errors; a registry
// lookup failure only ends the checks of its own trade shape.
package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
	"github.com/uhyunpark/bilateral/pkg/app/core/oracle"
	"github.com/uhyunpark/bilateral/pkg/app/core/order"
	"github.com/uhyunpark/bilateral/pkg/errs"
)

// Validator consults both oracles on every call; nothing is cached.
type Validator struct {
	attributes oracle.AttributeOracle
	registry   oracle.RegistryOracle
}

func NewValidator(attributes oracle.AttributeOracle, registry oracle.RegistryOracle) *Validator {
	return &Validator{attributes: attributes, registry: registry}
}

type report struct {
	prefix string
	list   []string
}

func (r *report) add(format string, args ...any) {
	r.list = append(r.list, r.prefix+fmt.Sprintf(format, args...))
}

// ValidateMatch returns nil only when ask and bid can be settled against each other.
func (v *Validator) ValidateMatch(ctx context.Context, ask order.AskOrder, bid order.BidOrder) error {
	r := &report{prefix: fmt.Sprintf("Match Validation for AskOrder [%s] and BidOrder [%s]: ", ask.ID, bid.ID)}

	if ask.TradeType() != bid.TradeType() {
		r.add("Ask type [%s] does not match bid type [%s]", ask.TradeType(), bid.TradeType())
	}

	v.checkRequirement(ctx, r, "bid", bid.Descriptor.Requirement(), "asker", ask.Owner)
	v.checkRequirement(ctx, r, "ask", ask.Descriptor.Requirement(), "bidder", bid.Owner)

	switch a := ask.Collateral.(type) {
	case order.CoinTradeAsk:
		b, ok := bid.Collateral.(order.CoinTradeBid)
		if !ok {
			collateralMismatch(r, "COIN TRADE", a, bid.Collateral)
			break
		}
		checkCoinTrade(r, a, b)
	case order.MarkerTradeAsk:
		b, ok := bid.Collateral.(order.MarkerTradeBid)
		if !ok {
			collateralMismatch(r, "MARKER TRADE", a, bid.Collateral)
			break
		}
		v.checkMarkerTrade(ctx, r, a, b)
	case order.MarkerShareSaleAsk:
		b, ok := bid.Collateral.(order.MarkerShareSaleBid)
		if !ok {
			collateralMismatch(r, "MARKER SHARE SALE", a, bid.Collateral)
			break
		}
		v.checkMarkerShareSale(ctx, r, a, b)
	case order.ScopeTradeAsk:
		b, ok := bid.Collateral.(order.ScopeTradeBid)
		if !ok {
			collateralMismatch(r, "SCOPE TRADE", a, bid.Collateral)
			break
		}
		checkScopeTrade(r, a, b)
	default:
		r.add("Unsupported ask collateral %T", a)
	}

	return errs.Validation(r.list)
}

func collateralMismatch(r *report, shape string, ask order.AskCollateral, bid order.BidCollateral) {
	bidType := order.TradeTypeUnknown
	if bid != nil {
		bidType = bid.TradeType()
	}
	r.add("%s Ask collateral [%s] cannot be matched with bid collateral [%s]", shape, ask.TradeType(), bidType)
}

// checkRequirement evaluates the requirement carried by one side against the
// live attributes of the other side's owner.
func (v *Validator) checkRequirement(ctx context.Context, r *report, side string, req *order.AttributeRequirement, role, address string) {
	if req == nil {
		return
	}
	held, err := v.attributes.AttributesOf(ctx, address)
	if err != nil {
		r.add("Failed to fetch attributes for %s [%s]: %v", role, address, err)
		return
	}
	if !req.SatisfiedBy(held) {
		r.add("The %s [%s] does not satisfy the %s's attribute requirement: requires %s of [%s] but holds [%s]",
			role, address, side, req.Type, strings.Join(req.Attributes, ", "), strings.Join(held, ", "))
	}
}

func checkCoinTrade(r *report, ask order.CoinTradeAsk, bid order.CoinTradeBid) {
	if !coin.Equal(ask.Base, bid.Base) {
		r.add("COIN TRADE Ask base %s does not match bid base %s",
			coin.Render(coin.Sorted(ask.Base)), coin.Render(coin.Sorted(bid.Base)))
	}
	if !coin.Equal(ask.Quote, bid.Quote) {
		r.add("COIN TRADE Ask quote %s does not match bid quote %s",
			coin.Render(coin.Sorted(ask.Quote)), coin.Render(coin.Sorted(bid.Quote)))
	}
}

func checkScopeTrade(r *report, ask order.ScopeTradeAsk, bid order.ScopeTradeBid) {
	if ask.ScopeAddress != bid.ScopeAddress {
		r.add("SCOPE TRADE Ask scope [%s] does not match bid scope [%s]", ask.ScopeAddress, bid.ScopeAddress)
	}
	if !coin.Equal(ask.Quote, bid.Quote) {
		r.add("SCOPE TRADE Ask quote %s does not match bid quote %s",
			coin.Render(coin.Sorted(ask.Quote)), coin.Render(coin.Sorted(bid.Quote)))
	}
}

// sameMarker reports literal denom/address mismatches. Registry checks are
// skipped on mismatch since they would compare unrelated entries.
func sameMarker(r *report, shape, askAddr, askDenom, bidAddr, bidDenom string) bool {
	ok := true
	if askDenom != bidDenom {
		r.add("%s Ask denom [%s] does not match bid denom [%s]", shape, askDenom, bidDenom)
		ok = false
	}
	if askAddr != bidAddr {
		r.add("%s Ask marker address [%s] does not match bid marker address [%s]", shape, askAddr, bidAddr)
		ok = false
	}
	return ok
}

// liveHolding fetches the entry's single coin holding. It reports and returns
// false when the holding cannot be established.
func (v *Validator) liveHolding(ctx context.Context, r *report, shape, denom string) (uint64, bool) {
	entry, err := v.registry.EntryByDenom(ctx, denom)
	if err != nil {
		r.add("%s Failed to find registry entry for denom [%s]: %v; holding, share count and quote checks could not be evaluated", shape, denom, err)
		return 0, false
	}
	held, err := entry.SingleHolding()
	if err != nil {
		r.add("%s Registry entry [%s] had invalid coin holdings: %v", shape, denom, err)
		return 0, false
	}
	if !held.Amount.IsUint64() {
		r.add("%s Registry entry [%s] holding %s exceeds the supported share range", shape, denom, held)
		return 0, false
	}
	return held.Amount.Uint64(), true
}

func checkQuote(r *report, shape string, perShare []coin.Coin, shares uint64, bidQuote []coin.Coin) {
	expected, err := coin.MultiplyAll(perShare, shares)
	if err != nil {
		r.add("%s Quote could not be computed from quote_per_share %s and [%d] shares: %v", shape, coin.Render(perShare), shares, err)
		return
	}
	if !coin.Equal(expected, bidQuote) {
		r.add("%s Bid quote %s does not match the expected quote %s (quote_per_share %s * [%d] shares)",
			shape, coin.Render(coin.Sorted(bidQuote)), coin.Render(coin.Sorted(expected)), coin.Render(perShare), shares)
	}
}

func (v *Validator) checkMarkerTrade(ctx context.Context, r *report, ask order.MarkerTradeAsk, bid order.MarkerTradeBid) {
	const shape = "MARKER TRADE"
	if !sameMarker(r, shape, ask.Address, ask.Denom, bid.Address, bid.Denom) {
		return
	}
	held, ok := v.liveHolding(ctx, r, shape, ask.Denom)
	if !ok {
		return
	}
	if held != ask.ShareCount {
		r.add("%s Registry entry [%s] share count was [%d] but the original value when added to the exchange was [%d]",
			shape, ask.Denom, held, ask.ShareCount)
	}
	checkQuote(r, shape, ask.QuotePerShare, held, bid.Quote)
}

func (v *Validator) checkMarkerShareSale(ctx context.Context, r *report, ask order.MarkerShareSaleAsk, bid order.MarkerShareSaleBid) {
	const shape = "MARKER SHARE SALE"
	if !sameMarker(r, shape, ask.Address, ask.Denom, bid.Address, bid.Denom) {
		return
	}

	switch st := ask.SaleType.(type) {
	case order.SingleTransaction:
		if bid.ShareCount != st.ShareCount {
			r.add("%s Ask requested that exactly [%d] shares be purchased in a single transaction, but bid wanted [%d]",
				shape, st.ShareCount, bid.ShareCount)
		}
	case order.MultipleTransactions:
		if bid.ShareCount > ask.RemainingShares {
			r.add("%s Bid requested [%d] shares but the remaining share count is [%d]", shape, bid.ShareCount, ask.RemainingShares)
		} else if remainder := ask.RemainingShares - bid.ShareCount; remainder < st.Threshold() {
			r.add("%s Bid requested [%d] shares, which would reduce the remaining share count to [%d], below the removal threshold of [%d] shares",
				shape, bid.ShareCount, remainder, st.Threshold())
		}
	default:
		r.add("%s Ask has unsupported sale type %T", shape, st)
	}

	held, ok := v.liveHolding(ctx, r, shape, ask.Denom)
	if !ok {
		return
	}
	if held != ask.RemainingShares {
		r.add("%s Registry entry [%s] share count was [%d] but the ask records [%d] remaining shares",
			shape, ask.Denom, held, ask.RemainingShares)
	}
	if held < bid.ShareCount {
		r.add("%s Registry entry [%s] holds [%d] shares, fewer than the [%d] requested by the bid",
			shape, ask.Denom, held, bid.ShareCount)
	}
	checkQuote(r, shape, ask.QuotePerShare, bid.ShareCount, bid.Quote)
}
