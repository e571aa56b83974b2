package order

import (
	"fmt"
	"strings"

	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
	"github.com/uhyunpark/bilateral/pkg/app/core/registry"
	"github.com/uhyunpark/bilateral/pkg/errs"
)

// messages accumulates every violated rule; validation never stops early.
type messages struct {
	prefix string
	list   []string
}

func (m *messages) add(format string, args ...any) {
	m.list = append(m.list, m.prefix+fmt.Sprintf(format, args...))
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// ValidateAsk checks an ask before it enters storage. All violations are
// reported together as an *errs.ValidationError.
func ValidateAsk(o AskOrder) error {
	m := &messages{prefix: fmt.Sprintf("AskOrder [%s]: ", o.ID)}
	checkHeader(m, o.ID, o.Owner, o.Descriptor)
	if o.Collateral == nil {
		m.add("collateral must be provided")
		return errs.Validation(m.list)
	}
	if derived := o.Collateral.TradeType(); derived != o.tradeType {
		m.add("ask_type [%s] does not match collateral type [%s]", o.tradeType, derived)
	}

	switch c := o.Collateral.(type) {
	case CoinTradeAsk:
		checkCoins(m, "base", c.Base)
		checkCoins(m, "quote", c.Quote)
	case MarkerTradeAsk:
		checkMarker(m, c.Address, c.Denom)
		if c.ShareCount == 0 {
			m.add("share_count must be greater than zero")
		}
		checkCoins(m, "quote_per_share", c.QuotePerShare)
		checkRemovedPermissions(m, o.Owner, c.RemovedPermissions)
	case MarkerShareSaleAsk:
		checkMarker(m, c.Address, c.Denom)
		if c.RemainingShares == 0 {
			m.add("remaining_shares must be greater than zero")
		}
		checkCoins(m, "quote_per_share", c.QuotePerShare)
		checkRemovedPermissions(m, o.Owner, c.RemovedPermissions)
		checkSaleType(m, c.SaleType, c.RemainingShares)
	case ScopeTradeAsk:
		if blank(c.ScopeAddress) {
			m.add("scope_address must not be blank")
		}
		checkCoins(m, "quote", c.Quote)
	default:
		m.add("unsupported collateral %T", c)
	}
	return errs.Validation(m.list)
}

// ValidateBid checks a bid before it enters storage.
func ValidateBid(o BidOrder) error {
	m := &messages{prefix: fmt.Sprintf("BidOrder [%s]: ", o.ID)}
	checkHeader(m, o.ID, o.Owner, o.Descriptor)
	if o.Collateral == nil {
		m.add("collateral must be provided")
		return errs.Validation(m.list)
	}
	if derived := o.Collateral.TradeType(); derived != o.tradeType {
		m.add("bid_type [%s] does not match collateral type [%s]", o.tradeType, derived)
	}

	switch c := o.Collateral.(type) {
	case CoinTradeBid:
		checkCoins(m, "base", c.Base)
		checkCoins(m, "quote", c.Quote)
	case MarkerTradeBid:
		checkMarker(m, c.Address, c.Denom)
		checkCoins(m, "quote", c.Quote)
	case MarkerShareSaleBid:
		checkMarker(m, c.Address, c.Denom)
		if c.ShareCount == 0 {
			m.add("share_count must be greater than zero")
		}
		checkCoins(m, "quote", c.Quote)
	case ScopeTradeBid:
		if blank(c.ScopeAddress) {
			m.add("scope_address must not be blank")
		}
		checkCoins(m, "quote", c.Quote)
	default:
		m.add("unsupported collateral %T", c)
	}
	return errs.Validation(m.list)
}

func checkHeader(m *messages, id, owner string, d *Descriptor) {
	if blank(id) {
		m.add("id must not be empty")
	}
	if blank(owner) {
		m.add("owner must not be empty")
	}
	if req := d.Requirement(); req != nil {
		if len(req.Attributes) == 0 {
			m.add("attribute_requirement attributes must not be empty")
		}
		switch req.Type {
		case RequireAll, RequireAny, RequireNone:
		default:
			m.add("attribute_requirement requirement_type [%s] must be one of all, any, none", req.Type)
		}
	}
}

func checkCoins(m *messages, field string, coins []coin.Coin) {
	if len(coins) == 0 {
		m.add("%s must not be empty", field)
		return
	}
	for i, c := range coins {
		if !c.HasDenom() {
			m.add("%s coin %d must have a non-blank denom", field, i)
		}
		if !c.IsPositive() {
			m.add("%s coin %d [%s] must have a positive amount", field, i, c.Denom)
		}
	}
}

func checkMarker(m *messages, address, denom string) {
	if blank(address) {
		m.add("address must not be blank")
	}
	if blank(denom) {
		m.add("denom must not be blank")
	}
}

func checkRemovedPermissions(m *messages, owner string, grants []registry.AccessGrant) {
	// An unknown owner is already reported by checkHeader.
	if blank(owner) {
		return
	}
	if _, ok := registry.FindGrant(grants, owner); !ok {
		m.add("removed_permissions must include an entry for owner [%s]", owner)
	}
}

func checkSaleType(m *messages, st ShareSaleType, remaining uint64) {
	switch s := st.(type) {
	case SingleTransaction:
		if s.ShareCount == 0 {
			m.add("sale_type single_transaction share_count must be greater than zero")
		} else if remaining > 0 && s.ShareCount > remaining {
			m.add("sale_type single_transaction share_count [%d] must not exceed remaining_shares [%d]", s.ShareCount, remaining)
		}
	case MultipleTransactions:
		if remaining > 0 && s.Threshold() > remaining {
			m.add("sale_type multiple_transactions removal_threshold [%d] must not exceed remaining_shares [%d]", s.Threshold(), remaining)
		}
	case nil:
		m.add("sale_type must be provided")
	default:
		m.add("unsupported sale_type %T", s)
	}
}
