package order

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
	"github.com/uhyunpark/bilateral/pkg/app/core/registry"
	"github.com/uhyunpark/bilateral/pkg/errs"
)

func ownerGrant(owner string) []registry.AccessGrant {
	return []registry.AccessGrant{{Address: owner, Permissions: []registry.Permission{registry.PermissionAdmin}}}
}

func gatedDescriptor() *Descriptor {
	return &Descriptor{
		Description:          "gated",
		AttributeRequirement: &AttributeRequirement{Attributes: []string{"kyc.pb"}, Type: RequireAll},
	}
}

func validAsks() []AskOrder {
	threshold := uint64(2)
	return []AskOrder{
		NewAskOrder("ask-coin", "asker", CoinTradeAsk{
			Base:  []coin.Coin{coin.New("base", 100)},
			Quote: []coin.Coin{coin.New("quote", 50)},
		}, gatedDescriptor()),
		NewAskOrder("ask-marker", "asker", MarkerTradeAsk{
			Address:            "marker-addr",
			Denom:              "d",
			ShareCount:         10,
			QuotePerShare:      []coin.Coin{coin.New("x", 5)},
			RemovedPermissions: ownerGrant("asker"),
		}, gatedDescriptor()),
		NewAskOrder("ask-share", "asker", MarkerShareSaleAsk{
			Address:            "marker-addr",
			Denom:              "d",
			RemainingShares:    10,
			QuotePerShare:      []coin.Coin{coin.New("x", 5)},
			RemovedPermissions: ownerGrant("asker"),
			SaleType:           MultipleTransactions{RemovalThreshold: &threshold},
		}, gatedDescriptor()),
		NewAskOrder("ask-share-single", "asker", MarkerShareSaleAsk{
			Address:            "marker-addr",
			Denom:              "d",
			RemainingShares:    10,
			QuotePerShare:      []coin.Coin{coin.New("x", 5)},
			RemovedPermissions: ownerGrant("asker"),
			SaleType:           SingleTransaction{ShareCount: 10},
		}, gatedDescriptor()),
		NewAskOrder("ask-scope", "asker", ScopeTradeAsk{
			ScopeAddress: "scope1",
			Quote:        []coin.Coin{coin.New("x", 5)},
		}, gatedDescriptor()),
	}
}

func validBids() []BidOrder {
	return []BidOrder{
		NewBidOrder("bid-coin", "bidder", CoinTradeBid{
			Base:  []coin.Coin{coin.New("base", 100)},
			Quote: []coin.Coin{coin.New("quote", 50)},
		}, gatedDescriptor()),
		NewBidOrder("bid-marker", "bidder", MarkerTradeBid{
			Address: "marker-addr",
			Denom:   "d",
			Quote:   []coin.Coin{coin.New("x", 50)},
		}, gatedDescriptor()),
		NewBidOrder("bid-share", "bidder", MarkerShareSaleBid{
			Address:    "marker-addr",
			Denom:      "d",
			ShareCount: 5,
			Quote:      []coin.Coin{coin.New("x", 25)},
		}, gatedDescriptor()),
		NewBidOrder("bid-scope", "bidder", ScopeTradeBid{
			ScopeAddress: "scope1",
			Quote:        []coin.Coin{coin.New("x", 5)},
		}, gatedDescriptor()),
	}
}

type askMutation struct {
	field string
	apply func(*AskOrder) bool // false when the mutation does not apply
}

var askMutations = []askMutation{
	{"id", func(o *AskOrder) bool { o.ID = ""; return true }},
	{"owner", func(o *AskOrder) bool { o.Owner = " "; return true }},
	{"attribute_requirement", func(o *AskOrder) bool {
		o.Descriptor = &Descriptor{AttributeRequirement: &AttributeRequirement{Type: RequireAny}}
		return true
	}},
	{"ask_type", func(o *AskOrder) bool { o.tradeType = TradeTypeScope; return o.Collateral.TradeType() != TradeTypeScope }},
	{"base", func(o *AskOrder) bool {
		c, ok := o.Collateral.(CoinTradeAsk)
		if ok {
			c.Base = []coin.Coin{coin.New("base", 0)}
			o.Collateral = c
		}
		return ok
	}},
	{"quote", func(o *AskOrder) bool {
		switch c := o.Collateral.(type) {
		case CoinTradeAsk:
			c.Quote = nil
			o.Collateral = c
		case ScopeTradeAsk:
			c.Quote = []coin.Coin{coin.New("", 1)}
			o.Collateral = c
		default:
			return false
		}
		return true
	}},
	{"address", func(o *AskOrder) bool {
		switch c := o.Collateral.(type) {
		case MarkerTradeAsk:
			c.Address = ""
			o.Collateral = c
		case MarkerShareSaleAsk:
			c.Address = ""
			o.Collateral = c
		default:
			return false
		}
		return true
	}},
	{"denom", func(o *AskOrder) bool {
		switch c := o.Collateral.(type) {
		case MarkerTradeAsk:
			c.Denom = "  "
			o.Collateral = c
		case MarkerShareSaleAsk:
			c.Denom = ""
			o.Collateral = c
		default:
			return false
		}
		return true
	}},
	{"share_count", func(o *AskOrder) bool {
		c, ok := o.Collateral.(MarkerTradeAsk)
		if ok {
			c.ShareCount = 0
			o.Collateral = c
		}
		return ok
	}},
	{"remaining_shares", func(o *AskOrder) bool {
		c, ok := o.Collateral.(MarkerShareSaleAsk)
		if ok {
			c.RemainingShares = 0
			o.Collateral = c
		}
		return ok
	}},
	{"quote_per_share", func(o *AskOrder) bool {
		switch c := o.Collateral.(type) {
		case MarkerTradeAsk:
			c.QuotePerShare = nil
			o.Collateral = c
		case MarkerShareSaleAsk:
			c.QuotePerShare = []coin.Coin{coin.New("x", 0)}
			o.Collateral = c
		default:
			return false
		}
		return true
	}},
	{"removed_permissions", func(o *AskOrder) bool {
		switch c := o.Collateral.(type) {
		case MarkerTradeAsk:
			c.RemovedPermissions = ownerGrant("someone-else")
			o.Collateral = c
		case MarkerShareSaleAsk:
			c.RemovedPermissions = nil
			o.Collateral = c
		default:
			return false
		}
		return true
	}},
	{"sale_type", func(o *AskOrder) bool {
		c, ok := o.Collateral.(MarkerShareSaleAsk)
		if !ok {
			return false
		}
		switch c.SaleType.(type) {
		case SingleTransaction:
			c.SaleType = SingleTransaction{ShareCount: c.RemainingShares + 1}
		default:
			threshold := c.RemainingShares + 1
			c.SaleType = MultipleTransactions{RemovalThreshold: &threshold}
		}
		o.Collateral = c
		return true
	}},
	{"scope_address", func(o *AskOrder) bool {
		c, ok := o.Collateral.(ScopeTradeAsk)
		if ok {
			c.ScopeAddress = ""
			o.Collateral = c
		}
		return ok
	}},
}

type bidMutation struct {
	field string
	apply func(*BidOrder) bool
}

var bidMutations = []bidMutation{
	{"id", func(o *BidOrder) bool { o.ID = ""; return true }},
	{"owner", func(o *BidOrder) bool { o.Owner = ""; return true }},
	{"bid_type", func(o *BidOrder) bool { o.tradeType = TradeTypeUnknown; return true }},
	{"quote", func(o *BidOrder) bool {
		switch c := o.Collateral.(type) {
		case CoinTradeBid:
			c.Quote = nil
			o.Collateral = c
		case MarkerTradeBid:
			c.Quote = []coin.Coin{coin.New("x", 0)}
			o.Collateral = c
		case MarkerShareSaleBid:
			c.Quote = nil
			o.Collateral = c
		case ScopeTradeBid:
			c.Quote = nil
			o.Collateral = c
		}
		return true
	}},
	{"share_count", func(o *BidOrder) bool {
		c, ok := o.Collateral.(MarkerShareSaleBid)
		if ok {
			c.ShareCount = 0
			o.Collateral = c
		}
		return ok
	}},
	{"denom", func(o *BidOrder) bool {
		switch c := o.Collateral.(type) {
		case MarkerTradeBid:
			c.Denom = ""
			o.Collateral = c
		case MarkerShareSaleBid:
			c.Denom = ""
			o.Collateral = c
		default:
			return false
		}
		return true
	}},
}

func TestValidOrdersPass(t *testing.T) {
	for _, ask := range validAsks() {
		assert.NoError(t, ValidateAsk(ask), ask.ID)
	}
	for _, bid := range validBids() {
		assert.NoError(t, ValidateBid(bid), bid.ID)
	}
}

func TestSingleMutationYieldsOneMessage(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		asks := validAsks()
		ask := asks[rapid.IntRange(0, len(asks)-1).Draw(t, "ask")]
		mut := askMutations[rapid.IntRange(0, len(askMutations)-1).Draw(t, "ask_mutation")]
		if mut.apply(&ask) {
			msgs := errs.MessagesOf(ValidateAsk(ask))
			if len(msgs) != 1 || !strings.Contains(msgs[0], mut.field) {
				t.Fatalf("mutating %s on %s: got %q", mut.field, ask.Collateral.TradeType(), msgs)
			}
		}

		bids := validBids()
		bid := bids[rapid.IntRange(0, len(bids)-1).Draw(t, "bid")]
		bmut := bidMutations[rapid.IntRange(0, len(bidMutations)-1).Draw(t, "bid_mutation")]
		if bmut.apply(&bid) {
			msgs := errs.MessagesOf(ValidateBid(bid))
			if len(msgs) != 1 || !strings.Contains(msgs[0], bmut.field) {
				t.Fatalf("mutating %s on %s: got %q", bmut.field, bid.Collateral.TradeType(), msgs)
			}
		}
	})
}

func TestValidationCollectsEveryViolation(t *testing.T) {
	ask := NewAskOrder("", "", MarkerTradeAsk{}, &Descriptor{
		AttributeRequirement: &AttributeRequirement{Type: "some"},
	})
	err := ValidateAsk(ask)
	require.ErrorIs(t, err, errs.ErrValidation)

	msgs := errs.MessagesOf(err)
	// id, owner, attributes, requirement_type, address, denom, share_count, quote_per_share
	assert.Len(t, msgs, 8)
	assert.Contains(t, msgs[0], "AskOrder []")
}

func TestMissingCollateral(t *testing.T) {
	err := ValidateBid(BidOrder{ID: "b", Owner: "o"})
	assert.Equal(t, []string{"BidOrder [b]: collateral must be provided"}, errs.MessagesOf(err))
}

func TestAttributeRequirement(t *testing.T) {
	held := []string{"a", "b"}
	tests := []struct {
		kind  RequirementType
		attrs []string
		want  bool
	}{
		{RequireAll, []string{"a", "b"}, true},
		{RequireAll, []string{"a", "c"}, false},
		{RequireAny, []string{"c", "b"}, true},
		{RequireAny, []string{"c"}, false},
		{RequireNone, []string{"c"}, true},
		{RequireNone, []string{"c", "a"}, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+strings.Join(tt.attrs, ","), func(t *testing.T) {
			req := AttributeRequirement{Attributes: tt.attrs, Type: tt.kind}
			assert.Equal(t, tt.want, req.SatisfiedBy(held))
		})
	}
}
