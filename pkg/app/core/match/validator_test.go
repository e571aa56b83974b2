package match

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
	"github.com/uhyunpark/bilateral/pkg/app/core/oracle"
	"github.com/uhyunpark/bilateral/pkg/app/core/order"
	"github.com/uhyunpark/bilateral/pkg/app/core/registry"
	"github.com/uhyunpark/bilateral/pkg/errs"
)

type failingAttributes struct{}

func (failingAttributes) AttributesOf(context.Context, string) ([]string, error) {
	return nil, errors.New("attribute service unavailable")
}

func newRegistry(t *testing.T, denom string, held uint64) *oracle.MemoryRegistry {
	t.Helper()
	reg := oracle.NewMemoryRegistry()
	require.NoError(t, reg.RegisterEntry(registry.Entry{
		Address: "marker-" + denom,
		Denom:   denom,
		Coins:   []coin.Coin{coin.New(denom, held)},
		Permissions: []registry.AccessGrant{
			{Address: "contract", Permissions: []registry.Permission{registry.PermissionAdmin, registry.PermissionWithdraw}},
		},
		TotalSupply: held,
	}))
	return reg
}

func messages(t *testing.T, err error) []string {
	t.Helper()
	if err == nil {
		return nil
	}
	require.ErrorIs(t, err, errs.ErrValidation)
	return errs.MessagesOf(err)
}

func markerAsk(shares uint64) order.AskOrder {
	return order.NewAskOrder("ask", "asker", order.MarkerTradeAsk{
		Address:       "marker-d",
		Denom:         "d",
		ShareCount:    shares,
		QuotePerShare: []coin.Coin{coin.New("x", 5)},
		RemovedPermissions: []registry.AccessGrant{
			{Address: "asker", Permissions: []registry.Permission{registry.PermissionAdmin}},
		},
	}, nil)
}

func markerBid(quote ...coin.Coin) order.BidOrder {
	return order.NewBidOrder("bid", "bidder", order.MarkerTradeBid{Address: "marker-d", Denom: "d", Quote: quote}, nil)
}

func shareSaleAsk(remaining uint64, saleType order.ShareSaleType) order.AskOrder {
	return order.NewAskOrder("ask", "asker", order.MarkerShareSaleAsk{
		Address:         "marker-d",
		Denom:           "d",
		RemainingShares: remaining,
		QuotePerShare:   []coin.Coin{coin.New("x", 5)},
		RemovedPermissions: []registry.AccessGrant{
			{Address: "asker", Permissions: []registry.Permission{registry.PermissionAdmin}},
		},
		SaleType: saleType,
	}, nil)
}

func shareSaleBid(shares uint64) order.BidOrder {
	return order.NewBidOrder("bid", "bidder", order.MarkerShareSaleBid{
		Address:    "marker-d",
		Denom:      "d",
		ShareCount: shares,
		Quote:      []coin.Coin{coin.New("x", 5*shares)},
	}, nil)
}

func TestCoinTradeIgnoresCoinOrder(t *testing.T) {
	v := NewValidator(oracle.NewMemoryAttributes(), oracle.NewMemoryRegistry())
	coinGen := rapid.Custom(func(t *rapid.T) coin.Coin {
		denom := rapid.SampledFrom([]string{"a", "b", "nhash", "usd"}).Draw(t, "denom")
		return coin.New(denom, rapid.Uint64Range(1, 1_000_000).Draw(t, "amount"))
	})

	rapid.Check(t, func(t *rapid.T) {
		base := rapid.SliceOfN(coinGen, 1, 6).Draw(t, "base")
		quote := rapid.SliceOfN(coinGen, 1, 6).Draw(t, "quote")

		ask := order.NewAskOrder("ask", "asker", order.CoinTradeAsk{Base: base, Quote: quote}, nil)
		bid := order.NewBidOrder("bid", "bidder", order.CoinTradeBid{
			Base:  rapid.Permutation(base).Draw(t, "bid_base"),
			Quote: rapid.Permutation(quote).Draw(t, "bid_quote"),
		}, nil)

		if err := v.ValidateMatch(context.Background(), ask, bid); err != nil {
			t.Fatalf("permuted coins should match: %v", err)
		}
	})
}

func TestCoinTradeMismatch(t *testing.T) {
	v := NewValidator(oracle.NewMemoryAttributes(), oracle.NewMemoryRegistry())
	ask := order.NewAskOrder("ask", "asker", order.CoinTradeAsk{
		Base:  []coin.Coin{coin.New("a", 10), coin.New("b", 1)},
		Quote: []coin.Coin{coin.New("q", 5)},
	}, nil)
	bid := order.NewBidOrder("bid", "bidder", order.CoinTradeBid{
		Base:  []coin.Coin{coin.New("b", 1), coin.New("a", 11)},
		Quote: []coin.Coin{coin.New("q", 4)},
	}, nil)

	msgs := messages(t, v.ValidateMatch(context.Background(), ask, bid))
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "Match Validation for AskOrder [ask] and BidOrder [bid]")
	assert.Contains(t, msgs[0], "[10a, 1b] does not match bid base [11a, 1b]")
	assert.Contains(t, msgs[1], "[5q] does not match bid quote [4q]")
}

func TestTypeMismatchIsReportedWithoutShortCircuit(t *testing.T) {
	v := NewValidator(oracle.NewMemoryAttributes(), oracle.NewMemoryRegistry())
	ask := order.NewAskOrder("ask", "asker", order.CoinTradeAsk{
		Base: []coin.Coin{coin.New("a", 1)}, Quote: []coin.Coin{coin.New("q", 1)},
	}, &order.Descriptor{AttributeRequirement: &order.AttributeRequirement{Attributes: []string{"kyc"}, Type: order.RequireAll}})
	bid := order.NewBidOrder("bid", "bidder", order.ScopeTradeBid{ScopeAddress: "s", Quote: []coin.Coin{coin.New("q", 1)}}, nil)

	msgs := messages(t, v.ValidateMatch(context.Background(), ask, bid))
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0], "Ask type [coin_trade] does not match bid type [scope_trade]")
	assert.Contains(t, msgs[1], "The bidder [bidder] does not satisfy the ask's attribute requirement")
	assert.Contains(t, msgs[2], "cannot be matched with bid collateral [scope_trade]")
}

func TestAttributeGating(t *testing.T) {
	ctx := context.Background()
	attrs := oracle.NewMemoryAttributes()
	attrs.SetAttributes("asker", "seller.kyc")
	attrs.SetAttributes("bidder", "buyer.kyc", "accredited")

	coins := []coin.Coin{coin.New("a", 1)}
	newPair := func(askReq, bidReq *order.AttributeRequirement) (order.AskOrder, order.BidOrder) {
		ask := order.NewAskOrder("ask", "asker", order.CoinTradeAsk{Base: coins, Quote: coins},
			&order.Descriptor{AttributeRequirement: askReq})
		bid := order.NewBidOrder("bid", "bidder", order.CoinTradeBid{Base: coins, Quote: coins},
			&order.Descriptor{AttributeRequirement: bidReq})
		return ask, bid
	}

	tests := []struct {
		name   string
		askReq *order.AttributeRequirement
		bidReq *order.AttributeRequirement
		want   []string
	}{
		{
			name:   "both satisfied",
			askReq: &order.AttributeRequirement{Attributes: []string{"buyer.kyc", "accredited"}, Type: order.RequireAll},
			bidReq: &order.AttributeRequirement{Attributes: []string{"seller.kyc", "other"}, Type: order.RequireAny},
		},
		{
			name:   "bid requirement gates the asker",
			bidReq: &order.AttributeRequirement{Attributes: []string{"seller.kyc"}, Type: order.RequireNone},
			want:   []string{"The asker [asker] does not satisfy the bid's attribute requirement"},
		},
		{
			name:   "ask requirement gates the bidder",
			askReq: &order.AttributeRequirement{Attributes: []string{"seller.kyc"}, Type: order.RequireAll},
			want:   []string{"The bidder [bidder] does not satisfy the ask's attribute requirement"},
		},
	}
	v := NewValidator(attrs, oracle.NewMemoryRegistry())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ask, bid := newPair(tt.askReq, tt.bidReq)
			msgs := messages(t, v.ValidateMatch(ctx, ask, bid))
			require.Len(t, msgs, len(tt.want))
			for i, want := range tt.want {
				assert.Contains(t, msgs[i], want)
			}
		})
	}

	t.Run("oracle failure becomes a message", func(t *testing.T) {
		ask, bid := newPair(nil, &order.AttributeRequirement{Attributes: []string{"x"}, Type: order.RequireAny})
		msgs := messages(t, NewValidator(failingAttributes{}, oracle.NewMemoryRegistry()).ValidateMatch(ctx, ask, bid))
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "Failed to fetch attributes for asker [asker]")
	})
}

func TestMarkerTrade(t *testing.T) {
	ctx := context.Background()

	t.Run("matching quote", func(t *testing.T) {
		v := NewValidator(oracle.NewMemoryAttributes(), newRegistry(t, "d", 10))
		assert.NoError(t, v.ValidateMatch(ctx, markerAsk(10), markerBid(coin.New("x", 50))))
	})

	t.Run("share count drift and quote mismatch", func(t *testing.T) {
		v := NewValidator(oracle.NewMemoryAttributes(), newRegistry(t, "d", 12))
		msgs := messages(t, v.ValidateMatch(ctx, markerAsk(10), markerBid(coin.New("x", 50))))
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[0], "share count was [12] but the original value when added to the exchange was [10]")
		assert.Contains(t, msgs[1], "Bid quote [50x] does not match the expected quote [60x]")
	})

	t.Run("denom mismatch skips registry checks", func(t *testing.T) {
		v := NewValidator(oracle.NewMemoryAttributes(), oracle.NewMemoryRegistry())
		bid := order.NewBidOrder("bid", "bidder", order.MarkerTradeBid{Address: "other", Denom: "e", Quote: []coin.Coin{coin.New("x", 50)}}, nil)
		msgs := messages(t, v.ValidateMatch(ctx, markerAsk(10), bid))
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[0], "Ask denom [d] does not match bid denom [e]")
		assert.Contains(t, msgs[1], "marker address")
	})

	t.Run("unreachable registry entry", func(t *testing.T) {
		v := NewValidator(oracle.NewMemoryAttributes(), oracle.NewMemoryRegistry())
		msgs := messages(t, v.ValidateMatch(ctx, markerAsk(10), markerBid(coin.New("x", 50))))
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "could not be evaluated")
	})

	t.Run("invalid holdings", func(t *testing.T) {
		reg := newRegistry(t, "d", 10)
		require.NoError(t, reg.SetHoldings("d", coin.New("d", 10), coin.New("nhash", 3)))
		v := NewValidator(oracle.NewMemoryAttributes(), reg)
		msgs := messages(t, v.ValidateMatch(ctx, markerAsk(10), markerBid(coin.New("x", 50))))
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "had invalid coin holdings")
	})
}

func TestMarkerShareSaleMultipleTransactions(t *testing.T) {
	ctx := context.Background()
	threshold := uint64(5)
	ask := shareSaleAsk(10, order.MultipleTransactions{RemovalThreshold: &threshold})
	v := NewValidator(oracle.NewMemoryAttributes(), newRegistry(t, "d", 10))

	msgs := messages(t, v.ValidateMatch(ctx, ask, shareSaleBid(6)))
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "reduce the remaining share count to [4], below the removal threshold of [5] shares")

	assert.NoError(t, v.ValidateMatch(ctx, ask, shareSaleBid(5)))

	msgs = messages(t, v.ValidateMatch(ctx, ask, shareSaleBid(11)))
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "Bid requested [11] shares but the remaining share count is [10]")
	assert.Contains(t, msgs[1], "fewer than the [11] requested")

	unbounded := shareSaleAsk(10, order.MultipleTransactions{})
	assert.NoError(t, v.ValidateMatch(ctx, unbounded, shareSaleBid(10)))
}

func TestMarkerShareSaleSingleTransaction(t *testing.T) {
	ctx := context.Background()
	ask := shareSaleAsk(10, order.SingleTransaction{ShareCount: 10})
	v := NewValidator(oracle.NewMemoryAttributes(), newRegistry(t, "d", 10))

	for _, shares := range []uint64{9, 11} {
		msgs := messages(t, v.ValidateMatch(ctx, ask, shareSaleBid(shares)))
		require.NotEmpty(t, msgs)
		assert.Contains(t, msgs[0], "exactly [10] shares be purchased in a single transaction")
	}
	assert.NoError(t, v.ValidateMatch(ctx, ask, shareSaleBid(10)))
}

func TestMarkerShareSaleRegistryDrift(t *testing.T) {
	ask := shareSaleAsk(10, order.MultipleTransactions{})
	v := NewValidator(oracle.NewMemoryAttributes(), newRegistry(t, "d", 8))

	bid := shareSaleBid(4)
	bid.Collateral = order.MarkerShareSaleBid{Address: "marker-d", Denom: "d", ShareCount: 4, Quote: []coin.Coin{coin.New("x", 21)}}
	msgs := messages(t, v.ValidateMatch(context.Background(), ask, bid))
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "share count was [8] but the ask records [10] remaining shares")
	assert.True(t, strings.Contains(msgs[1], "[21x]") && strings.Contains(msgs[1], "[20x]"), msgs[1])
}

func TestScopeTrade(t *testing.T) {
	v := NewValidator(oracle.NewMemoryAttributes(), oracle.NewMemoryRegistry())
	ask := order.NewAskOrder("ask", "asker", order.ScopeTradeAsk{
		ScopeAddress: "scope1", Quote: []coin.Coin{coin.New("x", 1), coin.New("y", 2)},
	}, nil)

	ok := order.NewBidOrder("bid", "bidder", order.ScopeTradeBid{
		ScopeAddress: "scope1", Quote: []coin.Coin{coin.New("y", 2), coin.New("x", 1)},
	}, nil)
	assert.NoError(t, v.ValidateMatch(context.Background(), ask, ok))

	wrong := order.NewBidOrder("bid", "bidder", order.ScopeTradeBid{
		ScopeAddress: "scope2", Quote: []coin.Coin{coin.New("x", 1)},
	}, nil)
	msgs := messages(t, v.ValidateMatch(context.Background(), ask, wrong))
	assert.Len(t, msgs, 2)
}

func TestMarkerTradeQuoteOverflow(t *testing.T) {
	maxAmount := new(uint256.Int).Not(uint256.NewInt(0)).Dec()
	perShare, err := coin.Parse("x", maxAmount)
	require.NoError(t, err)

	v := NewValidator(oracle.NewMemoryAttributes(), newRegistry(t, "d", 10))
	ask := order.NewAskOrder("ask", "asker", order.MarkerTradeAsk{
		Address:       "marker-d",
		Denom:         "d",
		ShareCount:    10,
		QuotePerShare: []coin.Coin{perShare},
		RemovedPermissions: []registry.AccessGrant{
			{Address: "asker", Permissions: []registry.Permission{registry.PermissionAdmin}},
		},
	}, nil)

	msgs := messages(t, v.ValidateMatch(context.Background(), ask, markerBid(coin.New("x", 50))))
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "MARKER TRADE Quote could not be computed from quote_per_share")
	assert.Contains(t, msgs[0], "[10] shares")
	assert.Contains(t, msgs[0], coin.ErrOverflow.Error())
}

func TestMarkerHoldingBeyondShareRange(t *testing.T) {
	held, err := coin.Parse("d", "18446744073709551616") // 2^64
	require.NoError(t, err)
	reg := oracle.NewMemoryRegistry()
	require.NoError(t, reg.RegisterEntry(registry.Entry{Address: "marker-d", Denom: "d", Coins: []coin.Coin{held}}))

	v := NewValidator(oracle.NewMemoryAttributes(), reg)
	msgs := messages(t, v.ValidateMatch(context.Background(), markerAsk(10), markerBid(coin.New("x", 50))))
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "holding 18446744073709551616d exceeds the supported share range")
}
