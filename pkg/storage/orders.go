package storage

import "github.com/uhyunpark/bilateral/pkg/app/core/order"

// Secondary index names shared by the ask and bid tables.
const (
	IndexOwner = "owner"
	IndexType  = "type"
)

type (
	AskStore = IndexedStore[order.AskOrder]
	BidStore = IndexedStore[order.BidOrder]
)

// NewAskStore builds the "ask" table indexed by owner and trade type. Loaded
// asks are rejected if their trade type no longer matches their collateral.
func NewAskStore() *AskStore {
	return NewIndexedStore("ask",
		order.AskOrder.Key,
		JSONCodec[order.AskOrder]{Check: order.AskOrder.CheckTradeType},
		Index[order.AskOrder]{Name: IndexOwner, Value: func(o order.AskOrder) string { return o.Owner }},
		Index[order.AskOrder]{Name: IndexType, Value: func(o order.AskOrder) string { return string(o.TradeType()) }},
	)
}

// NewBidStore builds the "bid" table indexed by owner and trade type.
func NewBidStore() *BidStore {
	return NewIndexedStore("bid",
		order.BidOrder.Key,
		JSONCodec[order.BidOrder]{Check: order.BidOrder.CheckTradeType},
		Index[order.BidOrder]{Name: IndexOwner, Value: func(o order.BidOrder) string { return o.Owner }},
		Index[order.BidOrder]{Name: IndexType, Value: func(o order.BidOrder) string { return string(o.TradeType()) }},
	)
}
