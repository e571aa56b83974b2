package order

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
	"github.com/uhyunpark/bilateral/pkg/app/core/registry"
)

// AskCollateral is what an asker places in escrow. The set of implementations
// is closed: CoinTradeAsk, MarkerTradeAsk, MarkerShareSaleAsk, ScopeTradeAsk.
type AskCollateral interface {
	TradeType() TradeType
	isAskCollateral()
}

// BidCollateral is what a bidder offers. The set of implementations is
// closed: CoinTradeBid, MarkerTradeBid, MarkerShareSaleBid, ScopeTradeBid.
type BidCollateral interface {
	TradeType() TradeType
	isBidCollateral()
}

type CoinTradeAsk struct {
	Base  []coin.Coin `json:"base"`
	Quote []coin.Coin `json:"quote"`
}

// MarkerTradeAsk sells a whole registry entry. ShareCount is the holding
// observed when the contract took custody.
type MarkerTradeAsk struct {
	Address            string                 `json:"address"`
	Denom              string                 `json:"denom"`
	ShareCount         uint64                 `json:"share_count"`
	QuotePerShare      []coin.Coin            `json:"quote_per_share"`
	RemovedPermissions []registry.AccessGrant `json:"removed_permissions"`
}

// MarkerShareSaleAsk sells a registry entry's units in one or more fills.
type MarkerShareSaleAsk struct {
	Address            string                 `json:"address"`
	Denom              string                 `json:"denom"`
	RemainingShares    uint64                 `json:"remaining_shares"`
	QuotePerShare      []coin.Coin            `json:"quote_per_share"`
	RemovedPermissions []registry.AccessGrant `json:"removed_permissions"`
	SaleType           ShareSaleType          `json:"-"`
}

type ScopeTradeAsk struct {
	ScopeAddress string      `json:"scope_address"`
	Quote        []coin.Coin `json:"quote"`
}

func (CoinTradeAsk) TradeType() TradeType       { return TradeTypeCoin }
func (MarkerTradeAsk) TradeType() TradeType     { return TradeTypeMarker }
func (MarkerShareSaleAsk) TradeType() TradeType { return TradeTypeMarkerShareSale }
func (ScopeTradeAsk) TradeType() TradeType      { return TradeTypeScope }

func (CoinTradeAsk) isAskCollateral()       {}
func (MarkerTradeAsk) isAskCollateral()     {}
func (MarkerShareSaleAsk) isAskCollateral() {}
func (ScopeTradeAsk) isAskCollateral()      {}

type CoinTradeBid struct {
	Base  []coin.Coin `json:"base"`
	Quote []coin.Coin `json:"quote"`
}

type MarkerTradeBid struct {
	Address string      `json:"address"`
	Denom   string      `json:"denom"`
	Quote   []coin.Coin `json:"quote"`
}

type MarkerShareSaleBid struct {
	Address    string      `json:"address"`
	Denom      string      `json:"denom"`
	ShareCount uint64      `json:"share_count"`
	Quote      []coin.Coin `json:"quote"`
}

type ScopeTradeBid struct {
	ScopeAddress string      `json:"scope_address"`
	Quote        []coin.Coin `json:"quote"`
}

func (CoinTradeBid) TradeType() TradeType       { return TradeTypeCoin }
func (MarkerTradeBid) TradeType() TradeType     { return TradeTypeMarker }
func (MarkerShareSaleBid) TradeType() TradeType { return TradeTypeMarkerShareSale }
func (ScopeTradeBid) TradeType() TradeType      { return TradeTypeScope }

func (CoinTradeBid) isBidCollateral()       {}
func (MarkerTradeBid) isBidCollateral()     {}
func (MarkerShareSaleBid) isBidCollateral() {}
func (ScopeTradeBid) isBidCollateral()      {}

// ShareSaleType is either SingleTransaction or MultipleTransactions.
type ShareSaleType interface {
	isShareSaleType()
}

// SingleTransaction requires one fill of exactly ShareCount shares.
type SingleTransaction struct {
	ShareCount uint64 `json:"share_count"`
}

// MultipleTransactions allows repeated fills until the remaining shares would
// drop below RemovalThreshold (0 when unset).
type MultipleTransactions struct {
	RemovalThreshold *uint64 `json:"removal_threshold,omitempty"`
}

func (SingleTransaction) isShareSaleType()    {}
func (MultipleTransactions) isShareSaleType() {}

// Threshold returns the removal threshold, defaulting to zero.
func (m MultipleTransactions) Threshold() uint64 {
	if m.RemovalThreshold == nil {
		return 0
	}
	return *m.RemovalThreshold
}

var errCollateralTag = errors.New("collateral must carry exactly one trade type tag")

type saleTypeJSON struct {
	Single   *SingleTransaction    `json:"single_transaction,omitempty"`
	Multiple *MultipleTransactions `json:"multiple_transactions,omitempty"`
}

func (c MarkerShareSaleAsk) MarshalJSON() ([]byte, error) {
	type alias MarkerShareSaleAsk
	var st *saleTypeJSON
	switch v := c.SaleType.(type) {
	case SingleTransaction:
		st = &saleTypeJSON{Single: &v}
	case MultipleTransactions:
		st = &saleTypeJSON{Multiple: &v}
	case nil:
	default:
		return nil, fmt.Errorf("unknown sale type %T", v)
	}
	return json.Marshal(struct {
		alias
		SaleType *saleTypeJSON `json:"sale_type"`
	}{alias(c), st})
}

func (c *MarkerShareSaleAsk) UnmarshalJSON(data []byte) error {
	type alias MarkerShareSaleAsk
	aux := struct {
		*alias
		SaleType *saleTypeJSON `json:"sale_type"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.SaleType = nil
	if aux.SaleType == nil {
		return nil
	}
	switch {
	case aux.SaleType.Single != nil && aux.SaleType.Multiple == nil:
		c.SaleType = *aux.SaleType.Single
	case aux.SaleType.Multiple != nil && aux.SaleType.Single == nil:
		c.SaleType = *aux.SaleType.Multiple
	default:
		return errors.New("sale_type must carry exactly one of single_transaction or multiple_transactions")
	}
	return nil
}

type askCollateralJSON struct {
	CoinTrade       *CoinTradeAsk       `json:"coin_trade,omitempty"`
	MarkerTrade     *MarkerTradeAsk     `json:"marker_trade,omitempty"`
	MarkerShareSale *MarkerShareSaleAsk `json:"marker_share_sale,omitempty"`
	ScopeTrade      *ScopeTradeAsk      `json:"scope_trade,omitempty"`
}

func encodeAskCollateral(c AskCollateral) (*askCollateralJSON, error) {
	var out askCollateralJSON
	switch v := c.(type) {
	case CoinTradeAsk:
		out.CoinTrade = &v
	case MarkerTradeAsk:
		out.MarkerTrade = &v
	case MarkerShareSaleAsk:
		out.MarkerShareSale = &v
	case ScopeTradeAsk:
		out.ScopeTrade = &v
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown ask collateral %T", v)
	}
	return &out, nil
}

func (j *askCollateralJSON) decode() (AskCollateral, error) {
	if j == nil {
		return nil, nil
	}
	var found []AskCollateral
	if j.CoinTrade != nil {
		found = append(found, *j.CoinTrade)
	}
	if j.MarkerTrade != nil {
		found = append(found, *j.MarkerTrade)
	}
	if j.MarkerShareSale != nil {
		found = append(found, *j.MarkerShareSale)
	}
	if j.ScopeTrade != nil {
		found = append(found, *j.ScopeTrade)
	}
	if len(found) != 1 {
		return nil, errCollateralTag
	}
	return found[0], nil
}

type bidCollateralJSON struct {
	CoinTrade       *CoinTradeBid       `json:"coin_trade,omitempty"`
	MarkerTrade     *MarkerTradeBid     `json:"marker_trade,omitempty"`
	MarkerShareSale *MarkerShareSaleBid `json:"marker_share_sale,omitempty"`
	ScopeTrade      *ScopeTradeBid      `json:"scope_trade,omitempty"`
}

func encodeBidCollateral(c BidCollateral) (*bidCollateralJSON, error) {
	var out bidCollateralJSON
	switch v := c.(type) {
	case CoinTradeBid:
		out.CoinTrade = &v
	case MarkerTradeBid:
		out.MarkerTrade = &v
	case MarkerShareSaleBid:
		out.MarkerShareSale = &v
	case ScopeTradeBid:
		out.ScopeTrade = &v
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown bid collateral %T", v)
	}
	return &out, nil
}

func (j *bidCollateralJSON) decode() (BidCollateral, error) {
	if j == nil {
		return nil, nil
	}
	var found []BidCollateral
	if j.CoinTrade != nil {
		found = append(found, *j.CoinTrade)
	}
	if j.MarkerTrade != nil {
		found = append(found, *j.MarkerTrade)
	}
	if j.MarkerShareSale != nil {
		found = append(found, *j.MarkerShareSale)
	}
	if j.ScopeTrade != nil {
		found = append(found, *j.ScopeTrade)
	}
	if len(found) != 1 {
		return nil, errCollateralTag
	}
	return found[0], nil
}
