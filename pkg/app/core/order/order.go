// Package order defines ask and bid orders, their collateral variants and the
// structural validation every order passes before it is stored.
package order

import (
	"encoding/json"
	"fmt"
)

// AskOrder is a standing offer to give up the asset described by its
// collateral. The trade type is derived from the collateral at construction.
type AskOrder struct {
	ID         string
	Owner      string
	Collateral AskCollateral
	Descriptor *Descriptor

	tradeType TradeType
}

// NewAskOrder builds an ask whose trade type matches its collateral.
func NewAskOrder(id, owner string, collateral AskCollateral, descriptor *Descriptor) AskOrder {
	return AskOrder{
		ID:         id,
		Owner:      owner,
		Collateral: collateral,
		Descriptor: descriptor,
		tradeType:  tradeTypeOf(collateral),
	}
}

// TradeType is the declared classification used for indexing.
func (o AskOrder) TradeType() TradeType { return o.tradeType }

// Key returns the primary key.
func (o AskOrder) Key() string { return o.ID }

// CheckTradeType verifies the declared trade type still agrees with the collateral.
func (o AskOrder) CheckTradeType() error {
	if derived := tradeTypeOf(o.Collateral); derived != o.tradeType {
		return fmt.Errorf("ask %s declares trade type %s but holds %s collateral", o.ID, o.tradeType, derived)
	}
	return nil
}

// BidOrder is a standing offer to acquire the asset described by its collateral.
type BidOrder struct {
	ID         string
	Owner      string
	Collateral BidCollateral
	Descriptor *Descriptor

	tradeType TradeType
}

// NewBidOrder builds a bid whose trade type matches its collateral.
func NewBidOrder(id, owner string, collateral BidCollateral, descriptor *Descriptor) BidOrder {
	return BidOrder{
		ID:         id,
		Owner:      owner,
		Collateral: collateral,
		Descriptor: descriptor,
		tradeType:  tradeTypeOf(collateral),
	}
}

func (o BidOrder) TradeType() TradeType { return o.tradeType }

func (o BidOrder) Key() string { return o.ID }

func (o BidOrder) CheckTradeType() error {
	if derived := tradeTypeOf(o.Collateral); derived != o.tradeType {
		return fmt.Errorf("bid %s declares trade type %s but holds %s collateral", o.ID, o.tradeType, derived)
	}
	return nil
}

func tradeTypeOf(c interface{ TradeType() TradeType }) TradeType {
	if c == nil {
		return TradeTypeUnknown
	}
	return c.TradeType()
}

type askJSON struct {
	ID         string             `json:"id"`
	AskType    string             `json:"ask_type"`
	Owner      string             `json:"owner"`
	Collateral *askCollateralJSON `json:"collateral"`
	Descriptor *Descriptor        `json:"descriptor,omitempty"`
}

func (o AskOrder) MarshalJSON() ([]byte, error) {
	c, err := encodeAskCollateral(o.Collateral)
	if err != nil {
		return nil, err
	}
	return json.Marshal(askJSON{
		ID:         o.ID,
		AskType:    string(o.tradeType),
		Owner:      o.Owner,
		Collateral: c,
		Descriptor: o.Descriptor,
	})
}

// UnmarshalJSON keeps the declared ask_type as-is so that a mismatch with the
// collateral surfaces in validation. A missing ask_type is derived.
func (o *AskOrder) UnmarshalJSON(data []byte) error {
	var raw askJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	collateral, err := raw.Collateral.decode()
	if err != nil {
		return fmt.Errorf("ask %s: %w", raw.ID, err)
	}
	declared := tradeTypeOf(collateral)
	if raw.AskType != "" {
		if declared, err = ParseTradeType(raw.AskType); err != nil {
			return fmt.Errorf("ask %s: %w", raw.ID, err)
		}
	}
	*o = AskOrder{
		ID:         raw.ID,
		Owner:      raw.Owner,
		Collateral: collateral,
		Descriptor: raw.Descriptor,
		tradeType:  declared,
	}
	return nil
}

type bidJSON struct {
	ID         string             `json:"id"`
	BidType    string             `json:"bid_type"`
	Owner      string             `json:"owner"`
	Collateral *bidCollateralJSON `json:"collateral"`
	Descriptor *Descriptor        `json:"descriptor,omitempty"`
}

func (o BidOrder) MarshalJSON() ([]byte, error) {
	c, err := encodeBidCollateral(o.Collateral)
	if err != nil {
		return nil, err
	}
	return json.Marshal(bidJSON{
		ID:         o.ID,
		BidType:    string(o.tradeType),
		Owner:      o.Owner,
		Collateral: c,
		Descriptor: o.Descriptor,
	})
}

func (o *BidOrder) UnmarshalJSON(data []byte) error {
	var raw bidJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	collateral, err := raw.Collateral.decode()
	if err != nil {
		return fmt.Errorf("bid %s: %w", raw.ID, err)
	}
	declared := tradeTypeOf(collateral)
	if raw.BidType != "" {
		if declared, err = ParseTradeType(raw.BidType); err != nil {
			return fmt.Errorf("bid %s: %w", raw.ID, err)
		}
	}
	*o = BidOrder{
		ID:         raw.ID,
		Owner:      raw.Owner,
		Collateral: collateral,
		Descriptor: raw.Descriptor,
		tradeType:  declared,
	}
	return nil
}
