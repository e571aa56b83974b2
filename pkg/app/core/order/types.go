package order

import (
	"fmt"
	"time"
)

// TradeType classifies an order by the shape of its collateral.
type TradeType string

const (
	TradeTypeUnknown         TradeType = ""
	TradeTypeCoin            TradeType = "coin_trade"
	TradeTypeMarker          TradeType = "marker_trade"
	TradeTypeMarkerShareSale TradeType = "marker_share_sale"
	TradeTypeScope           TradeType = "scope_trade"
)

// ParseTradeType accepts the snake_case trade type names.
func ParseTradeType(s string) (TradeType, error) {
	switch t := TradeType(s); t {
	case TradeTypeCoin, TradeTypeMarker, TradeTypeMarkerShareSale, TradeTypeScope:
		return t, nil
	default:
		return TradeTypeUnknown, fmt.Errorf("unknown trade type %q", s)
	}
}

func (t TradeType) String() string {
	if t == TradeTypeUnknown {
		return "unknown"
	}
	return string(t)
}

// RequirementType is the predicate an attribute requirement applies.
type RequirementType string

const (
	RequireAll  RequirementType = "all"
	RequireAny  RequirementType = "any"
	RequireNone RequirementType = "none"
)

// AttributeRequirement gates a match on the counterparty's attributes.
type AttributeRequirement struct {
	Attributes []string        `json:"attributes"`
	Type       RequirementType `json:"requirement_type"`
}

// SatisfiedBy evaluates the requirement against the attributes an address holds.
func (r AttributeRequirement) SatisfiedBy(held []string) bool {
	have := make(map[string]struct{}, len(held))
	for _, a := range held {
		have[a] = struct{}{}
	}
	present := 0
	for _, a := range r.Attributes {
		if _, ok := have[a]; ok {
			present++
		}
	}
	switch r.Type {
	case RequireAll:
		return present == len(r.Attributes)
	case RequireAny:
		return present > 0
	case RequireNone:
		return present == 0
	default:
		return false
	}
}

// Descriptor carries optional free-form metadata for an order.
type Descriptor struct {
	Description          string                `json:"description,omitempty"`
	EffectiveTime        *time.Time            `json:"effective_time,omitempty"`
	AttributeRequirement *AttributeRequirement `json:"attribute_requirement,omitempty"`
}

// Requirement returns the descriptor's attribute requirement, if any.
func (d *Descriptor) Requirement() *AttributeRequirement {
	if d == nil {
		return nil
	}
	return d.AttributeRequirement
}
