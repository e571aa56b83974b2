// Package events carries committed exchange activity to downstream consumers.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/uhyunpark/bilateral/pkg/app/core/order"
	"github.com/uhyunpark/bilateral/pkg/app/core/settlement"
)

// Type names what happened.
type Type string

const (
	AskCreated    Type = "ask_created"
	BidCreated    Type = "bid_created"
	AskCancelled  Type = "ask_cancelled"
	BidCancelled  Type = "bid_cancelled"
	MatchExecuted Type = "match_executed"
)

// Channel is the stream a subscriber listens on for this event type.
func (t Type) Channel() string {
	switch t {
	case AskCreated, AskCancelled:
		return "asks"
	case BidCreated, BidCancelled:
		return "bids"
	default:
		return "matches"
	}
}

// Event is published once the transaction that produced it has committed.
type Event struct {
	Type         Type                     `json:"type"`
	AskID        string                   `json:"ask_id,omitempty"`
	BidID        string                   `json:"bid_id,omitempty"`
	Owner        string                   `json:"owner,omitempty"`
	TradeType    order.TradeType          `json:"trade_type,omitempty"`
	Instructions []settlement.Instruction `json:"instructions,omitempty"`
	Timestamp    time.Time                `json:"ts"`
}

// Key identifies the order (or pair) the event is about.
func (e Event) Key() string {
	switch {
	case e.AskID != "" && e.BidID != "":
		return e.AskID + "/" + e.BidID
	case e.AskID != "":
		return e.AskID
	default:
		return e.BidID
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi fans an event out to every publisher. All publishers are tried; the
// errors are joined.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
