// Package exchange exposes the boundary operations of the escrow exchange.
// Every operation runs in one storage transaction; mutations are serialized.
package exchange

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
	"github.com/uhyunpark/bilateral/pkg/app/core/match"
	"github.com/uhyunpark/bilateral/pkg/app/core/oracle"
	"github.com/uhyunpark/bilateral/pkg/app/core/order"
	"github.com/uhyunpark/bilateral/pkg/app/core/search"
	"github.com/uhyunpark/bilateral/pkg/app/core/settlement"
	"github.com/uhyunpark/bilateral/pkg/errs"
	"github.com/uhyunpark/bilateral/pkg/events"
	"github.com/uhyunpark/bilateral/pkg/storage"
	"github.com/uhyunpark/bilateral/pkg/util"
)

// Config names the two privileged addresses.
type Config struct {
	Admin    string // may cancel any order and execute matches
	Contract string // custodian of escrowed registry entries
}

// Deps are the collaborators an Exchange needs. Publisher, Clock and Logger
// default to no-op, wall clock and a nop logger.
type Deps struct {
	Store      *storage.PebbleStore
	Attributes oracle.AttributeOracle
	Registry   oracle.RegistryOracle
	Publisher  events.Publisher
	Clock      util.Clock
	Logger     *zap.SugaredLogger
}

type Exchange struct {
	mu sync.RWMutex

	cfg       Config
	store     *storage.PebbleStore
	asks      *storage.AskStore
	bids      *storage.BidStore
	askSearch *search.Repository[order.AskOrder]
	bidSearch *search.Repository[order.BidOrder]
	validator *match.Validator
	engine    *settlement.Engine
	publisher events.Publisher
	clock     util.Clock
	log       *zap.SugaredLogger
}

func New(cfg Config, deps Deps) *Exchange {
	asks, bids := storage.NewAskStore(), storage.NewBidStore()
	x := &Exchange{
		cfg:       cfg,
		store:     deps.Store,
		asks:      asks,
		bids:      bids,
		askSearch: search.NewRepository[order.AskOrder](asks),
		bidSearch: search.NewRepository[order.BidOrder](bids),
		validator: match.NewValidator(deps.Attributes, deps.Registry),
		engine:    settlement.NewEngine(asks, bids, cfg.Contract),
		publisher: deps.Publisher,
		clock:     deps.Clock,
		log:       deps.Logger,
	}
	if x.publisher == nil {
		x.publisher = events.Nop{}
	}
	if x.clock == nil {
		x.clock = util.RealClock{}
	}
	if x.log == nil {
		x.log = zap.NewNop().Sugar()
	}
	return x
}

// CreateAsk validates the ask and stores it. Marker asks are also checked
// against the live registry entry they escrow.
func (x *Exchange) CreateAsk(ctx context.Context, ask order.AskOrder) (order.AskOrder, error) {
	if err := order.ValidateAsk(ask); err != nil {
		return order.AskOrder{}, err
	}
	if err := x.validator.ValidateAskCustody(ctx, ask, x.cfg.Contract); err != nil {
		x.log.Infow("ask_rejected", "ask_id", ask.ID, "owner", ask.Owner, "messages", errs.MessagesOf(err))
		return order.AskOrder{}, err
	}
	x.mu.Lock()
	err := x.store.Update(func(kv storage.KV) error { return x.asks.Insert(kv, ask) })
	x.mu.Unlock()
	if err != nil {
		return order.AskOrder{}, err
	}

	x.log.Infow("ask_created", "ask_id", ask.ID, "owner", ask.Owner, "trade_type", ask.TradeType())
	x.publish(ctx, events.Event{Type: events.AskCreated, AskID: ask.ID, Owner: ask.Owner, TradeType: ask.TradeType()})
	return ask, nil
}

// CreateBid validates the bid and stores it.
func (x *Exchange) CreateBid(ctx context.Context, bid order.BidOrder) (order.BidOrder, error) {
	if err := order.ValidateBid(bid); err != nil {
		return order.BidOrder{}, err
	}
	if err := x.validator.ValidateBidEntry(ctx, bid); err != nil {
		return order.BidOrder{}, err
	}
	x.mu.Lock()
	err := x.store.Update(func(kv storage.KV) error { return x.bids.Insert(kv, bid) })
	x.mu.Unlock()
	if err != nil {
		return order.BidOrder{}, err
	}

	x.log.Infow("bid_created", "bid_id", bid.ID, "owner", bid.Owner, "trade_type", bid.TradeType())
	x.publish(ctx, events.Event{Type: events.BidCreated, BidID: bid.ID, Owner: bid.Owner, TradeType: bid.TradeType()})
	return bid, nil
}

// CancelAsk removes the ask and returns the instructions that give the
// escrowed collateral back to its owner.
func (x *Exchange) CancelAsk(ctx context.Context, id, caller string, funds []coin.Coin) ([]settlement.Instruction, error) {
	if err := cancelPreconditions(id, funds); err != nil {
		return nil, err
	}

	var ask order.AskOrder
	var refund []settlement.Instruction
	x.mu.Lock()
	err := x.store.Update(func(kv storage.KV) error {
		var err error
		if ask, err = x.asks.Get(kv, id); err != nil {
			return err
		}
		if err := x.authorize(caller, ask.Owner, "ask", id); err != nil {
			return err
		}
		if refund, err = settlement.AskRefund(ask, x.cfg.Contract); err != nil {
			return err
		}
		return x.asks.Delete(kv, id)
	})
	x.mu.Unlock()
	if err != nil {
		return nil, err
	}

	x.log.Infow("ask_cancelled", "ask_id", id, "caller", caller, "instructions", len(refund))
	x.publish(ctx, events.Event{Type: events.AskCancelled, AskID: id, Owner: ask.Owner, TradeType: ask.TradeType(), Instructions: refund})
	return refund, nil
}

// CancelBid removes the bid and returns the instructions that refund its quote.
func (x *Exchange) CancelBid(ctx context.Context, id, caller string, funds []coin.Coin) ([]settlement.Instruction, error) {
	if err := cancelPreconditions(id, funds); err != nil {
		return nil, err
	}

	var bid order.BidOrder
	var refund []settlement.Instruction
	x.mu.Lock()
	err := x.store.Update(func(kv storage.KV) error {
		var err error
		if bid, err = x.bids.Get(kv, id); err != nil {
			return err
		}
		if err := x.authorize(caller, bid.Owner, "bid", id); err != nil {
			return err
		}
		if refund, err = settlement.BidRefund(bid); err != nil {
			return err
		}
		return x.bids.Delete(kv, id)
	})
	x.mu.Unlock()
	if err != nil {
		return nil, err
	}

	x.log.Infow("bid_cancelled", "bid_id", id, "caller", caller, "instructions", len(refund))
	x.publish(ctx, events.Event{Type: events.BidCancelled, BidID: id, Owner: bid.Owner, TradeType: bid.TradeType(), Instructions: refund})
	return refund, nil
}

// ExecuteMatch validates the pair against live oracle state and settles it.
// Only the administrator may match; both orders are retired on success.
func (x *Exchange) ExecuteMatch(ctx context.Context, askID, bidID, caller string, funds []coin.Coin) ([]settlement.Instruction, error) {
	if caller != x.cfg.Admin {
		return nil, errs.New(errs.CodeUnauthorized, "only the admin may execute matches")
	}
	if len(funds) > 0 {
		return nil, errs.New(errs.CodeInvalidFunds, "funds should not be provided during match execution")
	}
	if askID == "" || bidID == "" {
		return nil, errs.New(errs.CodeInvalidRequest, "ask id and bid id must both be provided")
	}

	var ask order.AskOrder
	var out []settlement.Instruction
	x.mu.Lock()
	err := x.store.Update(func(kv storage.KV) error {
		var err error
		if ask, err = x.asks.Get(kv, askID); err != nil {
			return err
		}
		bid, err := x.bids.Get(kv, bidID)
		if err != nil {
			return err
		}
		if err := x.validator.ValidateMatch(ctx, ask, bid); err != nil {
			return err
		}
		out, err = x.engine.Execute(kv, ask, bid)
		return err
	})
	x.mu.Unlock()
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			x.log.Infow("match_rejected", "ask_id", askID, "bid_id", bidID, "messages", errs.MessagesOf(err))
		}
		return nil, err
	}

	x.log.Infow("match_executed", "ask_id", askID, "bid_id", bidID, "trade_type", ask.TradeType(), "instructions", len(out))
	x.publish(ctx, events.Event{Type: events.MatchExecuted, AskID: askID, BidID: bidID, TradeType: ask.TradeType(), Instructions: out})
	return out, nil
}

func (x *Exchange) GetAsk(_ context.Context, id string) (order.AskOrder, error) {
	var ask order.AskOrder
	err := x.view(func(kv storage.KV) error {
		var err error
		ask, err = x.asks.Get(kv, id)
		return err
	})
	return ask, err
}

func (x *Exchange) GetBid(_ context.Context, id string) (order.BidOrder, error) {
	var bid order.BidOrder
	err := x.view(func(kv storage.KV) error {
		var err error
		bid, err = x.bids.Get(kv, id)
		return err
	})
	return bid, err
}

func (x *Exchange) SearchAsks(_ context.Context, q search.Query) (search.Result[order.AskOrder], error) {
	var res search.Result[order.AskOrder]
	err := x.view(func(kv storage.KV) error {
		var err error
		res, err = x.askSearch.Search(kv, q)
		return err
	})
	return res, err
}

func (x *Exchange) SearchBids(_ context.Context, q search.Query) (search.Result[order.BidOrder], error) {
	var res search.Result[order.BidOrder]
	err := x.view(func(kv storage.KV) error {
		var err error
		res, err = x.bidSearch.Search(kv, q)
		return err
	})
	return res, err
}

func (x *Exchange) view(fn func(storage.KV) error) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.store.View(fn)
}

func (x *Exchange) authorize(caller, owner, kind, id string) error {
	if caller == owner || caller == x.cfg.Admin {
		return nil
	}
	x.log.Warnw("cancel_unauthorized", "kind", kind, "id", id, "caller", caller)
	return errs.New(errs.CodeUnauthorized, "only the owner or the admin may cancel "+kind+" "+id)
}

func cancelPreconditions(id string, funds []coin.Coin) error {
	if len(funds) > 0 {
		return errs.New(errs.CodeInvalidFunds, "cannot send funds when canceling order")
	}
	if id == "" {
		return errs.New(errs.CodeInvalidRequest, "an id must be provided when canceling an order")
	}
	return nil
}

// publish runs after commit. A failed publish never undoes the operation.
func (x *Exchange) publish(ctx context.Context, e events.Event) {
	e.Timestamp = x.clock.Now().UTC()
	if err := x.publisher.Publish(ctx, e); err != nil {
		x.log.Warnw("event_publish_failed", "type", e.Type, "key", e.Key(), "err", err)
	}
}
