// Package strategy turns qualifying trade prints into at most one order attempt
// per spread level. A trade at the ask with heavy bid-side depth follows the
// expected up-move with a buy; a trade at the bid with heavy ask-side depth
// follows the expected down-move with a sell. True immediate-or-cancel is not
// available, so each submission is chased by a best-effort cancel.
package strategy

import (
	"context"
	"log"
	"math"
	"sync/atomic"

	"github.com/google/uuid"

	"tick-core/internal/events"
	"tick-core/internal/monitor"
	"tick-core/internal/order"
	"tick-core/internal/position"
	"tick-core/internal/quote"
	"tick-core/pkg/broker"
)

// imbalanceRatio is how much larger the resting size on one side of the book
// must be before a trade print is treated as directional.
const imbalanceRatio = 1.8

// Signal is published on the bus whenever an order attempt is made.
type Signal struct {
	Side          broker.Side
	Symbol        string
	Qty           int64
	LimitPrice    float64
	ClientOrderID string
}

// Engine evaluates the level-change-following rule.
type Engine struct {
	Symbol    string
	Quantity  int64
	MaxShares int64
	DeltaTick float64 // one-tick price improvement used on sells

	Tracker *quote.Tracker
	Ledger  *position.Ledger
	Exec    *order.Executor
	Bus     *events.Bus
	Metrics *monitor.Metrics

	paused atomic.Bool
}

// OnQuote feeds the spread tracker. Malformed updates are counted and dropped.
func (e *Engine) OnQuote(q broker.Quote) {
	if e.Metrics != nil {
		e.Metrics.Quotes.Inc()
	}
	before := e.Tracker.Snapshot().LevelCount
	if err := e.Tracker.OnQuote(q); err != nil {
		log.Printf("strategy: dropping quote: %v", err)
		if e.Metrics != nil {
			e.Metrics.Malformed.WithLabelValues("quote").Inc()
		}
		return
	}
	if e.Metrics != nil && e.Tracker.Snapshot().LevelCount > before {
		e.Metrics.LevelChanges.Inc()
	}
}

// OnTrade evaluates a trade print against the current level. At most one
// order submission happens per invocation, and at most one per level.
func (e *Engine) OnTrade(ctx context.Context, t broker.Trade) {
	if e.Metrics != nil {
		e.Metrics.Trades.Inc()
	}
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Price <= 0 || t.Size <= 0 {
		log.Printf("strategy: dropping malformed trade price=%v size=%d", t.Price, t.Size)
		if e.Metrics != nil {
			e.Metrics.Malformed.WithLabelValues("trade").Inc()
		}
		return
	}
	if e.paused.Load() {
		return
	}
	if e.Tracker.Traded() {
		return
	}
	// Only trades large enough to be a meaningful signal are considered.
	if t.Size < e.Quantity {
		return
	}

	snap := e.Tracker.Snapshot()
	exp := e.Ledger.Snapshot()

	switch {
	case t.Price == snap.Ask &&
		float64(snap.BidSize) > float64(snap.AskSize)*imbalanceRatio &&
		exp.TotalShares+exp.PendingBuy < e.MaxShares-e.Quantity:
		e.attempt(ctx, broker.SideBuy, snap.Ask)

	case t.Price == snap.Bid &&
		float64(snap.AskSize) > float64(snap.BidSize)*imbalanceRatio &&
		exp.TotalShares-exp.PendingSell >= e.Quantity:
		// Sell one tick above the bid to encourage a fast fill.
		e.attempt(ctx, broker.SideSell, snap.Bid+e.DeltaTick)
	}
}

// attempt registers, submits and cancel-chases one order. The level's single
// trade opportunity is consumed before the submission result is known, so a
// failing broker cannot cause repeated attempts against the same level.
func (e *Engine) attempt(ctx context.Context, side broker.Side, limit float64) {
	id := uuid.NewString()
	e.Ledger.Register(id, side, e.Quantity)
	e.Tracker.MarkTraded()

	req := broker.OrderRequest{
		ClientOrderID: id,
		Symbol:        e.Symbol,
		Qty:           e.Quantity,
		Side:          side,
		Type:          broker.OrderTypeLimit,
		TimeInForce:   broker.TIFDay,
		LimitPrice:    limit,
	}

	res, err := e.Exec.Submit(ctx, req)
	if err != nil {
		// Already logged by the executor. The ledger entry stays; a later
		// cancel/reject event clears it if the order reached the broker.
		return
	}

	// Approximate IOC by immediately cancelling the unfilled remainder.
	e.Exec.Cancel(ctx, res.OrderID)
	e.Ledger.AddPending(side, e.Quantity)

	if e.Metrics != nil {
		e.Metrics.Signals.WithLabelValues(string(side)).Inc()
	}
	if e.Bus != nil {
		e.Bus.Publish(events.EventSignal, Signal{
			Side:          side,
			Symbol:        e.Symbol,
			Qty:           e.Quantity,
			LimitPrice:    limit,
			ClientOrderID: id,
		})
	}
	log.Printf("strategy: %s %s qty=%d at %.2f (level %d)", side, e.Symbol, e.Quantity, limit, e.Tracker.Snapshot().LevelCount)
}

// Pause stops new order attempts; in-flight reconciliation continues.
func (e *Engine) Pause() { e.paused.Store(true) }

// Resume re-enables order attempts.
func (e *Engine) Resume() { e.paused.Store(false) }

// Paused reports whether the engine is accepting signals.
func (e *Engine) Paused() bool { return e.paused.Load() }
