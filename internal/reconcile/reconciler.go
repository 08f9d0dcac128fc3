// Package reconcile applies asynchronous order lifecycle events to the
// exposure ledger. It is the single source of truth for final exposure: fills
// may race the cancel-chase on the submission path, and whatever the broker
// reports here wins.
package reconcile

import (
	"context"
	"log"

	"github.com/google/uuid"

	"tick-core/internal/monitor"
	"tick-core/internal/order"
	"tick-core/internal/position"
	"tick-core/pkg/broker"
	"tick-core/pkg/journal"
)

// Reconciler consumes order-status events and updates the ledger.
type Reconciler struct {
	Symbol    string
	DeltaTick float64 // price improvement for the compensating sell

	Ledger  *position.Ledger
	Exec    *order.Executor
	Journal *journal.DB      // optional
	Metrics *monitor.Metrics // optional
}

// OnOrderUpdate dispatches one lifecycle event. Events for unknown orders are
// logged and ignored; nothing here propagates an error into the dispatch loop.
func (r *Reconciler) OnOrderUpdate(ctx context.Context, u broker.OrderUpdate) {
	if r.Metrics != nil {
		r.Metrics.OrderUpdates.WithLabelValues(string(u.Kind)).Inc()
	}
	r.journalEvent(ctx, u)

	switch u.Kind {
	case broker.UpdateFill:
		r.onFill(ctx, u)
	case broker.UpdatePartialFill:
		if err := r.Ledger.ApplyPartialFill(u.ClientOrderID, u.Side, u.FilledQty); err != nil {
			log.Printf("reconcile: partial_fill: %v", err)
		}
	case broker.UpdateCanceled, broker.UpdateRejected:
		if err := r.Ledger.RemovePending(u.ClientOrderID, u.Side); err != nil {
			log.Printf("reconcile: %s: %v", u.Kind, err)
		}
	case broker.UpdateNew:
		// Broker ack only; nothing to account.
	default:
		log.Printf("reconcile: ignoring unknown event kind %q for %s", u.Kind, u.ClientOrderID)
	}

	r.syncGauges()
}

func (r *Reconciler) onFill(ctx context.Context, u broker.OrderUpdate) {
	delta, err := r.Ledger.ApplyFill(u.ClientOrderID, u.Side, u.FilledQty)
	if err != nil {
		log.Printf("reconcile: fill: %v", err)
		return
	}
	log.Printf("reconcile: %s order %s filled qty=%d at %.2f (delta %d)",
		u.Side, u.ClientOrderID, u.FilledQty, u.Price, delta)

	if u.Side != broker.SideBuy {
		return
	}
	// A completed buy is always unwound with an offsetting sell attempt, one
	// tick above the fill price.
	r.compensatingSell(ctx, u)
}

func (r *Reconciler) compensatingSell(ctx context.Context, u broker.OrderUpdate) {
	id := uuid.NewString()
	qty := u.FilledQty
	limit := u.Price + r.DeltaTick

	r.Ledger.Register(id, broker.SideSell, qty)
	_, err := r.Exec.Submit(ctx, broker.OrderRequest{
		ClientOrderID: id,
		Symbol:        r.Symbol,
		Qty:           qty,
		Side:          broker.SideSell,
		Type:          broker.OrderTypeLimit,
		TimeInForce:   broker.TIFDay,
		LimitPrice:    limit,
	})
	if err != nil {
		// Entry stays registered; a later cancel/reject clears it if the
		// order reached the broker.
		return
	}
	r.Ledger.AddPending(broker.SideSell, qty)
	log.Printf("reconcile: compensating sell %s qty=%d at %.2f", id, qty, limit)
}

func (r *Reconciler) journalEvent(ctx context.Context, u broker.OrderUpdate) {
	if r.Journal == nil {
		return
	}
	err := r.Journal.RecordEvent(ctx, journal.OrderEvent{
		ClientOrderID: u.ClientOrderID,
		Kind:          string(u.Kind),
		FilledQty:     u.FilledQty,
		Price:         u.Price,
	})
	if err != nil {
		log.Printf("reconcile: journal event for %s error: %v", u.ClientOrderID, err)
	}
}

func (r *Reconciler) syncGauges() {
	if r.Metrics == nil {
		return
	}
	exp := r.Ledger.Snapshot()
	r.Metrics.TotalShares.Set(float64(exp.TotalShares))
	r.Metrics.PendingBuy.Set(float64(exp.PendingBuy))
	r.Metrics.PendingSell.Set(float64(exp.PendingSell))
	r.Metrics.OpenOrders.Set(float64(exp.OpenOrders))
}
