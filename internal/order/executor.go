// Package order sends order intents to the broker gateway, journals them, and
// emits bus events. Submission and cancellation failures are handled here:
// they are logged and surfaced to the caller, never allowed to crash an event
// path.
package order

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/time/rate"

	"tick-core/internal/events"
	"tick-core/internal/monitor"
	"tick-core/pkg/broker"
	"tick-core/pkg/journal"
)

// Executor wraps a broker gateway with journaling, metrics and a submit
// throttle. The throttle is a guard against runaway submission storms, not a
// scheduling device: when exhausted the order is rejected locally.
type Executor struct {
	Gateway broker.Gateway
	Bus     *events.Bus
	Journal *journal.DB      // optional
	Metrics *monitor.Metrics // optional

	limiter *rate.Limiter
}

// NewExecutor builds an executor. maxPerSec bounds submissions; zero disables
// the throttle.
func NewExecutor(gw broker.Gateway, bus *events.Bus, jrnl *journal.DB, metrics *monitor.Metrics, maxPerSec float64) *Executor {
	var lim *rate.Limiter
	if maxPerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(maxPerSec), int(maxPerSec)+1)
	}
	return &Executor{
		Gateway: gw,
		Bus:     bus,
		Journal: jrnl,
		Metrics: metrics,
		limiter: lim,
	}
}

// Submit sends the order to the gateway. The returned OrderResult carries the
// broker-assigned id needed for cancellation.
func (e *Executor) Submit(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	if e.Bus != nil {
		e.Bus.Publish(events.EventOrderSubmitted, req)
	}

	if e.limiter != nil && !e.limiter.Allow() {
		err := fmt.Errorf("submit throttle exceeded for %s", req.ClientOrderID)
		e.reject(ctx, req, err)
		return broker.OrderResult{}, err
	}

	res, err := e.Gateway.SubmitOrder(ctx, req)
	if err != nil {
		e.reject(ctx, req, err)
		return broker.OrderResult{}, err
	}

	if e.Metrics != nil {
		e.Metrics.Orders.WithLabelValues(string(req.Side), "accepted").Inc()
	}
	e.journalOrder(ctx, req, "accepted")
	log.Printf("executor: submitted %s %s qty=%d limit=%.2f id=%s",
		req.Side, req.Symbol, req.Qty, req.LimitPrice, req.ClientOrderID)
	return res, nil
}

// Cancel requests cancellation of the unfilled remainder. Best-effort: a
// failure is logged and swallowed; a fill may legitimately race the cancel and
// the reconciler remains the source of truth for final exposure.
func (e *Executor) Cancel(ctx context.Context, orderID string) {
	if err := e.Gateway.CancelOrder(ctx, orderID); err != nil {
		log.Printf("executor: cancel %s failed: %v", orderID, err)
	}
}

func (e *Executor) reject(ctx context.Context, req broker.OrderRequest, err error) {
	log.Printf("executor: submit %s %s qty=%d failed: %v", req.Side, req.Symbol, req.Qty, err)
	if e.Metrics != nil {
		e.Metrics.Orders.WithLabelValues(string(req.Side), "rejected").Inc()
	}
	if e.Bus != nil {
		e.Bus.Publish(events.EventOrderRejected, req)
	}
	e.journalOrder(ctx, req, "submit_failed")
}

func (e *Executor) journalOrder(ctx context.Context, req broker.OrderRequest, status string) {
	if e.Journal == nil {
		return
	}
	err := e.Journal.RecordOrder(ctx, journal.Order{
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          string(req.Side),
		Qty:           req.Qty,
		LimitPrice:    req.LimitPrice,
		Status:        status,
	})
	if err != nil {
		log.Printf("executor: journal order %s error: %v", req.ClientOrderID, err)
	}
}
