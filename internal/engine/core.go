// Package engine wires the event bus to the decision components: one consumer
// goroutine per event kind, each dispatching into the signal engine or the
// reconciler. No ordering is assumed across the three event sources; the
// exposure ledger is the only state they share and it serializes internally.
package engine

import (
	"context"
	"log"

	"tick-core/internal/events"
	"tick-core/internal/monitor"
	"tick-core/internal/reconcile"
	"tick-core/internal/strategy"
	"tick-core/pkg/broker"
)

// Core owns the consumer goroutines for one instrument.
type Core struct {
	Symbol     string
	Bus        *events.Bus
	Signal     *strategy.Engine
	Reconciler *reconcile.Reconciler
	Metrics    *monitor.Metrics

	Meta Meta
}

// Meta describes runtime facts surfaced by the status API.
type Meta struct {
	DryRun  bool
	Venue   string
	Version string
}

// Start subscribes the consumers and returns. Consumers exit when ctx is done.
func (c *Core) Start(ctx context.Context) {
	quoteCh, unsubQuotes := c.Bus.Subscribe(events.EventQuote, 1024)
	tradeCh, unsubTrades := c.Bus.Subscribe(events.EventTrade, 1024)
	updateCh, unsubUpdates := c.Bus.Subscribe(events.EventOrderUpdate, 256)

	go func() {
		defer unsubQuotes()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-quoteCh:
				q, ok := ev.(broker.Quote)
				if !ok {
					log.Printf("engine: unexpected quote payload %T", ev)
					continue
				}
				c.Signal.OnQuote(q)
			}
		}
	}()

	go func() {
		defer unsubTrades()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-tradeCh:
				t, ok := ev.(broker.Trade)
				if !ok {
					log.Printf("engine: unexpected trade payload %T", ev)
					continue
				}
				c.Signal.OnTrade(ctx, t)
			}
		}
	}()

	go func() {
		defer unsubUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-updateCh:
				u, ok := ev.(broker.OrderUpdate)
				if !ok {
					log.Printf("engine: unexpected order update payload %T", ev)
					continue
				}
				c.Reconciler.OnOrderUpdate(ctx, u)
			}
		}
	}()

	log.Printf("engine started for %s (dry_run=%v venue=%s)", c.Symbol, c.Meta.DryRun, c.Meta.Venue)
}

// PumpOrderUpdates republishes a gateway-local update stream (e.g. the paper
// broker's) onto the bus so dry-run sessions exercise the reconciler.
func (c *Core) PumpOrderUpdates(ctx context.Context, updates <-chan broker.OrderUpdate) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				c.Bus.Publish(events.EventOrderUpdate, u)
			}
		}
	}()
}
