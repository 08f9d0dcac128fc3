// Package market bridges the broker event stream onto the internal bus. Each
// event kind lands on its own topic, so quote, trade and order-update
// consumers run independently with no cross-topic ordering guarantees.
package market

import (
	"context"
	"log"

	"tick-core/internal/events"
	"tick-core/pkg/broker"
	"tick-core/pkg/broker/alpaca"
)

// Feed streams market and account events from Alpaca onto the bus.
type Feed struct {
	Stream *alpaca.StreamClient
	Bus    *events.Bus
	Symbol string
}

// Start begins streaming. It logs and returns on connection failure instead
// of crashing the caller; the engine keeps serving whatever it already has.
func (f *Feed) Start(ctx context.Context) {
	if f.Bus == nil || f.Stream == nil {
		log.Println("market feed not fully configured; skipping start")
		return
	}

	ch, stop, err := f.Stream.Subscribe(ctx, f.Symbol)
	if err != nil {
		log.Printf("market feed: subscribe %s error: %v", f.Symbol, err)
		return
	}

	go func() {
		defer stop()
		for ev := range ch {
			switch v := ev.(type) {
			case broker.Quote:
				f.Bus.Publish(events.EventQuote, v)
			case broker.Trade:
				f.Bus.Publish(events.EventTrade, v)
			case broker.OrderUpdate:
				f.Bus.Publish(events.EventOrderUpdate, v)
			default:
				log.Printf("market feed: unexpected event %T", ev)
			}
		}
		log.Printf("market feed: stream for %s closed", f.Symbol)
	}()
}
