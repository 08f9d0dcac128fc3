// Package paper is an in-process broker simulation for dry-run sessions. It
// acks every order, then plays out a randomized lifecycle (fill, partial fill
// then cancel, or cancel) on its Updates channel, exercising the same
// reconciliation paths as the live stream.
package paper

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"tick-core/pkg/broker"
)

type outcome int

const (
	outcomeRest outcome = iota // rests until canceled
	outcomeFill
	outcomePartial
)

type simOrder struct {
	req      broker.OrderRequest
	result   outcome
	filled   int64
	terminal bool
}

// Gateway implements broker.Gateway with simulated executions.
type Gateway struct {
	// FillProb and PartialProb control the lifecycle dice roll; the
	// remainder of the probability mass rests until canceled.
	FillProb    float64
	PartialProb float64
	Latency     time.Duration

	mu      sync.Mutex
	rng     *rand.Rand
	orders  map[string]*simOrder // keyed by broker order id
	updates chan broker.OrderUpdate
}

// New builds a paper gateway. A zero seed derives one from the clock.
func New(seed int64) *Gateway {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Gateway{
		FillProb:    0.5,
		PartialProb: 0.25,
		Latency:     5 * time.Millisecond,
		rng:         rand.New(rand.NewSource(seed)),
		orders:      make(map[string]*simOrder),
		updates:     make(chan broker.OrderUpdate, 256),
	}
}

// Updates exposes the simulated trade_updates stream.
func (g *Gateway) Updates() <-chan broker.OrderUpdate {
	return g.updates
}

// SubmitOrder acks immediately and schedules the simulated execution.
func (g *Gateway) SubmitOrder(_ context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	if req.Qty <= 0 {
		return broker.OrderResult{}, errors.New("paper: non-positive qty")
	}

	g.mu.Lock()
	id := uuid.NewString()
	o := &simOrder{req: req}
	switch r := g.rng.Float64(); {
	case r < g.FillProb:
		o.result = outcomeFill
	case r < g.FillProb+g.PartialProb:
		o.result = outcomePartial
	default:
		o.result = outcomeRest
	}
	g.orders[id] = o
	g.mu.Unlock()

	go g.play(id)

	return broker.OrderResult{
		OrderID:       id,
		ClientOrderID: req.ClientOrderID,
		Status:        "accepted",
	}, nil
}

// CancelOrder cancels the unfilled remainder. Cancelling an already filled
// order is a no-op, matching broker behavior when a fill wins the race.
func (g *Gateway) CancelOrder(_ context.Context, orderID string) error {
	time.Sleep(g.Latency)

	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.orders[orderID]
	if !ok {
		return errors.New("paper: unknown order id")
	}
	if o.terminal {
		return nil
	}
	o.terminal = true
	g.emit(broker.OrderUpdate{
		Kind:          broker.UpdateCanceled,
		ClientOrderID: o.req.ClientOrderID,
		Symbol:        o.req.Symbol,
		Side:          o.req.Side,
		FilledQty:     o.filled,
		Price:         o.req.LimitPrice,
		Timestamp:     time.Now(),
	})
	return nil
}

// play emits the decided lifecycle after the simulated latency.
func (g *Gateway) play(orderID string) {
	time.Sleep(g.Latency)

	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.orders[orderID]
	if !ok || o.terminal {
		return
	}

	switch o.result {
	case outcomeFill:
		o.filled = o.req.Qty
		o.terminal = true
		g.emit(broker.OrderUpdate{
			Kind:          broker.UpdateFill,
			ClientOrderID: o.req.ClientOrderID,
			Symbol:        o.req.Symbol,
			Side:          o.req.Side,
			FilledQty:     o.filled,
			Price:         o.req.LimitPrice,
			Timestamp:     time.Now(),
		})
	case outcomePartial:
		o.filled = o.req.Qty / 2
		if o.filled == 0 {
			o.filled = 1
		}
		g.emit(broker.OrderUpdate{
			Kind:          broker.UpdatePartialFill,
			ClientOrderID: o.req.ClientOrderID,
			Symbol:        o.req.Symbol,
			Side:          o.req.Side,
			FilledQty:     o.filled,
			Price:         o.req.LimitPrice,
			Timestamp:     time.Now(),
		})
	case outcomeRest:
		// Stays open until the cancel chase arrives.
	}
}

// emit never blocks the simulation. Caller holds mu.
func (g *Gateway) emit(u broker.OrderUpdate) {
	select {
	case g.updates <- u:
	default:
	}
}
