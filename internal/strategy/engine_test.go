package strategy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tick-core/internal/order"
	"tick-core/internal/position"
	"tick-core/internal/quote"
	"tick-core/pkg/broker"
)

type fakeGateway struct {
	mu        sync.Mutex
	submits   []broker.OrderRequest
	cancels   []string
	submitErr error
}

func (g *fakeGateway) SubmitOrder(_ context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return broker.OrderResult{}, g.submitErr
	}
	g.submits = append(g.submits, req)
	return broker.OrderResult{
		OrderID:       "broker-" + req.ClientOrderID,
		ClientOrderID: req.ClientOrderID,
		Status:        "accepted",
	}, nil
}

func (g *fakeGateway) CancelOrder(_ context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels = append(g.cancels, orderID)
	return nil
}

func (g *fakeGateway) submitted() []broker.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]broker.OrderRequest(nil), g.submits...)
}

func newTestEngine(gw *fakeGateway, maxShares int64) *Engine {
	return &Engine{
		Symbol:    "SNAP",
		Quantity:  100,
		MaxShares: maxShares,
		DeltaTick: 0.01,
		Tracker:   quote.NewTracker(0.01, nil),
		Ledger:    position.NewLedger(),
		Exec:      order.NewExecutor(gw, nil, nil, nil, 0),
	}
}

func q(bid, ask float64, bidSize, askSize int64) broker.Quote {
	return broker.Quote{
		Symbol:    "SNAP",
		BidPrice:  bid,
		AskPrice:  ask,
		BidSize:   bidSize,
		AskSize:   askSize,
		Timestamp: time.Now(),
	}
}

// armLevel walks the book through two one-tick levels so the tracker is armed
// at 10.01/10.02 with the given sizes.
func armLevel(e *Engine, bidSize, askSize int64) {
	e.OnQuote(q(10.00, 10.01, bidSize, askSize))
	e.OnQuote(q(10.01, 10.02, bidSize, askSize))
}

func TestBuyOnAskTradeWithBidImbalance(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, 500)
	armLevel(e, 500, 100)

	e.OnTrade(context.Background(), broker.Trade{Symbol: "SNAP", Price: 10.02, Size: 200})

	subs := gw.submitted()
	if len(subs) != 1 {
		t.Fatalf("submits=%d, expected 1", len(subs))
	}
	if subs[0].Side != broker.SideBuy || subs[0].Qty != 100 || subs[0].LimitPrice != 10.02 {
		t.Fatalf("unexpected order: %+v", subs[0])
	}
	if len(gw.cancels) != 1 || gw.cancels[0] != "broker-"+subs[0].ClientOrderID {
		t.Fatalf("expected immediate cancel chase, got %v", gw.cancels)
	}
	exp := e.Ledger.Snapshot()
	if exp.PendingBuy != 100 || exp.OpenOrders != 1 {
		t.Fatalf("exposure after attempt: %+v", exp)
	}
	if !e.Tracker.Traded() {
		t.Fatal("level not marked traded after attempt")
	}
}

func TestOneAttemptPerLevel(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, 1000)
	armLevel(e, 500, 100)

	trade := broker.Trade{Symbol: "SNAP", Price: 10.02, Size: 200}
	e.OnTrade(context.Background(), trade)
	e.OnTrade(context.Background(), trade)
	e.OnTrade(context.Background(), trade)

	if n := len(gw.submitted()); n != 1 {
		t.Fatalf("submits=%d, expected 1 per level", n)
	}

	// The next level transition re-arms a single new attempt.
	e.OnQuote(q(10.02, 10.03, 500, 100))
	e.OnTrade(context.Background(), broker.Trade{Symbol: "SNAP", Price: 10.03, Size: 200})
	if n := len(gw.submitted()); n != 2 {
		t.Fatalf("submits after rearm=%d, expected 2", n)
	}
}

func TestBuyBlockedAtPositionCap(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, 200)
	armLevel(e, 500, 100)

	// 100 already long: 100 is not < maxShares-quantity (100), so no buy.
	e.Ledger.Register("seed", broker.SideBuy, 100)
	e.Ledger.AddPending(broker.SideBuy, 100)

	e.OnTrade(context.Background(), broker.Trade{Symbol: "SNAP", Price: 10.02, Size: 200})
	if n := len(gw.submitted()); n != 0 {
		t.Fatalf("submits=%d, expected buy suppressed at cap", n)
	}
	if !e.Tracker.Traded() {
		// A suppressed signal must not consume the level.
		return
	}
	t.Fatal("suppressed buy consumed the level")
}

func TestSellRequiresInventory(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, 500)
	armLevel(e, 100, 500)

	sellTrade := broker.Trade{Symbol: "SNAP", Price: 10.01, Size: 200}

	e.OnTrade(context.Background(), sellTrade)
	if n := len(gw.submitted()); n != 0 {
		t.Fatalf("submits=%d, expected no sell with zero inventory", n)
	}

	// Establish 100 long, then the same print qualifies.
	e.Ledger.Register("seed", broker.SideBuy, 100)
	e.Ledger.AddPending(broker.SideBuy, 100)
	if _, err := e.Ledger.ApplyFill("seed", broker.SideBuy, 100); err != nil {
		t.Fatalf("seed fill: %v", err)
	}

	e.OnTrade(context.Background(), sellTrade)
	subs := gw.submitted()
	if len(subs) != 1 || subs[0].Side != broker.SideSell {
		t.Fatalf("expected one sell, got %+v", subs)
	}
	// One tick above the bid.
	if subs[0].LimitPrice != 10.01+0.01 {
		t.Fatalf("sell limit=%v, expected bid+tick", subs[0].LimitPrice)
	}
}

func TestSmallTradeIgnored(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, 500)
	armLevel(e, 500, 100)

	e.OnTrade(context.Background(), broker.Trade{Symbol: "SNAP", Price: 10.02, Size: 99})
	if n := len(gw.submitted()); n != 0 {
		t.Fatalf("submits=%d, expected small print ignored", n)
	}
	if !e.Tracker.Traded() {
		return
	}
	t.Fatal("ignored print consumed the level")
}

func TestMalformedTradeIgnored(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, 500)
	armLevel(e, 500, 100)

	for _, tr := range []broker.Trade{
		{Symbol: "SNAP", Price: -1, Size: 200},
		{Symbol: "SNAP", Price: 10.02, Size: 0},
	} {
		e.OnTrade(context.Background(), tr)
	}
	if n := len(gw.submitted()); n != 0 {
		t.Fatalf("submits=%d, expected malformed prints dropped", n)
	}
}

func TestPauseSuppressesAttempts(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, 500)
	armLevel(e, 500, 100)

	e.Pause()
	trade := broker.Trade{Symbol: "SNAP", Price: 10.02, Size: 200}
	e.OnTrade(context.Background(), trade)
	if n := len(gw.submitted()); n != 0 {
		t.Fatalf("submits=%d while paused, expected 0", n)
	}

	e.Resume()
	e.OnTrade(context.Background(), trade)
	if n := len(gw.submitted()); n != 1 {
		t.Fatalf("submits=%d after resume, expected 1", n)
	}
}

func TestFailedSubmitConsumesLevel(t *testing.T) {
	gw := &fakeGateway{submitErr: errors.New("gateway down")}
	e := newTestEngine(gw, 500)
	armLevel(e, 500, 100)

	e.OnTrade(context.Background(), broker.Trade{Symbol: "SNAP", Price: 10.02, Size: 200})

	if !e.Tracker.Traded() {
		t.Fatal("failed attempt must still consume the level")
	}
	exp := e.Ledger.Snapshot()
	// No pending until the broker acknowledges; the registered entry remains.
	if exp.PendingBuy != 0 || exp.OpenOrders != 1 {
		t.Fatalf("exposure after failed submit: %+v", exp)
	}

	// The failure does not wedge the strategy past the next level change.
	gw.mu.Lock()
	gw.submitErr = nil
	gw.mu.Unlock()
	e.OnQuote(q(10.02, 10.03, 500, 100))
	e.OnTrade(context.Background(), broker.Trade{Symbol: "SNAP", Price: 10.03, Size: 200})
	if n := len(gw.submitted()); n != 1 {
		t.Fatalf("submits=%d after recovery, expected 1", n)
	}
}
