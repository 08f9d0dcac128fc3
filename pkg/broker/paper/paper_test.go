package paper

import (
	"context"
	"testing"
	"time"

	"tick-core/pkg/broker"
)

func newFastGateway(fill, partial float64) *Gateway {
	g := New(1)
	g.FillProb = fill
	g.PartialProb = partial
	g.Latency = time.Millisecond
	return g
}

func awaitUpdate(t *testing.T, g *Gateway) broker.OrderUpdate {
	t.Helper()
	select {
	case u := <-g.Updates():
		return u
	case <-time.After(time.Second):
		t.Fatal("no update emitted")
		return broker.OrderUpdate{}
	}
}

func req(id string) broker.OrderRequest {
	return broker.OrderRequest{
		ClientOrderID: id,
		Symbol:        "SNAP",
		Qty:           100,
		Side:          broker.SideBuy,
		Type:          broker.OrderTypeLimit,
		TimeInForce:   broker.TIFDay,
		LimitPrice:    10.02,
	}
}

func TestGuaranteedFill(t *testing.T) {
	g := newFastGateway(1, 0)

	res, err := g.SubmitOrder(context.Background(), req("c1"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Status != "accepted" || res.OrderID == "" {
		t.Fatalf("ack: %+v", res)
	}

	u := awaitUpdate(t, g)
	if u.Kind != broker.UpdateFill || u.ClientOrderID != "c1" || u.FilledQty != 100 {
		t.Fatalf("update: %+v", u)
	}

	// A fill beats the cancel chase; the cancel is a quiet no-op.
	if err := g.CancelOrder(context.Background(), res.OrderID); err != nil {
		t.Fatalf("cancel after fill: %v", err)
	}
	select {
	case extra := <-g.Updates():
		t.Fatalf("cancel after fill emitted %+v", extra)
	default:
	}
}

func TestRestingOrderCancels(t *testing.T) {
	g := newFastGateway(0, 0)

	res, err := g.SubmitOrder(context.Background(), req("c1"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := g.CancelOrder(context.Background(), res.OrderID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	u := awaitUpdate(t, g)
	if u.Kind != broker.UpdateCanceled || u.FilledQty != 0 {
		t.Fatalf("update: %+v", u)
	}
}

func TestPartialThenCancelReportsProgress(t *testing.T) {
	g := newFastGateway(0, 1)

	res, err := g.SubmitOrder(context.Background(), req("c1"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	u := awaitUpdate(t, g)
	if u.Kind != broker.UpdatePartialFill || u.FilledQty != 50 {
		t.Fatalf("partial update: %+v", u)
	}

	if err := g.CancelOrder(context.Background(), res.OrderID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	u = awaitUpdate(t, g)
	if u.Kind != broker.UpdateCanceled || u.FilledQty != 50 {
		t.Fatalf("cancel update: %+v", u)
	}
}

func TestSubmitValidation(t *testing.T) {
	g := newFastGateway(1, 0)
	r := req("c1")
	r.Qty = 0
	if _, err := g.SubmitOrder(context.Background(), r); err == nil {
		t.Fatal("expected error for non-positive qty")
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	g := newFastGateway(1, 0)
	if err := g.CancelOrder(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown order id")
	}
}
