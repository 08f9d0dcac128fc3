// Package quote tracks the bid/ask spread for one instrument and detects
// level changes: a move of exactly one configured tick in both bid and ask.
// Only one order attempt is allowed per level; larger moves could indicate
// some newsworthy event the strategy is not tuned to trade, so they do not
// count as levels.
package quote

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"tick-core/internal/events"
	"tick-core/pkg/broker"
)

// ErrMalformedQuote is returned when a quote update carries unusable fields.
var ErrMalformedQuote = errors.New("malformed quote update")

// State is a point-in-time snapshot of the tracker, safe to read off-thread.
type State struct {
	PrevBid    float64
	PrevAsk    float64
	PrevSpread float64
	Bid        float64
	Ask        float64
	Spread     float64
	BidSize    int64
	AskSize    int64
	Traded     bool
	LevelCount int64
	ChangedAt  time.Time
}

// LevelChange is the diagnostic record emitted on a recognized level change.
type LevelChange struct {
	PrevBid    float64
	PrevAsk    float64
	PrevSpread float64
	Bid        float64
	Ask        float64
	Spread     float64
	BidSize    int64
	AskSize    int64
	LevelCount int64
	Timestamp  time.Time
}

// Tracker maintains the current and previous level for one symbol. The quote
// feed goroutine writes; the trade path reads through Snapshot/MarkTraded, so
// all fields live behind one RWMutex.
type Tracker struct {
	mu         sync.RWMutex
	deltaPrice float64
	bus        *events.Bus

	prevBid    float64
	prevAsk    float64
	prevSpread float64
	bid        float64
	ask        float64
	spread     float64
	bidSize    int64
	askSize    int64
	traded     bool
	levelCount int64
	changedAt  time.Time
}

// NewTracker builds a tracker with the qualifying one-tick delta. The bus is
// optional; when set, level changes are published on events.EventLevelChange.
func NewTracker(deltaPrice float64, bus *events.Bus) *Tracker {
	return &Tracker{
		deltaPrice: deltaPrice,
		bus:        bus,
		// Start as traded so nothing fires until the first genuine level
		// transition is observed.
		traded:     true,
		levelCount: 1,
	}
}

// OnQuote applies a top-of-book update. Sizes always update; bid/ask only
// shift on a recognized level change. Returns ErrMalformedQuote without
// mutating state when the update is unusable.
func (t *Tracker) OnQuote(q broker.Quote) error {
	if err := validate(q); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.bidSize = q.BidSize
	t.askSize = q.AskSize

	// A level change needs both sides to move and the new spread to be
	// exactly one tick wide.
	if t.bid == q.BidPrice || t.ask == q.AskPrice || round2(q.AskPrice-q.BidPrice) != t.deltaPrice {
		return nil
	}

	t.prevBid = t.bid
	t.prevAsk = t.ask
	t.bid = q.BidPrice
	t.ask = q.AskPrice
	t.changedAt = q.Timestamp
	t.prevSpread = round3(t.prevAsk - t.prevBid)
	t.spread = round3(t.ask - t.bid)

	// Moving from one valid one-tick level to another re-arms the strategy.
	// The very first level observed has no prior spread and does not.
	if t.prevSpread == t.deltaPrice {
		t.traded = false
		t.levelCount++
	}

	lc := LevelChange{
		PrevBid:    t.prevBid,
		PrevAsk:    t.prevAsk,
		PrevSpread: t.prevSpread,
		Bid:        t.bid,
		Ask:        t.ask,
		Spread:     t.spread,
		BidSize:    t.bidSize,
		AskSize:    t.askSize,
		LevelCount: t.levelCount,
		Timestamp:  q.Timestamp,
	}
	log.Printf("level change: prev %.2f/%.2f (%.3f) -> %.2f/%.2f (%.3f) sizes %d/%d",
		lc.PrevBid, lc.PrevAsk, lc.PrevSpread, lc.Bid, lc.Ask, lc.Spread, lc.BidSize, lc.AskSize)
	if t.bus != nil {
		t.bus.Publish(events.EventLevelChange, lc)
	}
	return nil
}

// Snapshot returns a consistent copy of the tracker state.
func (t *Tracker) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return State{
		PrevBid:    t.prevBid,
		PrevAsk:    t.prevAsk,
		PrevSpread: t.prevSpread,
		Bid:        t.bid,
		Ask:        t.ask,
		Spread:     t.spread,
		BidSize:    t.bidSize,
		AskSize:    t.askSize,
		Traded:     t.traded,
		LevelCount: t.levelCount,
		ChangedAt:  t.changedAt,
	}
}

// Traded reports whether the current level has already been traded against.
func (t *Tracker) Traded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.traded
}

// MarkTraded consumes the current level's single trade opportunity. It is set
// whether or not the order attempt succeeds, so a persistently failing
// submission cannot retry until the next level change.
func (t *Tracker) MarkTraded() {
	t.mu.Lock()
	t.traded = true
	t.mu.Unlock()
}

func validate(q broker.Quote) error {
	for _, p := range []float64{q.BidPrice, q.AskPrice} {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return fmt.Errorf("%w: bid=%v ask=%v", ErrMalformedQuote, q.BidPrice, q.AskPrice)
		}
	}
	if q.BidSize < 0 || q.AskSize < 0 {
		return fmt.Errorf("%w: bidSize=%d askSize=%d", ErrMalformedQuote, q.BidSize, q.AskSize)
	}
	return nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
