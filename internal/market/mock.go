package market

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"

	"tick-core/internal/events"
	"tick-core/pkg/broker"
)

// MockFeed generates a synthetic one-tick-wide book for local development:
// the level random-walks a penny at a time and prints hit the bid or the ask
// with occasionally imbalanced resting sizes, so level changes and signals
// both occur without a live connection.
type MockFeed struct {
	Bus        *events.Bus
	Symbol     string
	StartPrice float64
	Tick       float64
	TradeSize  int64
	Interval   time.Duration

	rng *rand.Rand
}

// Start begins publishing synthetic quotes and trades until ctx is done.
func (m *MockFeed) Start(ctx context.Context) {
	if m.Bus == nil {
		log.Println("mock feed: bus not set")
		return
	}
	if m.StartPrice == 0 {
		m.StartPrice = 100.0
	}
	if m.Tick == 0 {
		m.Tick = 0.01
	}
	if m.TradeSize == 0 {
		m.TradeSize = 100
	}
	if m.Interval == 0 {
		m.Interval = 250 * time.Millisecond
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	go func() {
		t := time.NewTicker(m.Interval)
		defer t.Stop()

		bid := math.Round(m.StartPrice*100) / 100
		log.Printf("mock feed started for %s at %.2f", m.Symbol, bid)

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				// Shift the level most of the time; repeats exercise the
				// no-change path.
				switch m.rng.Intn(10) {
				case 0: // hold the level
				case 1, 2, 3: // step down
					bid = math.Round((bid-m.Tick)*100) / 100
				default: // step up
					bid = math.Round((bid+m.Tick)*100) / 100
				}
				ask := math.Round((bid+m.Tick)*100) / 100

				bidSize, askSize := m.sizes()
				m.Bus.Publish(events.EventQuote, broker.Quote{
					Symbol:    m.Symbol,
					BidPrice:  bid,
					AskPrice:  ask,
					BidSize:   bidSize,
					AskSize:   askSize,
					Timestamp: now,
				})

				// Roughly half the ticks also print a trade at one side.
				if m.rng.Intn(2) == 0 {
					price := ask
					if m.rng.Intn(2) == 0 {
						price = bid
					}
					m.Bus.Publish(events.EventTrade, broker.Trade{
						Symbol:    m.Symbol,
						Price:     price,
						Size:      m.TradeSize + int64(m.rng.Intn(100)),
						Timestamp: now,
					})
				}
			}
		}
	}()
}

// sizes returns resting sizes, skewed hard to one side a third of the time so
// the imbalance rule has something to react to.
func (m *MockFeed) sizes() (int64, int64) {
	base := int64(50 + m.rng.Intn(150))
	switch m.rng.Intn(3) {
	case 0:
		return base * 3, base
	case 1:
		return base, base * 3
	default:
		return base, base + int64(m.rng.Intn(20))
	}
}
