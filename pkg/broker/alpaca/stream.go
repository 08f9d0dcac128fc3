package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tick-core/pkg/broker"
)

// StreamClient manages the Alpaca event stream: per-symbol quote and trade
// channels plus the account-wide trade_updates channel.
type StreamClient struct {
	cfg    Config
	dialer *websocket.Dialer
}

// NewStreamClient builds a websocket stream client.
func NewStreamClient(cfg Config) *StreamClient {
	if cfg.StreamURL == "" {
		cfg.StreamURL = "wss://api.alpaca.markets/stream"
		if len(cfg.KeyID) >= 2 && cfg.KeyID[:2] == "PK" {
			cfg.StreamURL = "wss://paper-api.alpaca.markets/stream"
		}
	}
	return &StreamClient{cfg: cfg, dialer: websocket.DefaultDialer}
}

type streamRequest struct {
	Action string `json:"action"`
	Data   any    `json:"data"`
}

type streamMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// Subscribe authenticates, listens to Q.<symbol>, T.<symbol> and
// trade_updates, and pushes decoded broker.Quote / broker.Trade /
// broker.OrderUpdate values into the returned channel. Malformed messages are
// logged and dropped; the channel closes when the connection dies or stop is
// called.
func (c *StreamClient) Subscribe(ctx context.Context, symbol string) (<-chan any, func(), error) {
	symbol = strings.ToUpper(symbol)

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.StreamURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial alpaca stream: %w", err)
	}

	auth := streamRequest{Action: "authenticate", Data: map[string]string{
		"key_id":     c.cfg.KeyID,
		"secret_key": c.cfg.SecretKey,
	}}
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("authenticate alpaca stream: %w", err)
	}

	listen := streamRequest{Action: "listen", Data: map[string][]string{
		"streams": {"trade_updates", "Q." + symbol, "T." + symbol},
	}}
	if err := conn.WriteJSON(listen); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("listen alpaca stream: %w", err)
	}

	out := make(chan any, 256)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
			close(out)
		})
	}

	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
					strings.Contains(err.Error(), "use of closed network connection") {
					return
				}
				log.Printf("alpaca stream read error: %v", err)
				return
			}

			ev, err := decodeStreamMessage(msg, symbol)
			if err != nil {
				log.Printf("alpaca stream: dropping message: %v", err)
				continue
			}
			if ev == nil {
				continue // control/ack message
			}
			select {
			case out <- ev:
			default:
				log.Printf("alpaca stream: consumer slow, dropping %T", ev)
			}
		}
	}()

	return out, stop, nil
}

// Wire-level payloads. Numeric fields arrive inconsistently typed (float for
// market data, strings inside trade_updates), hence json.Number.
type quoteData struct {
	BidPrice  float64 `json:"bidprice"`
	AskPrice  float64 `json:"askprice"`
	BidSize   int64   `json:"bidsize"`
	AskSize   int64   `json:"asksize"`
	Timestamp int64   `json:"timestamp"` // epoch nanoseconds
}

type tradeData struct {
	Price     float64 `json:"price"`
	Size      int64   `json:"size"`
	Timestamp int64   `json:"timestamp"`
}

type tradeUpdateData struct {
	Event string      `json:"event"`
	Price json.Number `json:"price"`
	Order struct {
		ClientOrderID string      `json:"client_order_id"`
		Symbol        string      `json:"symbol"`
		Side          string      `json:"side"`
		FilledQty     json.Number `json:"filled_qty"`
	} `json:"order"`
}

func decodeStreamMessage(msg []byte, symbol string) (any, error) {
	var sm streamMessage
	if err := json.Unmarshal(msg, &sm); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}

	switch sm.Stream {
	case "Q." + symbol:
		var q quoteData
		if err := json.Unmarshal(sm.Data, &q); err != nil {
			return nil, fmt.Errorf("parse quote: %w", err)
		}
		return broker.Quote{
			Symbol:    symbol,
			BidPrice:  q.BidPrice,
			AskPrice:  q.AskPrice,
			BidSize:   q.BidSize,
			AskSize:   q.AskSize,
			Timestamp: time.Unix(0, q.Timestamp),
		}, nil

	case "T." + symbol:
		var t tradeData
		if err := json.Unmarshal(sm.Data, &t); err != nil {
			return nil, fmt.Errorf("parse trade: %w", err)
		}
		return broker.Trade{
			Symbol:    symbol,
			Price:     t.Price,
			Size:      t.Size,
			Timestamp: time.Unix(0, t.Timestamp),
		}, nil

	case "trade_updates":
		var tu tradeUpdateData
		if err := json.Unmarshal(sm.Data, &tu); err != nil {
			return nil, fmt.Errorf("parse trade update: %w", err)
		}
		kind, ok := mapUpdateKind(tu.Event)
		if !ok {
			return nil, nil // heartbeat or status we don't track
		}
		filled, err := parseQty(tu.Order.FilledQty)
		if err != nil {
			return nil, fmt.Errorf("parse filled_qty %q: %w", tu.Order.FilledQty, err)
		}
		price, _ := tu.Price.Float64()
		return broker.OrderUpdate{
			Kind:          kind,
			ClientOrderID: tu.Order.ClientOrderID,
			Symbol:        tu.Order.Symbol,
			Side:          broker.Side(strings.ToLower(tu.Order.Side)),
			FilledQty:     filled,
			Price:         price,
			Timestamp:     time.Now(),
		}, nil
	}

	return nil, nil
}

func mapUpdateKind(event string) (broker.UpdateKind, bool) {
	switch event {
	case "fill":
		return broker.UpdateFill, true
	case "partial_fill":
		return broker.UpdatePartialFill, true
	case "canceled":
		return broker.UpdateCanceled, true
	case "rejected":
		return broker.UpdateRejected, true
	case "new":
		return broker.UpdateNew, true
	}
	return "", false
}

// parseQty accepts both "100" and "100.0" style quantities.
func parseQty(n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
