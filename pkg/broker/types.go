package broker

import "time"

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType denotes basic order types. The engine only submits limit orders,
// but the transport understands the full set.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeStop   OrderType = "stop"
)

// TimeInForce captures TIF semantics.
type TimeInForce string

const (
	TIFDay TimeInForce = "day"
	TIFGTC TimeInForce = "gtc"
	TIFIOC TimeInForce = "ioc"
	TIFFOK TimeInForce = "fok"
)

// UpdateKind normalizes order lifecycle events into a small set.
type UpdateKind string

const (
	UpdateFill        UpdateKind = "fill"
	UpdatePartialFill UpdateKind = "partial_fill"
	UpdateCanceled    UpdateKind = "canceled"
	UpdateRejected    UpdateKind = "rejected"
	UpdateNew         UpdateKind = "new"
)

// OrderRequest captures an order intent to be sent to the broker.
type OrderRequest struct {
	ClientOrderID string
	Symbol        string
	Qty           int64
	Side          Side
	Type          OrderType
	TimeInForce   TimeInForce
	LimitPrice    float64
}

// OrderResult returns the broker ack.
type OrderResult struct {
	OrderID       string // broker-assigned id, used for cancellation
	ClientOrderID string
	Status        string
}

// Quote is a top-of-book update for one symbol.
type Quote struct {
	Symbol    string
	BidPrice  float64
	AskPrice  float64
	BidSize   int64
	AskSize   int64
	Timestamp time.Time
}

// Trade is a single print on the tape.
type Trade struct {
	Symbol    string
	Price     float64
	Size      int64
	Timestamp time.Time
}

// OrderUpdate is a lifecycle event for an order previously submitted
// under ClientOrderID.
type OrderUpdate struct {
	Kind          UpdateKind
	ClientOrderID string
	Symbol        string
	Side          Side
	FilledQty     int64 // cumulative
	Price         float64
	Timestamp     time.Time
}
