package events

// Event enumerates high-level topics inside the engine.
type Event string

const (
	EventQuote          Event = "quote"
	EventTrade          Event = "trade"
	EventOrderUpdate    Event = "order_update"
	EventLevelChange    Event = "level_change"
	EventSignal         Event = "signal"
	EventOrderSubmitted Event = "order.submitted"
	EventOrderRejected  Event = "order.rejected"
)
