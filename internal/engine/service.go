package engine

import (
	"time"

	"tick-core/internal/position"
	"tick-core/internal/quote"
)

// Status is the runtime view served by the API layer.
type Status struct {
	Symbol     string            `json:"symbol"`
	Paused     bool              `json:"paused"`
	DryRun     bool              `json:"dry_run"`
	Venue      string            `json:"venue"`
	Version    string            `json:"version"`
	ServerTime time.Time         `json:"server_time"`
	Exposure   position.Exposure `json:"exposure"`
	LevelCount int64             `json:"level_count"`
}

// Status reports the engine's current state.
func (c *Core) Status() Status {
	snap := c.Signal.Tracker.Snapshot()
	return Status{
		Symbol:     c.Symbol,
		Paused:     c.Signal.Paused(),
		DryRun:     c.Meta.DryRun,
		Venue:      c.Meta.Venue,
		Version:    c.Meta.Version,
		ServerTime: time.Now(),
		Exposure:   c.Signal.Ledger.Snapshot(),
		LevelCount: snap.LevelCount,
	}
}

// Exposure returns the current ledger counters.
func (c *Core) Exposure() position.Exposure {
	return c.Signal.Ledger.Snapshot()
}

// Spread returns the current spread tracker state.
func (c *Core) Spread() quote.State {
	return c.Signal.Tracker.Snapshot()
}

// Pause stops new order attempts; reconciliation of in-flight orders continues.
func (c *Core) Pause() { c.Signal.Pause() }

// Resume re-enables order attempts.
func (c *Core) Resume() { c.Signal.Resume() }
