// Package monitor exposes Prometheus metrics for the engine:
//   - tick_quotes_total / tick_trades_total       – market events consumed
//   - tick_malformed_events_total{kind}           – rejected inputs
//   - tick_level_changes_total                    – recognized level changes
//   - tick_signals_total{side}                    – trading signals produced
//   - tick_orders_total{side,status}              – order submissions by outcome
//   - tick_order_updates_total{kind}              – lifecycle events reconciled
//   - tick_total_shares / tick_pending_*_shares   – exposure gauges
//
// Everything is registered on a dedicated registry served at /metrics by the
// API server.
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the engine's Prometheus collectors.
type Metrics struct {
	Registry *prometheus.Registry

	Quotes       prometheus.Counter
	Trades       prometheus.Counter
	Malformed    *prometheus.CounterVec
	LevelChanges prometheus.Counter
	Signals      *prometheus.CounterVec
	Orders       *prometheus.CounterVec
	OrderUpdates *prometheus.CounterVec

	TotalShares prometheus.Gauge
	PendingBuy  prometheus.Gauge
	PendingSell prometheus.Gauge
	OpenOrders  prometheus.Gauge
	DroppedBus  prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Quotes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tick_quotes_total",
			Help: "Quote updates consumed",
		}),
		Trades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tick_trades_total",
			Help: "Trade prints consumed",
		}),
		Malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tick_malformed_events_total",
			Help: "Events rejected as malformed",
		}, []string{"kind"}),
		LevelChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tick_level_changes_total",
			Help: "Recognized spread level changes",
		}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tick_signals_total",
			Help: "Trading signals produced",
		}, []string{"side"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tick_orders_total",
			Help: "Order submissions by outcome",
		}, []string{"side", "status"}),
		OrderUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tick_order_updates_total",
			Help: "Order lifecycle events reconciled",
		}, []string{"kind"}),
		TotalShares: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tick_total_shares",
			Help: "Confirmed filled shares held",
		}),
		PendingBuy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tick_pending_buy_shares",
			Help: "Shares committed to in-flight buy orders",
		}),
		PendingSell: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tick_pending_sell_shares",
			Help: "Shares committed to in-flight sell orders",
		}),
		OpenOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tick_open_orders",
			Help: "Ledger entries currently open",
		}),
		DroppedBus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tick_bus_dropped_total",
			Help: "Bus payloads dropped due to slow subscribers",
		}),
	}

	m.Registry.MustRegister(
		m.Quotes, m.Trades, m.Malformed, m.LevelChanges, m.Signals,
		m.Orders, m.OrderUpdates,
		m.TotalShares, m.PendingBuy, m.PendingSell, m.OpenOrders, m.DroppedBus,
	)
	return m
}
