package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tick-core/internal/api"
	"tick-core/internal/engine"
	"tick-core/internal/events"
	"tick-core/internal/market"
	"tick-core/internal/monitor"
	"tick-core/internal/order"
	"tick-core/internal/position"
	"tick-core/internal/quote"
	"tick-core/internal/reconcile"
	"tick-core/internal/strategy"
	"tick-core/pkg/broker"
	"tick-core/pkg/broker/alpaca"
	"tick-core/pkg/broker/paper"
	"tick-core/pkg/config"
	"tick-core/pkg/journal"
)

const buildVersion = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("starting tick-core %s: symbol=%s qty=%d max_shares=%d delta=%.2f dry_run=%v",
		buildVersion, cfg.Symbol, cfg.Quantity, cfg.MaxShares, cfg.DeltaPrice, cfg.DryRun)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	metrics := monitor.New()

	// Audit journal is diagnostics only; the engine runs without it.
	jrnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Printf("journal disabled: %v", err)
		jrnl = nil
	} else {
		defer jrnl.Close()
	}

	// Broker gateway and update source.
	var gateway broker.Gateway
	var paperGW *paper.Gateway
	venue := "alpaca"
	if cfg.DryRun {
		paperGW = paper.New(0)
		gateway = paperGW
		venue = "paper"
	} else {
		gateway = alpaca.NewClient(alpaca.Config{
			KeyID:     cfg.KeyID,
			SecretKey: cfg.SecretKey,
			BaseURL:   cfg.BaseURL,
		})
	}

	exec := order.NewExecutor(gateway, bus, jrnl, metrics, cfg.MaxOrdersSec)
	tracker := quote.NewTracker(cfg.DeltaPrice, bus)
	ledger := position.NewLedger()

	sig := &strategy.Engine{
		Symbol:    cfg.Symbol,
		Quantity:  cfg.Quantity,
		MaxShares: cfg.MaxShares,
		DeltaTick: cfg.DeltaPrice,
		Tracker:   tracker,
		Ledger:    ledger,
		Exec:      exec,
		Bus:       bus,
		Metrics:   metrics,
	}
	rec := &reconcile.Reconciler{
		Symbol:    cfg.Symbol,
		DeltaTick: cfg.DeltaPrice,
		Ledger:    ledger,
		Exec:      exec,
		Journal:   jrnl,
		Metrics:   metrics,
	}

	core := &engine.Core{
		Symbol:     cfg.Symbol,
		Bus:        bus,
		Signal:     sig,
		Reconciler: rec,
		Metrics:    metrics,
		Meta: engine.Meta{
			DryRun:  cfg.DryRun,
			Venue:   venue,
			Version: buildVersion,
		},
	}
	core.Start(ctx)

	// Event sources.
	if cfg.DryRun {
		mock := &market.MockFeed{
			Bus:       bus,
			Symbol:    cfg.Symbol,
			Tick:      cfg.DeltaPrice,
			TradeSize: cfg.Quantity,
		}
		mock.Start(ctx)
		core.PumpOrderUpdates(ctx, paperGW.Updates())
	} else {
		feed := &market.Feed{
			Stream: alpaca.NewStreamClient(alpaca.Config{
				KeyID:     cfg.KeyID,
				SecretKey: cfg.SecretKey,
				StreamURL: cfg.StreamURL,
			}),
			Bus:    bus,
			Symbol: cfg.Symbol,
		}
		feed.Start(ctx)
	}

	// Keep the bus drop gauge fresh.
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				metrics.DroppedBus.Set(float64(bus.Dropped()))
			}
		}
	}()

	// Control / observability API.
	server := api.NewServer(core, jrnl, cfg.APIKey, cfg.JWTSecret)
	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: server.Router}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()
	log.Printf("api listening on :%s", cfg.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
