// FILE: main.go
// Package main – Program entrypoint and HTTP/metrics server.
//
// Boot sequence:
//   1) loadBotEnv()                – read .env (no shell exports required)
//   2) cfg := loadConfigFromEnv()  – build runtime Config
//   3) wire gateway (dry-run wraps live when DRY_RUN=true)
//   4) wire buffer/classifier/ledger/coordinator/supervisor for the symbol
//   5) start Prometheus /healthz + /metrics server on cfg.Port
//   6) supervisor.Run() until SIGINT/SIGTERM, then graceful shutdown
//
// Example:
//   go run .
//
// Notes:
//   - CLI flags, credential file parsing, and log sink configuration are
//     external collaborators of this core (spec.md §1); this entrypoint is
//     the minimal glue needed to run it as a process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	loadBotEnv()
	cfg := loadConfigFromEnv()

	mode := "live"
	if cfg.DryRun {
		mode = "dryrun"
	}

	var gw Gateway = NewRESTGateway(cfg.RESTBaseURL, cfg.WSURL, Credentials{APIKey: cfg.APIKey, Secret: cfg.APISecret}, cfg.TickSize, cfg.LotSize)
	if cfg.DryRun {
		base, quote := cfg.Symbol.BaseQuote()
		fixtures := BalanceFixtures{
			base:  parseDecimalOrDefault(getEnv("DRYRUN_BASE_BALANCE", "1.0")),
			quote: parseDecimalOrDefault(getEnv("DRYRUN_QUOTE_BALANCE", "10000")),
		}
		gw = NewDryRunGateway(gw, fixtures)
	}

	buf := NewMarketDataBuffer()
	clf := NewRegimeClassifier(buf, cfg.RegimeThresholds())
	ledger := NewOrderLedger(cfg.TickSize)
	coord := NewCoordinator(cfg.Symbol, gw, buf, clf, ledger, cfg.GridParams(), cfg.CoordinatorConfig(), mode)

	rt := &SymbolRuntime{
		Symbol:      cfg.Symbol,
		Gateway:     gw,
		Buffer:      buf,
		Coordinator: coord,
		DryRun:      cfg.DryRun,
	}
	supervisor := NewSupervisor([]*SymbolRuntime{rt})

	// ---- HTTP metrics/health ----
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		log.Printf("serving metrics on :%d/metrics", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	// ---- Run the supervisor until SIGINT/SIGTERM ----
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("[INFO] starting symbol=%s mode=%s tick_period=%s", cfg.Symbol, mode, cfg.TickPeriod)
	supervisor.Run(ctx, cfg.TickPeriod)

	// ---- Graceful shutdown for HTTP server ----
	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}
