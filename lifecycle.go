// FILE: lifecycle.go
// Package main – Lifecycle Supervisor (C7).
//
// Owns startup ordering, periodic ticking, and graceful shutdown, grounded
// on the teacher's runLive loop (live.go) and main.go's signal-driven
// shutdown. One Supervisor manages every configured symbol; each symbol
// gets its own tick task plus sibling stream/refresh tasks, matching
// spec.md §5's "single task per symbol, no ordering requirement across
// symbols".
package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SymbolRuntime bundles everything one traded symbol needs to run.
type SymbolRuntime struct {
	Symbol      Symbol
	Gateway     Gateway
	Buffer      *MarketDataBuffer
	Coordinator *Coordinator
	DryRun      bool
}

// Supervisor is the Lifecycle Supervisor (C7).
type Supervisor struct {
	runID    string
	runtimes []*SymbolRuntime
	tickWg   sync.WaitGroup
	shutOnce sync.Once
}

// NewSupervisor returns a Supervisor for the given symbol runtimes. runID is
// a process-run identifier used only in log lines, generated once per
// process start — the one place this repo still reaches for
// github.com/google/uuid after the dry-run order-id format moved to a
// deterministic scheme (see DESIGN.md).
func NewSupervisor(runtimes []*SymbolRuntime) *Supervisor {
	return &Supervisor{runID: uuid.NewString(), runtimes: runtimes}
}

// Run executes the startup sequence for every symbol, then blocks running
// each symbol's tick loop until ctx is cancelled, then performs graceful
// shutdown. Startup order per symbol (spec.md §4.7): gateway connect (assumed
// already connected by the caller that built the Gateway) -> preload buffers
// -> subscribe streams -> initial reconcile -> first coordinator tick.
//
// An Authentication failure surfaced by any symbol's coordinator is terminal
// (spec.md §7): it cancels runCtx early and the whole supervisor shuts down,
// not just the affected symbol.
func (s *Supervisor) Run(ctx context.Context, tickPeriod time.Duration) {
	log.Printf("[INFO] supervisor run_id=%s starting symbols=%d", s.runID, len(s.runtimes))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, rt := range s.runtimes {
		rt.Coordinator.OnAuthFailure(func(err error) {
			log.Printf("[CRITICAL] supervisor run_id=%s symbol=%s authentication failure, shutting down: %v", s.runID, rt.Symbol, err)
			cancel()
		})
		if err := s.startup(runCtx, rt); err != nil {
			log.Printf("[ERROR] supervisor symbol=%s startup failed: %v", rt.Symbol, err)
			continue
		}
		s.tickWg.Add(1)
		go s.runSymbolLoop(runCtx, rt, tickPeriod)
	}

	<-runCtx.Done()
	s.Shutdown(context.Background())
}

func (s *Supervisor) startup(ctx context.Context, rt *SymbolRuntime) error {
	for _, tf := range []Timeframe{TF1m, TF15m, TF1h, TF6h, TF1d} {
		if err := rt.Buffer.Preload(ctx, rt.Gateway, rt.Symbol, tf); err != nil {
			log.Printf("[WARN] supervisor symbol=%s preload %s: %v", rt.Symbol, tf, err)
		}
	}

	if err := s.subscribeStreams(ctx, rt); err != nil {
		return err
	}

	if orders, err := rt.Gateway.FetchOpenOrders(ctx, rt.Symbol); err != nil {
		log.Printf("[WARN] supervisor symbol=%s initial reconcile: %v", rt.Symbol, err)
	} else {
		rt.Coordinator.ledger.Observe(orders)
	}

	if msg, err := rt.Coordinator.Tick(ctx); err != nil {
		log.Printf("[ERROR] supervisor symbol=%s first tick: %v", rt.Symbol, err)
	} else {
		log.Printf("[INFO] supervisor symbol=%s first tick result=%s", rt.Symbol, msg)
	}
	return nil
}

// subscribeStreams wires streaming ticker/depth/1m-candle subscriptions into
// the buffer, plus periodic REST refresh tasks for 1h/1d where stream
// reliability is weaker (spec.md §4.2).
func (s *Supervisor) subscribeStreams(ctx context.Context, rt *SymbolRuntime) error {
	tickCh, err := rt.Gateway.SubscribeTicker(ctx, rt.Symbol)
	if err != nil {
		return err
	}
	depthCh, err := rt.Gateway.SubscribeDepth(ctx, rt.Symbol)
	if err != nil {
		return err
	}
	candleCh, err := rt.Gateway.SubscribeCandles(ctx, rt.Symbol, TF1m)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-tickCh:
				if !ok {
					return
				}
				rt.Buffer.AppendTicker(rt.Symbol, t)
			}
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-depthCh:
				if !ok {
					return
				}
				rt.Buffer.AppendDepth(rt.Symbol, d)
			}
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-candleCh:
				if !ok {
					return
				}
				rt.Buffer.AppendCandle(rt.Symbol, TF1m, c)
			}
		}
	}()

	go rt.Buffer.PeriodicRefresh(ctx, rt.Gateway, rt.Symbol, TF1h, time.Hour)
	go rt.Buffer.PeriodicRefresh(ctx, rt.Gateway, rt.Symbol, TF1d, 6*time.Hour)

	return nil
}

// runSymbolLoop repeats Tick at tickPeriod. A tick exceeding 2x its period is
// cancelled and retried next period (spec.md §5); partial progress is
// acceptable because the next tick reconciles from exchange truth.
func (s *Supervisor) runSymbolLoop(ctx context.Context, rt *SymbolRuntime, tickPeriod time.Duration) {
	defer s.tickWg.Done()
	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, 2*tickPeriod)
			msg, err := rt.Coordinator.Tick(tickCtx)
			cancel()
			if err != nil {
				log.Printf("[CRITICAL] supervisor symbol=%s tick invariant violation: %v", rt.Symbol, err)
			} else {
				log.Printf("TRACE supervisor symbol=%s tick result=%s", rt.Symbol, msg)
			}
		}
	}
}

// Shutdown cancels all open orders for every managed symbol (unless
// dry-run), closes gateways, and is idempotent: a second call is a no-op
// (spec.md §4.7).
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.shutOnce.Do(func() {
		log.Printf("[INFO] supervisor run_id=%s shutting down", s.runID)
		for _, rt := range s.runtimes {
			if !rt.DryRun {
				if _, err := rt.Gateway.CancelAll(ctx, rt.Symbol, SideBuy); err != nil {
					log.Printf("[WARN] supervisor symbol=%s shutdown cancel_all(buy): %v", rt.Symbol, err)
				}
				if _, err := rt.Gateway.CancelAll(ctx, rt.Symbol, SideSell); err != nil {
					log.Printf("[WARN] supervisor symbol=%s shutdown cancel_all(sell): %v", rt.Symbol, err)
				}
			}
			if err := rt.Gateway.Close(); err != nil {
				log.Printf("[WARN] supervisor symbol=%s gateway close: %v", rt.Symbol, err)
			}
		}
		s.tickWg.Wait()
		log.Printf("[INFO] supervisor run_id=%s shutdown complete", s.runID)
	})
}
