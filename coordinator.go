// FILE: coordinator.go
// Package main – Grid Coordinator (C6), the ten-step control loop.
//
// Adapted from the teacher's Trader.step() (step.go): the mutex guards only
// the coordinator's in-memory fields (gates, grid levels, breakout
// counter); it is released before every network call so a slow venue
// response never blocks readers of the coordinator's state. Unlike the
// teacher, each step below is a named method or a short commented block in
// Tick() so the fixed ordering spec.md §4.6 requires is visible in Tick(),
// not buried in one 1900-line function.
package main

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// CoordinatorConfig holds the tick-loop knobs from spec.md §6.
type CoordinatorConfig struct {
	TickPeriod          time.Duration
	ResetTicksAboveTop  int
	PriceRetryAttempts  int
	PriceRetryBackoff   time.Duration
	MinNotional         decimal.Decimal
	ReconcileLookbackMs int64
}

func defaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		TickPeriod:          45 * time.Second,
		ResetTicksAboveTop:  30,
		PriceRetryAttempts:  3,
		PriceRetryBackoff:   200 * time.Millisecond,
		MinNotional:         decimal.NewFromFloat(5.0),
		ReconcileLookbackMs: int64(24 * time.Hour / time.Millisecond),
	}
}

// Coordinator owns the per-symbol control loop. No two ticks for the same
// symbol run concurrently (spec.md §5); callers are expected to serialize
// calls to Tick (the Lifecycle Supervisor's per-symbol task loop does this
// by construction).
type Coordinator struct {
	symbol Symbol
	gw     Gateway
	buf    *MarketDataBuffer
	clf    *RegimeClassifier
	ledger *OrderLedger
	cfg    CoordinatorConfig
	params GridParams
	mode   string // "dryrun" or "live", for metric labeling only

	mu             sync.Mutex
	gates          TradeGates
	gridLevels     []decimal.Decimal
	ticksAboveTop  int
	resetRequested bool

	// onAuthFailure, if set, is invoked each time a gateway call in a tick
	// surfaces ErrAuthentication. Authentication failures are terminal
	// per spec.md §7: the coordinator can't recover on its own, so it hands
	// the error to the supervisor rather than retrying next tick.
	onAuthFailure func(error)
}

// OnAuthFailure registers a callback invoked when a gateway call reports
// ErrAuthentication. The Lifecycle Supervisor uses this to trigger shutdown.
func (c *Coordinator) OnAuthFailure(fn func(error)) {
	c.onAuthFailure = fn
}

// checkAuth reports err to onAuthFailure if it wraps ErrAuthentication, and
// returns true when it did so the caller can stop processing the tick.
func (c *Coordinator) checkAuth(err error) bool {
	if err == nil || !errors.Is(err, ErrAuthentication) {
		return false
	}
	log.Printf("[CRITICAL] tick symbol=%s authentication failure: %v", c.symbol, err)
	if c.onAuthFailure != nil {
		c.onAuthFailure(err)
	}
	return true
}

// NewCoordinator wires the components for one symbol. Gates start true
// (spec.md §3 Lifecycles). mode is "dryrun" or "live" and only affects how
// placements are labeled in metrics.
func NewCoordinator(symbol Symbol, gw Gateway, buf *MarketDataBuffer, clf *RegimeClassifier, ledger *OrderLedger, params GridParams, cfg CoordinatorConfig, mode string) *Coordinator {
	return &Coordinator{
		symbol: symbol,
		gw:     gw,
		buf:    buf,
		clf:    clf,
		ledger: ledger,
		cfg:    cfg,
		params: params,
		mode:   mode,
		gates:  TradeGates{LongTermEnabled: true, ShortTermEnabled: true},
	}
}

// Tick runs the ten-step control loop once. It returns a short summary for
// logging; network/venue errors during best-effort steps are logged, not
// returned, per spec.md §7's propagation policy (the coordinator converges
// via the next tick rather than surfacing recoverable conditions). Only an
// InvariantViolation is returned, so the caller (Lifecycle Supervisor) can
// escalate per spec.md §7.
func (c *Coordinator) Tick(ctx context.Context) (string, error) {
	start := time.Now()
	defer func() { ObserveTickDuration(time.Since(start).Seconds()) }()

	// Step 1 — Snapshot.
	price, ok := c.snapshotPrice(ctx)
	if !ok {
		log.Printf("[WARN] tick symbol=%s skipped: no price available", c.symbol)
		return "skip:no-price", nil
	}

	// Step 2 — Regime refresh.
	regimes := c.clf.ClassifyAll(c.symbol)
	lt := regimes[TF1d]
	st := regimes[TF1h]
	SetRegimeMetric(c.symbol, TF1d, lt)
	SetRegimeMetric(c.symbol, TF1h, st)

	c.mu.Lock()
	gatesBefore := c.gates
	c.mu.Unlock()

	// Step 3 — LT reaction / Step 4 — ST reaction (mutually exclusive).
	ltJustDisabled := false
	stJustDisabled := false
	if gatesBefore.LongTermEnabled && lt == RegimeDowntrend {
		c.reactLTDowntrend(ctx)
		ltJustDisabled = true
	} else if gatesBefore.ShortTermEnabled && st == RegimeDowntrend {
		c.reactSTDowntrend(ctx)
		stJustDisabled = true
	}

	// Step 5 — Gate recovery (cannot flip false->true the same tick it flipped true->false).
	c.mu.Lock()
	if !c.gates.LongTermEnabled && !ltJustDisabled && (lt == RegimeUptrend || lt == RegimeSideways) {
		c.gates.LongTermEnabled = true
	}
	if !c.gates.ShortTermEnabled && !stJustDisabled && (st == RegimeUptrend || st == RegimeSideways) {
		c.gates.ShortTermEnabled = true
	}
	gates := c.gates
	c.mu.Unlock()
	SetGateMetric(c.symbol, gates)

	// Step 6 — Grid reset check.
	c.mu.Lock()
	highest, haveLevels := highestLevel(c.gridLevels)
	if haveLevels && price.GreaterThan(highest) {
		c.ticksAboveTop++
	} else {
		c.ticksAboveTop = 0
	}
	triggerReset := c.ticksAboveTop >= c.cfg.ResetTicksAboveTop
	if triggerReset {
		c.ticksAboveTop = 0
		c.resetRequested = true
	}
	ticksAboveTopNow := c.ticksAboveTop
	c.mu.Unlock()
	SetTicksAboveTopMetric(c.symbol, ticksAboveTopNow)
	if triggerReset {
		if _, err := c.gw.CancelAll(ctx, c.symbol, SideBuy); err != nil {
			c.checkAuth(err)
			log.Printf("[WARN] tick symbol=%s breakout-reset cancel_all(buy): %v", c.symbol, err)
		} else {
			IncCancel("buy", "breakout_reset")
		}
	}

	// Step 7 — Reconcile.
	if gates.LongTermEnabled && gates.ShortTermEnabled {
		if err := c.reconcile(ctx); err != nil {
			if c.checkAuth(err) {
				return "auth-failure", nil
			}
			log.Printf("[WARN] tick symbol=%s reconcile: %v", c.symbol, err)
		}
	}

	// Step 8 — Geometry.
	c.mu.Lock()
	needsGeometry := len(c.gridLevels) == 0 || c.resetRequested
	c.mu.Unlock()
	if needsGeometry {
		if err := c.recomputeGeometry(ctx, price); err != nil {
			log.Printf("[WARN] tick symbol=%s geometry deferred: %v", c.symbol, err)
		}
	}

	if !gates.LongTermEnabled || !gates.ShortTermEnabled {
		return "gated:no-placement", nil
	}

	c.mu.Lock()
	levels := append([]decimal.Decimal(nil), c.gridLevels...)
	c.mu.Unlock()
	if len(levels) == 0 {
		return "skip:no-geometry", nil
	}

	// Step 9 & 10 — Sizing + Placement.
	if err := c.placeDesiredOrders(ctx, price, levels); err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			IncInvariantViolation()
			return "invariant-violation", err
		}
		if c.checkAuth(err) {
			return "auth-failure", nil
		}
		log.Printf("[WARN] tick symbol=%s placement: %v", c.symbol, err)
	}

	return "ok", nil
}

func (c *Coordinator) snapshotPrice(ctx context.Context) (decimal.Decimal, bool) {
	for attempt := 0; attempt < c.cfg.PriceRetryAttempts; attempt++ {
		if price, ok := c.buf.LatestPrice(c.symbol); ok {
			return price, true
		}
		select {
		case <-ctx.Done():
			return decimal.Zero, false
		case <-time.After(c.cfg.PriceRetryBackoff * time.Duration(attempt+1)):
		}
	}
	return c.buf.LatestPrice(c.symbol)
}

func highestLevel(levels []decimal.Decimal) (decimal.Decimal, bool) {
	if len(levels) == 0 {
		return decimal.Zero, false
	}
	max := levels[0]
	for _, l := range levels[1:] {
		if l.GreaterThan(max) {
			max = l
		}
	}
	return max, true
}

// reactLTDowntrend implements spec.md §4.6 Step 3: cancel buys, cancel
// sells, market-sell the base balance, clear the ledger, disable the LT
// gate. Best-effort: a failure at (a)-(c) is logged and the step proceeds,
// because the exchange remains authoritative and the next reconcile will
// pick up whatever state actually resulted.
func (c *Coordinator) reactLTDowntrend(ctx context.Context) {
	if _, err := c.gw.CancelAll(ctx, c.symbol, SideBuy); err != nil {
		c.checkAuth(err)
		log.Printf("[ERROR] tick symbol=%s LT-downtrend cancel_all(buy): %v", c.symbol, err)
	} else {
		IncCancel("buy", "lt_downtrend")
	}
	if _, err := c.gw.CancelAll(ctx, c.symbol, SideSell); err != nil {
		c.checkAuth(err)
		log.Printf("[ERROR] tick symbol=%s LT-downtrend cancel_all(sell): %v", c.symbol, err)
	} else {
		IncCancel("sell", "lt_downtrend")
	}
	base, _ := c.symbol.BaseQuote()
	if bal, err := c.gw.GetBalance(ctx, base); err != nil {
		c.checkAuth(err)
		log.Printf("[ERROR] tick symbol=%s LT-downtrend get_balance: %v", c.symbol, err)
	} else if bal.GreaterThan(decimal.Zero) {
		if _, err := c.gw.CreateMarketSell(ctx, c.symbol, bal); err != nil {
			c.checkAuth(err)
			log.Printf("[ERROR] tick symbol=%s LT-downtrend market_sell: %v", c.symbol, err)
		}
	}
	c.ledger.Clear()
	c.mu.Lock()
	c.gates.LongTermEnabled = false
	c.mu.Unlock()
	log.Printf("[WARN] tick symbol=%s LT gate disabled (downtrend)", c.symbol)
}

// reactSTDowntrend implements spec.md §4.6 Step 4: cancel buys only; sells
// stay live so existing inventory can keep harvesting upside.
func (c *Coordinator) reactSTDowntrend(ctx context.Context) {
	if _, err := c.gw.CancelAll(ctx, c.symbol, SideBuy); err != nil {
		c.checkAuth(err)
		log.Printf("[ERROR] tick symbol=%s ST-downtrend cancel_all(buy): %v", c.symbol, err)
	} else {
		IncCancel("buy", "st_downtrend")
	}
	c.mu.Lock()
	c.gates.ShortTermEnabled = false
	c.mu.Unlock()
	log.Printf("[WARN] tick symbol=%s ST gate disabled (downtrend)", c.symbol)
}

// reconcile implements spec.md §4.6 Step 7.
func (c *Coordinator) reconcile(ctx context.Context) error {
	orders, err := c.gw.FetchOpenOrders(ctx, c.symbol)
	if err != nil {
		return err
	}
	strays := c.ledger.Observe(orders)
	for _, s := range strays {
		IncStrayOrder(string(s.Side))
		if s.Side != SideBuy {
			continue // sell-side strays may be ongoing exits; left intact
		}
		if err := c.gw.CancelOrder(ctx, c.symbol, s.ExternalID); err != nil && !isBenignCancel(err) {
			c.checkAuth(err)
			log.Printf("[WARN] tick symbol=%s cancel stray buy %s: %v", c.symbol, s.ExternalID, err)
		} else {
			IncCancel("buy", "stray")
		}
	}
	return nil
}

// recomputeGeometry implements spec.md §4.6 Step 8: needs P and atr14(1h).
// If atr14 is undefined, the reset is deferred and retried next tick.
func (c *Coordinator) recomputeGeometry(ctx context.Context, price decimal.Decimal) error {
	candles := c.buf.SnapshotCandles(c.symbol, TF1h)
	ind := ComputeIndicators(candles)
	if !ind.Valid {
		return wrapErr(ErrDataUnavailable, "atr14 undefined, deferring geometry reset")
	}
	levels := BuildGridLevels(price, ind.ATR14, c.params)
	c.mu.Lock()
	c.gridLevels = levels
	c.resetRequested = false
	c.mu.Unlock()
	SetLevelsCountMetric(c.symbol, len(levels))
	log.Printf("[INFO] tick symbol=%s geometry rebuilt levels=%d spacing_atr=%.6f", c.symbol, len(levels), ind.ATR14)
	return nil
}

// placeDesiredOrders implements spec.md §4.6 Steps 9-10.
func (c *Coordinator) placeDesiredOrders(ctx context.Context, price decimal.Decimal, levels []decimal.Decimal) error {
	desired := DesiredLevels(price, levels, c.params.LevelsBelow, c.params.LevelsAbove)

	_, quote := c.symbol.BaseQuote()
	quoteBalance, err := c.gw.GetBalance(ctx, quote)
	if err != nil {
		return err
	}
	openValue := c.openOrdersValue()

	for _, level := range desired {
		if !level.LessThan(price) {
			continue // above-price desired levels only get a resting order via the buy-first sell pairing below
		}
		entry := c.ledger.Get(level)
		if entry != nil && (entry.BuyState.nonTerminal() || entry.BuyLocked) {
			continue // idempotent: already live or reconciliation in flight
		}
		qty := SizeOrder(openValue, quoteBalance, level, c.params)
		if qty.IsZero() || !MeetsMinNotional(level, qty, c.cfg.MinNotional) {
			continue
		}
		orderID, err := c.gw.CreateLimitBuy(ctx, c.symbol, level, qty)
		if err != nil {
			c.checkAuth(err)
			log.Printf("[WARN] tick symbol=%s place buy level=%s: %v", c.symbol, level, err)
			continue
		}
		IncOrder(c.mode, "buy")
		if err := c.ledger.RegisterPlacement(level, SideBuy, orderID, qty); err != nil {
			return err
		}
	}

	for _, filled := range c.ledger.FilledBuysAwaitingSell() {
		next, ok := NextLevelAbove(levels, filled.Level)
		if !ok {
			continue
		}
		sellEntry := c.ledger.Get(next)
		if sellEntry != nil && (sellEntry.SellState.nonTerminal() || sellEntry.SellLocked) {
			continue
		}
		qty := filled.BuyQuantity
		if qty.IsZero() {
			continue
		}
		orderID, err := c.gw.CreateLimitSell(ctx, c.symbol, next, qty)
		if err != nil {
			c.checkAuth(err)
			log.Printf("[WARN] tick symbol=%s place paired sell level=%s: %v", c.symbol, next, err)
			continue
		}
		IncOrder(c.mode, "sell")
		if err := c.ledger.RegisterPlacement(next, SideSell, orderID, qty); err != nil {
			return err
		}
	}
	return nil
}

// openOrdersValue sums price*qty over the ledger's live buys, for the
// sizing formula's "in-flight capital is fungible with free balance"
// treatment (spec.md §9 Open Question — preserved as specified).
func (c *Coordinator) openOrdersValue() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.ledger.Snapshot() {
		if e.BuyState == OrderStateOpen || e.BuyState == OrderStatePending {
			total = total.Add(e.Level.Mul(e.BuyQuantity))
		}
	}
	return total
}

// Gates returns a copy of the current trade gates, for observability/tests.
func (c *Coordinator) Gates() TradeGates {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gates
}

// GridLevels returns a copy of the current grid level set.
func (c *Coordinator) GridLevels() []decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]decimal.Decimal(nil), c.gridLevels...)
}
