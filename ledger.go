// FILE: ledger.go
// Package main – Order Ledger (C5).
//
// In-memory structure keyed by quantized price level. Adapted from the
// teacher's per-side book bookkeeping in trader.go (SideBook, mutex-guarded
// maps), re-architected per spec.md §9 from "per-side list of lots" to
// "per-level entry with buy/sell state machines" and explicit *_locked
// substates instead of side-channel booleans.
package main

import (
	"log"
	"sync"

	"github.com/shopspring/decimal"
)

// OrderLedger is owned by the Grid Coordinator task; external readers (e.g.
// shutdown) must go through Snapshot().
type OrderLedger struct {
	mu      sync.Mutex
	tick    decimal.Decimal
	entries map[string]*LedgerEntry // keyed by QuantizeToTick(level).String()
}

// NewOrderLedger returns an empty ledger quantizing levels to tick.
func NewOrderLedger(tick decimal.Decimal) *OrderLedger {
	return &OrderLedger{tick: tick, entries: make(map[string]*LedgerEntry)}
}

func (l *OrderLedger) key(level decimal.Decimal) string {
	return QuantizeToTick(level, l.tick).String()
}

// DesiredLevels returns levelsBelow levels strictly below currentPrice and
// levelsAbove levels strictly above it, drawn from gridLevels (spec.md §4.5).
func DesiredLevels(currentPrice decimal.Decimal, gridLevels []decimal.Decimal, levelsBelow, levelsAbove int) []decimal.Decimal {
	var below, above []decimal.Decimal
	for _, lv := range gridLevels {
		switch {
		case lv.LessThan(currentPrice):
			below = append(below, lv)
		case lv.GreaterThan(currentPrice):
			above = append(above, lv)
		}
	}
	// below: take the levelsBelow closest to currentPrice (highest prices first).
	if len(below) > levelsBelow {
		below = below[len(below)-levelsBelow:]
	}
	if len(above) > levelsAbove {
		above = above[:levelsAbove]
	}
	out := append([]decimal.Decimal{}, below...)
	out = append(out, above...)
	return out
}

// RegisterPlacement asserts no prior live order exists for (level, side) and
// sets that side's state to pending, recording the placed quantity. Returns
// ErrInvariantViolation if a live order is already registered, which the
// coordinator treats as fatal for the symbol loop per spec.md §7.
func (l *OrderLedger) RegisterPlacement(level decimal.Decimal, side OrderSide, orderID string, qty decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(level)
	e := l.entries[k]
	if e == nil {
		e = &LedgerEntry{Level: QuantizeToTick(level, l.tick)}
		l.entries[k] = e
	}
	switch side {
	case SideBuy:
		if e.BuyState.nonTerminal() {
			return wrapErr(ErrInvariantViolation, "level %s already has a live buy", k)
		}
		e.BuyID = orderID
		e.BuyState = OrderStatePending
		e.BuyLocked = true
		e.BuyQuantity = qty
	case SideSell:
		if e.SellState.nonTerminal() {
			return wrapErr(ErrInvariantViolation, "level %s already has a live sell", k)
		}
		e.SellID = orderID
		e.SellState = OrderStatePending
		e.SellLocked = true
		e.SellQuantity = qty
	}
	return nil
}

// Observe merges the exchange-authoritative order list into the ledger: it
// matches by (side, price within tick) first, falls back to order_id, updates
// states, and returns the strays (exchange-visible orders the ledger does
// not know about).
func (l *OrderLedger) Observe(external []Order) (strays []Order) {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := make(map[string]bool, len(external))
	for _, ord := range external {
		k := l.key(ord.GridLevel)
		e := l.entries[k]
		if e != nil && ((ord.Side == SideBuy && e.BuyState == OrderStateAbsent) ||
			(ord.Side == SideSell && e.SellState == OrderStateAbsent)) {
			e = nil // level is known, but not for this side
		}
		if e == nil {
			e = l.findByOrderID(ord.Side, ord.ExternalID)
		}
		if e == nil {
			strays = append(strays, ord)
			continue
		}
		matched[l.keyOf(e)] = true
		switch ord.Side {
		case SideBuy:
			e.BuyID = ord.ExternalID
			e.BuyState = ord.State
			e.BuyLocked = false
		case SideSell:
			e.SellID = ord.ExternalID
			e.SellState = ord.State
			e.SellLocked = false
		}
	}
	// Any entry whose side was pending/open but absent from the exchange view
	// and not matched this round resolves to unknown, to be re-resolved next
	// observe() rather than assumed filled or cancelled.
	for k, e := range l.entries {
		if matched[k] {
			continue
		}
		if e.BuyState == OrderStatePending || e.BuyState == OrderStateOpen {
			e.BuyState = OrderStateUnknown
			e.BuyLocked = false
		}
		if e.SellState == OrderStatePending || e.SellState == OrderStateOpen {
			e.SellState = OrderStateUnknown
			e.SellLocked = false
		}
	}
	return strays
}

func (l *OrderLedger) keyOf(e *LedgerEntry) string { return l.key(e.Level) }

func (l *OrderLedger) findByOrderID(side OrderSide, orderID string) *LedgerEntry {
	if orderID == "" {
		return nil
	}
	for _, e := range l.entries {
		if side == SideBuy && e.BuyID == orderID {
			return e
		}
		if side == SideSell && e.SellID == orderID {
			return e
		}
	}
	return nil
}

// PruneInactive removes entries whose both sides are terminal and whose
// level is no longer in desired (spec.md §4.5).
func (l *OrderLedger) PruneInactive(desired []decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	want := make(map[string]bool, len(desired))
	for _, d := range desired {
		want[l.key(d)] = true
	}
	for k, e := range l.entries {
		bothTerminal := (e.BuyState == OrderStateAbsent || e.BuyState.terminal()) &&
			(e.SellState == OrderStateAbsent || e.SellState.terminal())
		if bothTerminal && !want[k] {
			delete(l.entries, k)
		}
	}
}

// Get returns the entry at level, or nil if absent.
func (l *OrderLedger) Get(level decimal.Decimal) *LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e := l.entries[l.key(level)]; e != nil {
		cp := *e
		return &cp
	}
	return nil
}

// Snapshot returns an immutable copy of every ledger entry.
func (l *OrderLedger) Snapshot() []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	return out
}

// Clear empties the ledger (used by the LT-downtrend reaction, spec.md §4.6
// Step 3d).
func (l *OrderLedger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cleared := len(l.entries)
	l.entries = make(map[string]*LedgerEntry)
	if cleared > 0 {
		log.Printf("[WARN] ledger cleared entries=%d", cleared)
	}
}

// FilledBuysAwaitingSell returns entries whose buy reached filled but whose
// sell has not yet been registered (buy-first dependency, spec.md §4.6 Step 10).
func (l *OrderLedger) FilledBuysAwaitingSell() []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LedgerEntry
	for _, e := range l.entries {
		if e.BuyState == OrderStateFilled && e.SellState == OrderStateAbsent {
			out = append(out, *e)
		}
	}
	return out
}
