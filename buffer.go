// FILE: buffer.go
// Package main – Market Data Buffer (C2).
//
// Per-(symbol, kind) rolling stores for candles, ticker ticks and depth
// snapshots. Single-writer-many-reader, guarded by sync.RWMutex the way the
// teacher's Trader guards its book state: mutations hold the write lock only
// long enough to splice a slice; snapshot() returns a copy so readers never
// observe a torn write mid-mutation.
package main

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// retentionCap is the hard eviction cap per timeframe (spec.md §3/§4.2).
func retentionCap(tf Timeframe) int {
	switch tf {
	case TF1m, TF1d:
		return 200
	case TF1h:
		return 300
	case TF15m, TF6h:
		return 300
	default:
		return 200
	}
}

const tickerDepthCap = 1000

// MarketDataBuffer holds every (symbol, kind) store for the process.
type MarketDataBuffer struct {
	mu      sync.RWMutex
	candles map[Symbol]map[Timeframe][]Candle
	tickers map[Symbol][]TickerTick
	depth   map[Symbol][]DepthSnapshot
}

// NewMarketDataBuffer returns an empty buffer.
func NewMarketDataBuffer() *MarketDataBuffer {
	return &MarketDataBuffer{
		candles: make(map[Symbol]map[Timeframe][]Candle),
		tickers: make(map[Symbol][]TickerTick),
		depth:   make(map[Symbol][]DepthSnapshot),
	}
}

// Preload replaces the candle buffer for (symbol, tf) with a historical
// window fetched via the gateway's REST surface (spec.md §4.2 horizons).
func (b *MarketDataBuffer) Preload(ctx context.Context, gw Gateway, symbol Symbol, tf Timeframe) error {
	horizon := retentionFloor(tf)
	candles, err := gw.FetchCandles(ctx, symbol, tf, horizon)
	if err != nil {
		return wrapErr(ErrDataUnavailable, "preload %s/%s: %v", symbol, tf, err)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	if len(candles) > retentionCap(tf) {
		candles = candles[len(candles)-retentionCap(tf):]
	}
	b.mu.Lock()
	if b.candles[symbol] == nil {
		b.candles[symbol] = make(map[Timeframe][]Candle)
	}
	b.candles[symbol][tf] = candles
	b.mu.Unlock()
	log.Printf("[INFO] buffer preload symbol=%s tf=%s rows=%d", symbol, tf, len(candles))
	return nil
}

// AppendCandle idempotently appends a closed candle, keyed by timestamp.
// Duplicates and out-of-order (stale) candles are dropped; eviction honors
// the retention cap. Returns true if the candle was admitted.
func (b *MarketDataBuffer) AppendCandle(symbol Symbol, tf Timeframe, c Candle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.candles[symbol] == nil {
		b.candles[symbol] = make(map[Timeframe][]Candle)
	}
	existing := b.candles[symbol][tf]
	if len(existing) > 0 {
		last := existing[len(existing)-1]
		if !c.Time.After(last.Time) {
			return false // duplicate or stale
		}
	}
	existing = append(existing, c)
	if len(existing) > retentionCap(tf) {
		existing = existing[len(existing)-retentionCap(tf):]
	}
	b.candles[symbol][tf] = existing
	return true
}

// AppendTicker idempotently appends a ticker tick, keyed by event id when
// present, falling back to event time ordering otherwise.
func (b *MarketDataBuffer) AppendTicker(symbol Symbol, t TickerTick) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	existing := b.tickers[symbol]
	if len(existing) > 0 {
		last := existing[len(existing)-1]
		if !tickMonotone(last, t) {
			return false
		}
	}
	existing = append(existing, t)
	if len(existing) > tickerDepthCap {
		existing = existing[len(existing)-tickerDepthCap:]
	}
	b.tickers[symbol] = existing
	return true
}

func tickMonotone(last, next TickerTick) bool {
	if last.EventID != 0 || next.EventID != 0 {
		return next.EventID > last.EventID
	}
	return next.EventTime.After(last.EventTime)
}

// AppendDepth idempotently appends a depth snapshot, keyed the same way as
// ticker ticks.
func (b *MarketDataBuffer) AppendDepth(symbol Symbol, d DepthSnapshot) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	existing := b.depth[symbol]
	if len(existing) > 0 {
		last := existing[len(existing)-1]
		if last.EventID != 0 || d.EventID != 0 {
			if d.EventID <= last.EventID {
				return false
			}
		} else if !d.EventTime.After(last.EventTime) {
			return false
		}
	}
	existing = append(existing, d)
	if len(existing) > tickerDepthCap {
		existing = existing[len(existing)-tickerDepthCap:]
	}
	b.depth[symbol] = existing
	return true
}

// SnapshotCandles returns a read-only copy of the candle buffer for (symbol, tf).
func (b *MarketDataBuffer) SnapshotCandles(symbol Symbol, tf Timeframe) []Candle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	src := b.candles[symbol][tf]
	out := make([]Candle, len(src))
	copy(out, src)
	return out
}

// SnapshotTickers returns a read-only copy of the ticker buffer for symbol.
func (b *MarketDataBuffer) SnapshotTickers(symbol Symbol) []TickerTick {
	b.mu.RLock()
	defer b.mu.RUnlock()
	src := b.tickers[symbol]
	out := make([]TickerTick, len(src))
	copy(out, src)
	return out
}

// SnapshotDepth returns a read-only copy of the depth buffer for symbol.
func (b *MarketDataBuffer) SnapshotDepth(symbol Symbol) []DepthSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	src := b.depth[symbol]
	out := make([]DepthSnapshot, len(src))
	copy(out, src)
	return out
}

// LatestPrice returns the last ticker's LastPrice, falling back to the
// latest 1m candle close when the ticker buffer is empty (spec.md §4.6 Step 1).
func (b *MarketDataBuffer) LatestPrice(symbol Symbol) (price decimal.Decimal, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if ticks := b.tickers[symbol]; len(ticks) > 0 {
		return ticks[len(ticks)-1].LastPrice, true
	}
	if candles := b.candles[symbol][TF1m]; len(candles) > 0 {
		return candles[len(candles)-1].Close, true
	}
	return decimal.Zero, false
}

// Len reports how many candles are buffered for (symbol, tf).
func (b *MarketDataBuffer) Len(symbol Symbol, tf Timeframe) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.candles[symbol][tf])
}

// PeriodicRefresh is a C7-driven task: every interval, ask the gateway for
// the latest candle of tf and append it if new. Used for 1h/1d where stream
// reliability is weaker than REST polling.
func (b *MarketDataBuffer) PeriodicRefresh(ctx context.Context, gw Gateway, symbol Symbol, tf Timeframe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			candles, err := gw.FetchCandles(ctx, symbol, tf, 1)
			if err != nil {
				log.Printf("[WARN] periodic_refresh %s/%s: %v", symbol, tf, err)
				continue
			}
			if len(candles) == 0 {
				continue
			}
			if b.AppendCandle(symbol, tf, candles[len(candles)-1]) {
				log.Printf("TRACE periodic_refresh appended symbol=%s tf=%s time=%s", symbol, tf, candles[len(candles)-1].Time)
			}
		}
	}
}
