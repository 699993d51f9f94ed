package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCandle_DropsStaleAndDuplicate(t *testing.T) {
	buf := NewMarketDataBuffer()
	sym := Symbol("BTC-USD")
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, buf.AppendCandle(sym, TF1h, Candle{Time: t0}))
	assert.False(t, buf.AppendCandle(sym, TF1h, Candle{Time: t0}), "duplicate timestamp must be dropped")
	assert.False(t, buf.AppendCandle(sym, TF1h, Candle{Time: t0.Add(-time.Minute)}), "stale (out-of-order) candle must be dropped")
	assert.True(t, buf.AppendCandle(sym, TF1h, Candle{Time: t0.Add(time.Hour)}))

	assert.Equal(t, 2, buf.Len(sym, TF1h))
}

func TestAppendCandle_EvictsPastRetentionCap(t *testing.T) {
	buf := NewMarketDataBuffer()
	sym := Symbol("BTC-USD")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limit := retentionCap(TF1h)
	for i := 0; i < limit+10; i++ {
		buf.AppendCandle(sym, TF1h, Candle{Time: base.Add(time.Duration(i) * time.Hour)})
	}
	assert.Equal(t, limit, buf.Len(sym, TF1h))
}

func TestSnapshotCandles_CopyIsolatesBuffer(t *testing.T) {
	buf := NewMarketDataBuffer()
	sym := Symbol("BTC-USD")
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	buf.AppendCandle(sym, TF1h, Candle{Time: t0, Close: d("100")})

	snap := buf.SnapshotCandles(sym, TF1h)
	require.Len(t, snap, 1)
	snap[0].Close = d("999999")

	again := buf.SnapshotCandles(sym, TF1h)
	assert.True(t, again[0].Close.Equal(d("100")), "mutating a snapshot must not affect the buffer")
}

func TestAppendTicker_MonotoneByEventIDThenTime(t *testing.T) {
	buf := NewMarketDataBuffer()
	sym := Symbol("BTC-USD")
	now := time.Now()

	assert.True(t, buf.AppendTicker(sym, TickerTick{EventID: 5, EventTime: now}))
	assert.False(t, buf.AppendTicker(sym, TickerTick{EventID: 5, EventTime: now.Add(time.Second)}), "same event id must be dropped")
	assert.False(t, buf.AppendTicker(sym, TickerTick{EventID: 4, EventTime: now.Add(time.Second)}), "lower event id must be dropped")
	assert.True(t, buf.AppendTicker(sym, TickerTick{EventID: 6, EventTime: now.Add(time.Second)}))
}

func TestAppendDepth_MonotoneByEventIDThenTime(t *testing.T) {
	buf := NewMarketDataBuffer()
	sym := Symbol("BTC-USD")
	now := time.Now()

	assert.True(t, buf.AppendDepth(sym, DepthSnapshot{EventID: 1, EventTime: now}))
	assert.False(t, buf.AppendDepth(sym, DepthSnapshot{EventID: 1, EventTime: now.Add(time.Second)}))
	assert.True(t, buf.AppendDepth(sym, DepthSnapshot{EventID: 2, EventTime: now.Add(time.Second)}))
}

func TestLatestPrice_TickerTakesPriorityOverCandle(t *testing.T) {
	buf := NewMarketDataBuffer()
	sym := Symbol("BTC-USD")

	_, ok := buf.LatestPrice(sym)
	assert.False(t, ok, "empty buffer has no price")

	buf.AppendCandle(sym, TF1m, Candle{Time: time.Now(), Close: d("100")})
	price, ok := buf.LatestPrice(sym)
	require.True(t, ok)
	assert.True(t, price.Equal(d("100")), "falls back to latest 1m candle close")

	buf.AppendTicker(sym, TickerTick{EventTime: time.Now(), LastPrice: d("101")})
	price, ok = buf.LatestPrice(sym)
	require.True(t, ok)
	assert.True(t, price.Equal(d("101")), "ticker price takes priority once present")
}

func TestPreload_SortsAndStores(t *testing.T) {
	gw := newFakeGateway()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var candles []Candle
	// Stored out of order; Preload must sort before storing.
	for i := 9; i >= 0; i-- {
		candles = append(candles, Candle{Time: base.Add(time.Duration(i) * time.Hour), Close: d("100")})
	}
	gw.candles[TF1h] = candles

	buf := NewMarketDataBuffer()
	require.NoError(t, buf.Preload(context.Background(), gw, Symbol("BTC-USD"), TF1h))

	snap := buf.SnapshotCandles(Symbol("BTC-USD"), TF1h)
	require.Len(t, snap, 10)
	for i := 1; i < len(snap); i++ {
		assert.True(t, snap[i].Time.After(snap[i-1].Time), "preloaded candles must be sorted ascending by time")
	}
}
