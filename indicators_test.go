package main

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkCandle(t time.Time, o, h, l, c, v float64) Candle {
	return Candle{
		Time:   t,
		Open:   decimal.NewFromFloat(o),
		High:   decimal.NewFromFloat(h),
		Low:    decimal.NewFromFloat(l),
		Close:  decimal.NewFromFloat(c),
		Volume: decimal.NewFromFloat(v),
	}
}

// trendingCandles builds n hourly candles with Close rising by step each bar,
// enough rows to clear ComputeIndicators' minimum (28, and 34 for a defined
// MACD signal line).
func trendingCandles(n int, start, step float64) []Candle {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Candle, n)
	price := start
	for i := 0; i < n; i++ {
		out[i] = mkCandle(base.Add(time.Duration(i)*time.Hour), price, price+0.2, price-0.2, price, 100+float64(i))
		price += step
	}
	return out
}

func TestComputeIndicators_InsufficientRowsReturnsDefault(t *testing.T) {
	c := trendingCandles(10, 100, 0.1)
	ind := ComputeIndicators(c)
	assert.False(t, ind.Valid)
	assert.Equal(t, 50.0, ind.RSI14)
	assert.Equal(t, 0.0001, ind.ATR14)
}

func TestComputeIndicators_UptrendProducesValidSet(t *testing.T) {
	c := trendingCandles(60, 100, 0.3)
	ind := ComputeIndicators(c)
	require.True(t, ind.Valid)
	assert.Greater(t, ind.EMA12, ind.EMA26, "steadily rising closes should push ema12 above ema26")
	assert.Greater(t, ind.RSI14, 50.0)
}

func TestRSI_FlatSeriesIsNeutral(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := make([]Candle, 30)
	for i := range c {
		c[i] = mkCandle(base.Add(time.Duration(i)*time.Hour), 100, 100.1, 99.9, 100, 10)
	}
	rsi := RSI(c, 14)
	// Zero gain and zero loss on a flat series is neutral (50).
	assert.Equal(t, 50.0, rsi[20])
}

func TestATRSeries_ZeroRangeIsZero(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := make([]Candle, 20)
	for i := range c {
		c[i] = mkCandle(base.Add(time.Duration(i)*time.Hour), 100, 100, 100, 100, 10)
	}
	atr := ATRSeries(c, 14)
	assert.InDelta(t, 0.0, atr[19], 1e-9)
}

func TestComputeMicrostructure_EmptyTicksReturnsDefault(t *testing.T) {
	ms := ComputeMicrostructure(nil, nil, nil)
	assert.False(t, ms.Valid)
	assert.Equal(t, 0.0001, ms.ATR14)
}

func TestComputeMicrostructure_SpreadAndImbalance(t *testing.T) {
	ticks := []TickerTick{{
		EventTime: time.Now(),
		LastPrice: decimal.NewFromFloat(100),
		BestBid:   decimal.NewFromFloat(99.9),
		BestAsk:   decimal.NewFromFloat(100.1),
	}}
	depth := []DepthSnapshot{{
		Bids: []DepthLevel{{Price: decimal.NewFromFloat(99.9), Qty: decimal.NewFromFloat(3)}},
		Asks: []DepthLevel{{Price: decimal.NewFromFloat(100.1), Qty: decimal.NewFromFloat(1)}},
	}}
	ms := ComputeMicrostructure(ticks, depth, nil)
	require.True(t, ms.Valid)
	assert.InDelta(t, 0.2/99.9, ms.BidAskSpread, 1e-6)
	assert.InDelta(t, 0.75, ms.OrderBookImbalance, 1e-6)
}
