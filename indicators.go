// FILE: indicators.go
// Package main – Technical indicators for the grid engine (C3).
//
// Pure functions over a buffer snapshot:
//   • EMASeries(c, n)         – Exponential Moving Average, seeded with SMA(n)
//   • RSI(c, n)               – Relative Strength Index (Wilder's smoothing)
//   • ADXSeries(c, n)         – Average Directional Index (Wilder's smoothing)
//   • ATRSeries(c, n)         – Average True Range (Wilder's smoothing)
//   • MACDSeries(c)           – ema12-ema26, signal=ema9(macd), hist
//   • ComputeIndicators(c)    – assembles the full IndicatorSet for one buffer
//   • ComputeMicrostructure(ticks, depth, candles) – bid/ask/imbalance/volume surge
//
// Notes
//   - All functions accept a slice of Candle (defined in types.go).
//   - Series outputs are aligned to input length; unavailable lookbacks emit NaN/0 as noted.
//   - ComputeIndicators never returns a partial result: on insufficient rows
//     it returns the defined default set (spec.md §4.3).
//   - ComputeMicrostructure returns its default set only when there is no
//     ticker tick or no usable best bid/ask; with too few candles it still
//     returns a valid set whose candle-derived fields keep their defaults
//     (ema5 0, volume surge 0, atr14 0.0001).
package main

import (
	"math"
)

// SMA returns the n-period simple moving average of Close, aligned to c.
// For indices < n-1, the function returns NaN.
func SMA(c []Candle, n int) []float64 {
	closes := closesF(c)
	out := make([]float64, len(closes))
	if n <= 0 || len(closes) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	for i := range closes {
		sum += closes[i]
		if i >= n {
			sum -= closes[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// EMASeries returns the n-period exponential moving average of Close,
// seeded with SMA(n) at the first full window, aligned to c.
func EMASeries(c []Candle, n int) []float64 {
	closes := closesF(c)
	out := make([]float64, len(closes))
	if n <= 0 || len(closes) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	sma := SMA(c, n)
	k := 2.0 / (float64(n) + 1.0)
	for i := range closes {
		switch {
		case i < n-1:
			out[i] = math.NaN()
		case i == n-1:
			out[i] = sma[i]
		default:
			out[i] = closes[i]*k + out[i-1]*(1-k)
		}
	}
	return out
}

// emaOf runs the same seeded-EMA recurrence over an arbitrary series
// (used for MACD's signal line, ema9(macd)). A leading run of NaN values is
// skipped: the SMA seed is taken over the first n values after it.
func emaOf(series []float64, n int) []float64 {
	out := make([]float64, len(series))
	if n <= 0 || len(series) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	start := 0
	for start < len(series) && math.IsNaN(series[start]) {
		start++
	}
	var sum float64
	k := 2.0 / (float64(n) + 1.0)
	for i := range series {
		if i >= start && i <= start+n-1 {
			sum += series[i]
		}
		switch {
		case i < start+n-1:
			out[i] = math.NaN()
		case i == start+n-1:
			out[i] = sum / float64(n)
		default:
			out[i] = series[i]*k + out[i-1]*(1-k)
		}
	}
	return out
}

// RSI returns the n-period Relative Strength Index using Wilder's smoothing.
// Indices before the first full window are zero (0).
func RSI(c []Candle, n int) []float64 {
	closes := closesF(c)
	out := make([]float64, len(closes))
	if n <= 0 || len(closes) == 0 {
		return out
	}
	// rsiFrom maps average gain/loss to RSI: 100 when there are gains and no
	// losses, 50 (neutral) when there is neither.
	rsiFrom := func(g, l float64) float64 {
		switch {
		case l != 0:
			return 100.0 - (100.0 / (1.0 + g/l))
		case g > 0:
			return 100.0
		default:
			return 50.0
		}
	}
	var gain, loss float64
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if i <= n {
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
			if i == n {
				out[i] = rsiFrom(gain/float64(n), loss/float64(n))
			}
		} else {
			if d > 0 {
				gain = (gain*float64(n-1) + d) / float64(n)
				loss = (loss * float64(n-1)) / float64(n)
			} else {
				gain = (gain * float64(n-1)) / float64(n)
				loss = (loss*float64(n-1) - d) / float64(n)
			}
			out[i] = rsiFrom(gain, loss)
		}
	}
	return out
}

// ATRSeries returns the n-period Average True Range via Wilder's smoothing
// of the true range series.
func ATRSeries(c []Candle, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 0 || len(c) == 0 {
		return out
	}
	highs, lows, closes := highsF(c), lowsF(c), closesF(c)
	tr := make([]float64, len(c))
	for i := range c {
		if i == 0 {
			tr[i] = highs[i] - lows[i]
			continue
		}
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	var atr float64
	for i := range tr {
		switch {
		case i < n:
			atr += tr[i]
			if i == n-1 {
				atr /= float64(n)
				out[i] = atr
			}
		default:
			atr = (atr*float64(n-1) + tr[i]) / float64(n)
			out[i] = atr
		}
	}
	return out
}

// ADXSeries returns the n-period Average Directional Index via Wilder's
// smoothing of +DI/-DI and DX.
func ADXSeries(c []Candle, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 0 || len(c) < 2 {
		return out
	}
	highs, lows, closes := highsF(c), lowsF(c), closesF(c)
	plusDM := make([]float64, len(c))
	minusDM := make([]float64, len(c))
	tr := make([]float64, len(c))
	for i := 1; i < len(c); i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	var smTR, smPlusDM, smMinusDM float64
	dx := make([]float64, len(c))
	for i := 1; i < len(c); i++ {
		if i <= n {
			smTR += tr[i]
			smPlusDM += plusDM[i]
			smMinusDM += minusDM[i]
			if i == n {
				plusDI := 100 * (smPlusDM / smTR)
				minusDI := 100 * (smMinusDM / smTR)
				dx[i] = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
			}
			continue
		}
		smTR = smTR - (smTR / float64(n)) + tr[i]
		smPlusDM = smPlusDM - (smPlusDM / float64(n)) + plusDM[i]
		smMinusDM = smMinusDM - (smMinusDM / float64(n)) + minusDM[i]
		plusDI := 100 * (smPlusDM / smTR)
		minusDI := 100 * (smMinusDM / smTR)
		sum := plusDI + minusDI
		if sum == 0 {
			dx[i] = 0
		} else {
			dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
		}
	}

	var adx float64
	start := 2 * n
	for i := n; i < len(c); i++ {
		if i < start {
			adx += dx[i]
			if i == start-1 {
				adx /= float64(n)
				out[i] = adx
			}
			continue
		}
		adx = (adx*float64(n-1) + dx[i]) / float64(n)
		out[i] = adx
	}
	return out
}

// MACDSeries returns macd, macd_signal and macd_hist series aligned to c.
func MACDSeries(c []Candle) (macd, signal, hist []float64) {
	ema12 := EMASeries(c, 12)
	ema26 := EMASeries(c, 26)
	macd = make([]float64, len(c))
	for i := range c {
		macd[i] = ema12[i] - ema26[i]
	}
	signal = emaOf(macd, 9)
	hist = make([]float64, len(c))
	for i := range c {
		hist[i] = macd[i] - signal[i]
	}
	return macd, signal, hist
}

// ComputeIndicators assembles the full candle-derived IndicatorSet for the
// latest row of c. It never returns a partially computed set: if c has
// fewer than max(26, period*2) rows, or the MACD signal line is not yet
// defined (it needs 34 rows), the defined default set is returned.
func ComputeIndicators(c []Candle) IndicatorSet {
	const period = 14
	minRows := period * 2
	if minRows < 26 {
		minRows = 26
	}
	if len(c) < minRows {
		return defaultIndicatorSet()
	}
	last := len(c) - 1
	ema12 := EMASeries(c, 12)
	ema26 := EMASeries(c, 26)
	rsi := RSI(c, period)
	adx := ADXSeries(c, period)
	atr := ATRSeries(c, period)
	macd, signal, hist := MACDSeries(c)

	if math.IsNaN(ema12[last]) || math.IsNaN(ema26[last]) || math.IsNaN(signal[last]) {
		return defaultIndicatorSet()
	}
	return IndicatorSet{
		EMA12:      ema12[last],
		EMA26:      ema26[last],
		RSI14:      rsi[last],
		ADX14:      adx[last],
		ATR14:      atr[last],
		MACD:       macd[last],
		MACDSignal: signal[last],
		MACDHist:   hist[last],
		Valid:      true,
	}
}

// ComputeMicrostructure assembles the ticker+depth derived MicrostructureSet
// using the latest ticker tick, the latest depth snapshot, and the candle
// buffer for ema5/volume-surge context.
func ComputeMicrostructure(ticks []TickerTick, depth []DepthSnapshot, candles []Candle) MicrostructureSet {
	if len(ticks) == 0 {
		return defaultMicrostructureSet()
	}
	latestTick := ticks[len(ticks)-1]
	bestBid, _ := latestTick.BestBid.Float64()
	bestAsk, _ := latestTick.BestAsk.Float64()
	if bestBid <= 0 || bestAsk <= 0 {
		if len(depth) == 0 || len(depth[len(depth)-1].Bids) == 0 || len(depth[len(depth)-1].Asks) == 0 {
			return defaultMicrostructureSet()
		}
		d := depth[len(depth)-1]
		bestBid, _ = d.Bids[0].Price.Float64()
		bestAsk, _ = d.Asks[0].Price.Float64()
	}
	spread := 0.0
	if bestBid > 0 {
		spread = (bestAsk - bestBid) / bestBid
	}

	imbalance := 0.0
	if len(depth) > 0 {
		d := depth[len(depth)-1]
		const topN = 10
		var bidSum, askSum float64
		for i := 0; i < topN && i < len(d.Bids); i++ {
			q, _ := d.Bids[i].Qty.Float64()
			bidSum += q
		}
		for i := 0; i < topN && i < len(d.Asks); i++ {
			q, _ := d.Asks[i].Qty.Float64()
			askSum += q
		}
		if bidSum+askSum > 0 {
			imbalance = bidSum / (bidSum + askSum)
		}
	}

	ema5 := 0.0
	volSurge := 0.0
	if len(candles) >= 21 {
		ema5Series := EMASeries(candles, 5)
		ema5 = ema5Series[len(ema5Series)-1]
		volumes := volumesF(candles)
		last := volumes[len(volumes)-1]
		var sum float64
		window := volumes[len(volumes)-21 : len(volumes)-1]
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(len(window))
		if mean > 0 {
			volSurge = last / mean
		}
	}

	atr := 0.0001
	if len(candles) >= 28 {
		atrSeries := ATRSeries(candles, 14)
		if v := atrSeries[len(atrSeries)-1]; v > 0 {
			atr = v
		}
	}

	return MicrostructureSet{
		BidAskSpread:       spread,
		OrderBookImbalance: imbalance,
		EMA5:               ema5,
		ATR14:              atr,
		VolumeSurgeRatio:   volSurge,
		BestAsk:            latestTick.BestAsk,
		Valid:              true,
	}
}
