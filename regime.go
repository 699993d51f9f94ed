// FILE: regime.go
// Package main – Regime Classifier (C4).
//
// A deterministic, total mapping from IndicatorSet to RegimeState. No
// learned weights, no hidden state: the same indicator tuple always yields
// the same label, which is what makes the grid coordinator's gate logic
// auditable.
package main

// RegimeThresholds are the configuration-supplied boundaries from spec.md §6.
type RegimeThresholds struct {
	ADXThreshold float64
	RSIUpper     float64
	RSILower     float64
}

// defaultRegimeThresholds returns the canonical defaults (ADX=20, RSI 70/30).
func defaultRegimeThresholds() RegimeThresholds {
	return RegimeThresholds{ADXThreshold: 20, RSIUpper: 70, RSILower: 30}
}

// classifyRegime implements the canonical rule table from spec.md §3:
//
//	sideways  if adx14 < threshold
//	uptrend   if adx14 >= threshold && ema12 > ema26 && rsi14 < rsiUpper
//	downtrend if adx14 >= threshold && ema12 < ema26 && rsi14 > rsiLower
//	sideways  otherwise
//	unknown   if the indicator set is not valid
//
// It is a total function: every branch assigns a label, so it never falls
// through unassigned (testable property §8.8).
func classifyRegime(ind IndicatorSet, th RegimeThresholds) RegimeState {
	if !ind.Valid {
		return RegimeUnknown
	}
	if ind.ADX14 < th.ADXThreshold {
		return RegimeSideways
	}
	switch {
	case ind.EMA12 > ind.EMA26 && ind.RSI14 < th.RSIUpper:
		return RegimeUptrend
	case ind.EMA12 < ind.EMA26 && ind.RSI14 > th.RSILower:
		return RegimeDowntrend
	default:
		return RegimeSideways
	}
}

// RegimeClassifier ties the pure classification rule to a buffer so callers
// can ask "what's the regime on 1h/1d right now" without recomputing
// indicators by hand.
type RegimeClassifier struct {
	buffer     *MarketDataBuffer
	thresholds RegimeThresholds
}

// NewRegimeClassifier builds a classifier reading from buf with th thresholds.
func NewRegimeClassifier(buf *MarketDataBuffer, th RegimeThresholds) *RegimeClassifier {
	return &RegimeClassifier{buffer: buf, thresholds: th}
}

// Classify computes indicators for (symbol, tf) from the buffer snapshot and
// returns the classified regime.
func (r *RegimeClassifier) Classify(symbol Symbol, tf Timeframe) RegimeState {
	candles := r.buffer.SnapshotCandles(symbol, tf)
	ind := ComputeIndicators(candles)
	return classifyRegime(ind, r.thresholds)
}

// ClassifyAll returns the regime for the canonical timeframes (1h short-term,
// 1d long-term), plus 15m/6h when those buffers happen to be populated.
func (r *RegimeClassifier) ClassifyAll(symbol Symbol) map[Timeframe]RegimeState {
	out := map[Timeframe]RegimeState{
		TF1h: r.Classify(symbol, TF1h),
		TF1d: r.Classify(symbol, TF1d),
	}
	for _, tf := range []Timeframe{TF15m, TF6h} {
		if r.buffer.Len(symbol, tf) > 0 {
			out[tf] = r.Classify(symbol, tf)
		}
	}
	return out
}
