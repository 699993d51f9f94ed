package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRegime_Totality(t *testing.T) {
	th := defaultRegimeThresholds()
	cases := []struct {
		name string
		ind  IndicatorSet
		want RegimeState
	}{
		{"invalid set is unknown", IndicatorSet{Valid: false}, RegimeUnknown},
		{"low adx is sideways regardless of trend", IndicatorSet{Valid: true, ADX14: 19.9, EMA12: 10, EMA26: 5, RSI14: 40}, RegimeSideways},
		{"adx at threshold, bullish cross, rsi under upper", IndicatorSet{Valid: true, ADX14: 20, EMA12: 10, EMA26: 5, RSI14: 65}, RegimeUptrend},
		{"adx above threshold, bearish cross, rsi over lower", IndicatorSet{Valid: true, ADX14: 25, EMA12: 5, EMA26: 10, RSI14: 35}, RegimeDowntrend},
		{"adx above threshold but rsi overbought blocks uptrend", IndicatorSet{Valid: true, ADX14: 25, EMA12: 10, EMA26: 5, RSI14: 75}, RegimeSideways},
		{"adx above threshold but rsi oversold blocks downtrend", IndicatorSet{Valid: true, ADX14: 25, EMA12: 5, EMA26: 10, RSI14: 25}, RegimeSideways},
		{"adx above threshold, emas equal", IndicatorSet{Valid: true, ADX14: 25, EMA12: 7, EMA26: 7, RSI14: 50}, RegimeSideways},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyRegime(tc.ind, th)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRegimeClassifier_ClassifyAllCoreTimeframes(t *testing.T) {
	buf := NewMarketDataBuffer()
	symbol := Symbol("BTC-USD")
	clf := NewRegimeClassifier(buf, defaultRegimeThresholds())

	regimes := clf.ClassifyAll(symbol)
	assert.Equal(t, RegimeUnknown, regimes[TF1h], "empty buffer must classify as unknown, never error")
	assert.Equal(t, RegimeUnknown, regimes[TF1d])
	_, has15m := regimes[TF15m]
	assert.False(t, has15m, "optional timeframes only appear once populated")
}
