// FILE: types.go
// Package main – Shared data model for the grid engine.
//
// These are the primitive types every other file operates on: the market
// data shapes (Candle/TickerTick/DepthSnapshot), the indicator and regime
// outputs, and the order/ledger vocabulary. Prices and quantities are
// decimal.Decimal throughout; indicator math works on plain float64 since
// it's statistics over decimal inputs, not a money ledger.
package main

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Symbol is a normalized trading-pair identifier, e.g. "BTC-USD".
type Symbol string

// NormalizeSymbol upper-cases and trims a raw symbol string into canonical form.
func NormalizeSymbol(raw string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(raw)))
}

// BaseQuote splits a "BASE-QUOTE" symbol into its two assets.
func (s Symbol) BaseQuote() (base, quote string) {
	parts := strings.SplitN(string(s), "-", 2)
	if len(parts) != 2 {
		return string(s), ""
	}
	return parts[0], parts[1]
}

// Timeframe is one of the supported candle aggregation windows.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF6h  Timeframe = "6h"
	TF1d  Timeframe = "1d"
)

// retentionFloor returns the preload horizon for a timeframe: the number of
// candles Preload requests. Indicator validity is decided separately by
// ComputeIndicators' own minimum row count.
func retentionFloor(tf Timeframe) int {
	switch tf {
	case TF1m, TF1d:
		return 60
	case TF1h:
		return 72
	case TF15m, TF6h:
		return 100
	default:
		return 60
	}
}

// Candle is one OHLCV bar, timestamp-aligned to its timeframe boundary.
type Candle struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// closesF extracts Close as float64, the shape the indicator engine wants.
func closesF(c []Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i], _ = c[i].Close.Float64()
	}
	return out
}

func highsF(c []Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i], _ = c[i].High.Float64()
	}
	return out
}

func lowsF(c []Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i], _ = c[i].Low.Float64()
	}
	return out
}

func volumesF(c []Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i], _ = c[i].Volume.Float64()
	}
	return out
}

// TickerTick is a single best-bid/best-ask/last-price update.
type TickerTick struct {
	EventTime  time.Time
	EventID    int64 // 0 when the venue doesn't provide one; falls back to EventTime ordering
	LastPrice  decimal.Decimal
	BestBid    decimal.Decimal
	BestBidQty decimal.Decimal
	BestAsk    decimal.Decimal
	BestAskQty decimal.Decimal
	Volume24h  decimal.Decimal
}

// DepthLevel is one (price, qty) rung of an order book side.
type DepthLevel struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// DepthSnapshot is a top-of-book view, bids descending and asks ascending.
type DepthSnapshot struct {
	EventTime time.Time
	EventID   int64
	Bids      []DepthLevel
	Asks      []DepthLevel
}

// IndicatorSet is the candle-derived indicator tuple for one symbol/timeframe.
// Valid is false when the source buffer had too few rows; the fields then
// hold defaultIndicatorSet's values (RSI14 50, ATR14 0.0001, the rest zero).
type IndicatorSet struct {
	EMA12      float64
	EMA26      float64
	RSI14      float64
	ADX14      float64
	ATR14      float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	Valid      bool
}

// defaultIndicatorSet is spec's explicit sentinel for missing-input cases:
// rsi defaults to 50 (neutral), atr defaults to a small positive floor
// (0.0001), and Valid stays false.
func defaultIndicatorSet() IndicatorSet {
	return IndicatorSet{RSI14: 50, ATR14: 0.0001, Valid: false}
}

// MicrostructureSet is the ticker+depth derived set used for finer-grained
// microstructure reads; ATR14 is duplicated here because spec.md §3 lists it
// in both sets (the geometry step consults the candle-derived one; this one
// is informational for the microstructure consumers).
type MicrostructureSet struct {
	BidAskSpread       float64
	OrderBookImbalance float64
	EMA5               float64
	ATR14              float64
	VolumeSurgeRatio   float64
	BestAsk            decimal.Decimal
	Valid              bool
}

func defaultMicrostructureSet() MicrostructureSet {
	return MicrostructureSet{ATR14: 0.0001, Valid: false}
}

// RegimeState is the discrete trend label produced per timeframe.
type RegimeState string

const (
	RegimeUptrend   RegimeState = "uptrend"
	RegimeDowntrend RegimeState = "downtrend"
	RegimeSideways  RegimeState = "sideways"
	RegimeUnknown   RegimeState = "unknown"
)

// OrderSide is buy or sell.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderState is a per-side order lifecycle state. OrderStateAbsent (the zero
// value) means no order has ever been registered for that side at that level.
type OrderState string

const (
	OrderStateAbsent    OrderState = ""
	OrderStatePending   OrderState = "pending"
	OrderStateOpen      OrderState = "open"
	OrderStateFilled    OrderState = "filled"
	OrderStateCancelled OrderState = "cancelled"
	OrderStateRejected  OrderState = "rejected"
	OrderStateUnknown   OrderState = "unknown"

	// terminal reports whether a state is terminal (no further transitions expected).
)

func (s OrderState) terminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCancelled, OrderStateRejected:
		return true
	default:
		return false
	}
}

// nonTerminal reports whether a side currently occupies a live slot (i.e. it
// counts against the "at most one live order per side per level" invariant).
func (s OrderState) nonTerminal() bool {
	return s != OrderStateAbsent && !s.terminal()
}

// Order is the gateway's view of one resting or historical order.
type Order struct {
	ExternalID string
	Symbol     Symbol
	Side       OrderSide
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	State      OrderState
	GridLevel  decimal.Decimal
	PlacedAt   time.Time
}

// LedgerEntry is the per-grid-level bookkeeping record (spec.md §4.5).
// BuyQuantity/SellQuantity record the quantity placed on each side, so the
// coordinator's sizing step can value open orders without a round trip to
// the exchange.
type LedgerEntry struct {
	Level        decimal.Decimal
	BuyID        string
	BuyState     OrderState
	BuyLocked    bool
	BuyQuantity  decimal.Decimal
	SellID       string
	SellState    OrderState
	SellLocked   bool
	SellQuantity decimal.Decimal
}

// TradeGates holds the long-term and short-term trading permissions.
type TradeGates struct {
	LongTermEnabled  bool
	ShortTermEnabled bool
}
