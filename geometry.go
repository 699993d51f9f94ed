// FILE: geometry.go
// Package main – Grid level geometry and sizing (spec.md §4.6 Steps 8-9).
//
// Pure, deterministic functions: same (P, atr14) always produces the same
// level set (testable property §8, "Geometry" round-trip law). No I/O, no
// locks — this is inline CPU work the coordinator calls directly.
package main

import (
	"sort"

	"github.com/shopspring/decimal"
)

// GridParams are the configuration knobs that shape level geometry and sizing.
type GridParams struct {
	LevelsN          int
	LevelsBelow      int
	LevelsAbove      int
	ATRMultiplier    decimal.Decimal
	MinSpacingPct    decimal.Decimal
	NotionalFraction decimal.Decimal
	Tick             decimal.Decimal
	Lot              decimal.Decimal
}

// defaultGridParams matches spec.md §6's documented defaults.
func defaultGridParams(tick, lot decimal.Decimal) GridParams {
	return GridParams{
		LevelsN:          20,
		LevelsBelow:      5,
		LevelsAbove:      1,
		ATRMultiplier:    decimal.NewFromFloat(2.0),
		MinSpacingPct:    decimal.NewFromFloat(0.012),
		NotionalFraction: decimal.NewFromFloat(0.75),
		Tick:             tick,
		Lot:              lot,
	}
}

// QuantizeToTick rounds price to the nearest multiple of tick (half rounds
// up), which is also how the ledger defines "equal up to tick" (spec.md §4.5
// invariant 3).
func QuantizeToTick(price, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return price
	}
	return price.DivRound(tick, 0).Mul(tick)
}

// QuantizeToLot rounds a quantity down to the nearest multiple of lot, so a
// placement never asks the venue for more than the sized notional affords.
func QuantizeToLot(qty, lot decimal.Decimal) decimal.Decimal {
	if lot.IsZero() {
		return qty
	}
	return qty.Div(lot).Floor().Mul(lot)
}

// Spacing computes S = max(atrMultiplier*atr14, minSpacingPct*P) (spec.md §3).
func Spacing(price decimal.Decimal, atr14 float64, p GridParams) decimal.Decimal {
	atrSpacing := p.ATRMultiplier.Mul(decimal.NewFromFloat(atr14))
	floorSpacing := p.MinSpacingPct.Mul(price)
	if atrSpacing.GreaterThan(floorSpacing) {
		return atrSpacing
	}
	return floorSpacing
}

// BuildGridLevels produces up to LevelsN levels spaced by Spacing: LevelsBelow
// of them below price and the remaining LevelsN-LevelsBelow at or above it,
// quantized to tick (LevelsAbove is not used here; it only limits
// DesiredLevels). Levels are returned ascending.
// If two desired levels round to the same tick after quantization, the
// lower-priced logical level wins (duplicates are dropped keeping the first,
// lower-indexed, occurrence since the slice is built ascending from the
// bottom).
func BuildGridLevels(price decimal.Decimal, atr14 float64, p GridParams) []decimal.Decimal {
	spacing := Spacing(price, atr14, p)
	below := p.LevelsBelow
	start := -below
	seen := make(map[string]bool)
	levels := make([]decimal.Decimal, 0, p.LevelsN)
	for i := start; i < start+p.LevelsN; i++ {
		raw := price.Add(spacing.Mul(decimal.NewFromInt(int64(i))))
		q := QuantizeToTick(raw, p.Tick)
		key := q.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		levels = append(levels, q)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].LessThan(levels[j]) })
	return levels
}

// SizeOrder computes the per-order notional V = notionalFraction *
// (openOrdersValue + quoteBalance) / N and the resulting quantity at level,
// quantized to lot size (spec.md §4.6 Step 9).
func SizeOrder(openOrdersValue, quoteBalance decimal.Decimal, level decimal.Decimal, p GridParams) decimal.Decimal {
	if p.LevelsN <= 0 || level.IsZero() {
		return decimal.Zero
	}
	v := p.NotionalFraction.Mul(openOrdersValue.Add(quoteBalance)).Div(decimal.NewFromInt(int64(p.LevelsN)))
	qty := v.Div(level)
	return QuantizeToLot(qty, p.Lot)
}

// MeetsMinNotional reports whether price*qty clears the minimum order value.
func MeetsMinNotional(price, qty, minNotional decimal.Decimal) bool {
	return price.Mul(qty).GreaterThanOrEqual(minNotional)
}

// NextLevelAbove returns the smallest level in levels strictly greater than
// price, used to place the paired sell one grid step above a filled buy.
func NextLevelAbove(levels []decimal.Decimal, price decimal.Decimal) (decimal.Decimal, bool) {
	for _, l := range levels {
		if l.GreaterThan(price) {
			return l, true
		}
	}
	return decimal.Zero, false
}
