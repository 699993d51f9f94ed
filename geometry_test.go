package main

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestQuantizeToTick_HalfRoundsUp(t *testing.T) {
	tick := d("0.01")
	assert.True(t, QuantizeToTick(d("0.105"), tick).Equal(d("0.11")))
	assert.True(t, QuantizeToTick(d("0.104"), tick).Equal(d("0.10")))
}

func TestQuantizeToLot_RoundsDown(t *testing.T) {
	lot := d("0.001")
	got := QuantizeToLot(d("1.2345"), lot)
	assert.True(t, got.Equal(d("1.234")), "got %s", got)
}

func TestSpacing_FloorAppliesWhenATRIsZero(t *testing.T) {
	p := defaultGridParams(d("0.01"), d("0.0001"))
	price := d("0.10000")
	s := Spacing(price, 0, p)
	assert.True(t, s.Equal(d("0.0012")), "0.012 * 0.1 floor should apply when atr14 is zero, got %s", s)
}

func TestSpacing_ATRDominatesWhenLarger(t *testing.T) {
	p := defaultGridParams(d("0.01"), d("0.0001"))
	price := d("0.10000")
	s := Spacing(price, 0.00200, p) // atrMultiplier(2.0)*0.002 = 0.004 > 0.012*0.1=0.0012
	assert.True(t, s.Equal(d("0.004")), "got %s", s)
}

// TestBuildGridLevels_ScenarioA matches spec.md §8 scenario A: cold start
// sideways, last_price=0.10000, atr14(1h)=0.00200.
func TestBuildGridLevels_ScenarioA(t *testing.T) {
	p := defaultGridParams(d("0.0001"), d("1"))
	price := d("0.10000")
	levels := BuildGridLevels(price, 0.00200, p)
	require.Len(t, levels, 20)
	want := []string{"0.08800", "0.09200", "0.09600", "0.10000", "0.10400"}
	var gotSubset []string
	for _, l := range levels {
		for _, w := range want {
			if l.Equal(d(w)) {
				gotSubset = append(gotSubset, w)
			}
		}
	}
	assert.ElementsMatch(t, want, gotSubset)
}

func TestBuildGridLevels_DeterministicForFixedInputs(t *testing.T) {
	p := defaultGridParams(d("0.01"), d("0.0001"))
	a := BuildGridLevels(d("100"), 1.5, p)
	b := BuildGridLevels(d("100"), 1.5, p)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.True(t, a[i].Equal(b[i]))
	}
}

func TestBuildGridLevels_DuplicateTicksKeepLowerPrice(t *testing.T) {
	// A huge tick size forces adjacent raw levels to collide after
	// quantization; the lower-priced logical level should win and levels
	// stay strictly ascending with no duplicate entries.
	p := defaultGridParams(d("1"), d("0.0001"))
	p.LevelsBelow = 5
	p.LevelsN = 20
	p.MinSpacingPct = decimal.Zero               // no floor, so the spacing is the atr term alone
	levels := BuildGridLevels(d("100"), 0.01, p) // tiny atr -> tiny spacing -> many collisions at tick=1
	seen := make(map[string]bool)
	for _, l := range levels {
		key := l.String()
		assert.False(t, seen[key], "duplicate level %s survived quantization", key)
		seen[key] = true
	}
}

func TestSizeOrder_NotionalFormula(t *testing.T) {
	p := defaultGridParams(d("0.01"), d("0.0001"))
	qty := SizeOrder(d("0"), d("1000"), d("100"), p)
	// V = 0.75 * (0 + 1000) / 20 = 37.5 ; qty = 37.5/100 = 0.375
	assert.True(t, qty.Equal(d("0.375")), "got %s", qty)
}

func TestMeetsMinNotional(t *testing.T) {
	assert.True(t, MeetsMinNotional(d("100"), d("0.1"), d("5")))
	assert.False(t, MeetsMinNotional(d("100"), d("0.01"), d("5")))
}

func TestNextLevelAbove(t *testing.T) {
	levels := []decimal.Decimal{d("95"), d("100"), d("105")}
	next, ok := NextLevelAbove(levels, d("96"))
	require.True(t, ok)
	assert.True(t, next.Equal(d("100")))

	_, ok = NextLevelAbove(levels, d("105"))
	assert.False(t, ok, "no level strictly above the highest")
}
