// FILE: config.go
// Package main – Runtime configuration model and loader (spec.md §6).
//
// Defines the Config struct (every knob spec.md §6's table names) and a
// loader that populates it from environment variables, in the teacher's
// style: no third-party flag/config library, just loadBotEnv() + getEnv*
// helpers (see env.go and DESIGN.md for why that stays stdlib).
package main

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds every runtime knob the grid engine uses.
type Config struct {
	// Trading target
	Symbol Symbol

	// Venue wiring
	RESTBaseURL string
	WSURL       string
	APIKey      string
	APISecret   string
	TickSize    decimal.Decimal
	LotSize     decimal.Decimal

	// Control loop
	TickPeriod         time.Duration
	GridLevelsN        int
	LevelsBelow        int
	LevelsAbove        int
	ATRMultiplier      float64
	MinSpacingPct      float64
	NotionalFraction   float64
	ResetTicksAboveTop int
	RegimeADXThreshold float64
	RegimeRSIUpper     float64
	RegimeRSILower     float64
	MinNotionalUSD     float64

	// Safety / ops
	DryRun bool
	Port   int
}

// loadConfigFromEnv reads the process env (already hydrated by
// loadBotEnv()) and returns a Config with the defaults from spec.md §6.
func loadConfigFromEnv() Config {
	return Config{
		Symbol: NormalizeSymbol(getEnv("SYMBOL", "BTC-USD")),

		RESTBaseURL: getEnv("REST_BASE_URL", "https://api.exchange.example/v1"),
		WSURL:       getEnv("WS_URL", "wss://ws.exchange.example/v1"),
		APIKey:      getEnv("API_KEY", ""),
		APISecret:   getEnv("API_SECRET", ""),
		TickSize:    parseDecimalOrDefault(getEnv("TICK_SIZE", "0.01")),
		LotSize:     parseDecimalOrDefault(getEnv("LOT_SIZE", "0.0001")),

		TickPeriod:         time.Duration(getEnvInt("TICK_PERIOD_S", 45)) * time.Second,
		GridLevelsN:        getEnvInt("GRID_LEVELS_N", 20),
		LevelsBelow:        getEnvInt("LEVELS_BELOW", 5),
		LevelsAbove:        getEnvInt("LEVELS_ABOVE", 1),
		ATRMultiplier:      getEnvFloat("ATR_MULTIPLIER", 2.0),
		MinSpacingPct:      getEnvFloat("MIN_SPACING_PCT", 0.012),
		NotionalFraction:   getEnvFloat("NOTIONAL_FRACTION", 0.75),
		ResetTicksAboveTop: getEnvInt("RESET_TICKS_ABOVE_TOP", 30),
		RegimeADXThreshold: getEnvFloat("REGIME_ADX_THRESHOLD", 20),
		RegimeRSIUpper:     getEnvFloat("REGIME_RSI_UPPER", 70),
		RegimeRSILower:     getEnvFloat("REGIME_RSI_LOWER", 30),
		MinNotionalUSD:     getEnvFloat("MIN_NOTIONAL_USD", 5.0),

		DryRun: getEnvBool("DRY_RUN", true),
		Port:   getEnvInt("PORT", 8080),
	}
}

func parseDecimalOrDefault(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// GridParams derives geometry/sizing parameters from Config.
func (c Config) GridParams() GridParams {
	return GridParams{
		LevelsN:          c.GridLevelsN,
		LevelsBelow:      c.LevelsBelow,
		LevelsAbove:      c.LevelsAbove,
		ATRMultiplier:    decimal.NewFromFloat(c.ATRMultiplier),
		MinSpacingPct:    decimal.NewFromFloat(c.MinSpacingPct),
		NotionalFraction: decimal.NewFromFloat(c.NotionalFraction),
		Tick:             c.TickSize,
		Lot:              c.LotSize,
	}
}

// RegimeThresholds derives classifier thresholds from Config.
func (c Config) RegimeThresholds() RegimeThresholds {
	return RegimeThresholds{
		ADXThreshold: c.RegimeADXThreshold,
		RSIUpper:     c.RegimeRSIUpper,
		RSILower:     c.RegimeRSILower,
	}
}

// CoordinatorConfig derives the tick-loop config from Config.
func (c Config) CoordinatorConfig() CoordinatorConfig {
	cc := defaultCoordinatorConfig()
	cc.TickPeriod = c.TickPeriod
	cc.ResetTicksAboveTop = c.ResetTicksAboveTop
	cc.MinNotional = decimal.NewFromFloat(c.MinNotionalUSD)
	return cc
}
