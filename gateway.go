// FILE: gateway.go
// Package main – Exchange Gateway (C1) interface.
//
// A narrow, capability-typed façade over the venue. The core never talks to
// a REST client or a websocket connection directly; it talks to this
// interface, which is implemented by gateway_rest.go+gateway_ws.go for the
// live venue and by gateway_dryrun.go for simulation.
package main

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway is the capability surface the rest of the engine consumes.
// Implementations own retry/backoff for Transport and RateLimited failures;
// callers only see a final error after exhaustion, or a terminal one.
type Gateway interface {
	CreateLimitBuy(ctx context.Context, symbol Symbol, price, quantity decimal.Decimal) (orderID string, err error)
	CreateLimitSell(ctx context.Context, symbol Symbol, price, quantity decimal.Decimal) (orderID string, err error)
	CreateMarketSell(ctx context.Context, symbol Symbol, quantity decimal.Decimal) (orderID string, err error)
	CancelOrder(ctx context.Context, symbol Symbol, orderID string) error
	CancelAll(ctx context.Context, symbol Symbol, side OrderSide) ([]string, error)
	FetchOpenOrders(ctx context.Context, symbol Symbol) ([]Order, error)
	FetchOrdersSince(ctx context.Context, symbol Symbol, sinceMs int64) ([]Order, error)
	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	FetchCandles(ctx context.Context, symbol Symbol, tf Timeframe, limit int) ([]Candle, error)

	SubscribeTicker(ctx context.Context, symbol Symbol) (<-chan TickerTick, error)
	SubscribeDepth(ctx context.Context, symbol Symbol) (<-chan DepthSnapshot, error)
	SubscribeCandles(ctx context.Context, symbol Symbol, tf Timeframe) (<-chan Candle, error)

	// TickSize/LotSize expose venue precision so the coordinator can quantize
	// grid levels and order quantities without a separate "filters" round trip.
	TickSize(symbol Symbol) decimal.Decimal
	LotSize(symbol Symbol) decimal.Decimal

	// Close releases gateway resources (REST client idle connections, open
	// websocket connections). Idempotent.
	Close() error
}
