// FILE: gateway_dryrun.go
// Package main – dry-run wrapper for the Exchange Gateway (C1).
//
// Dry-run is a runtime option of the gateway, not of callers (spec.md §4.1):
// it wraps any concrete Gateway (typically *restGateway, but works over a
// fixture gateway in tests too) and intercepts order-mutating calls. Orders
// get a deterministic id `dryrun:{side}:{price}:{qty}` instead of the
// teacher's broker_paper.go random uuid.New() — this spec's fixture-replay
// testability requirement (scenarios A-F) needs the same inputs to always
// produce the same id, which a random id can't guarantee.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceFixtures supplies configurable balance reads for dry-run mode.
type BalanceFixtures map[string]decimal.Decimal

type dryRunGateway struct {
	underlying Gateway
	balances   BalanceFixtures

	mu     sync.Mutex
	book   map[string]Order // orderID -> order
	events []Order          // append-only history for fetch_orders_since
}

// NewDryRunGateway wraps underlying (used only for market data: FetchCandles,
// Subscribe*, TickSize/LotSize) and serves order-mutating calls from an
// internal simulated book seeded with balances.
func NewDryRunGateway(underlying Gateway, balances BalanceFixtures) *dryRunGateway {
	return &dryRunGateway{
		underlying: underlying,
		balances:   balances,
		book:       make(map[string]Order),
	}
}

func dryRunOrderID(side OrderSide, price, qty decimal.Decimal) string {
	return fmt.Sprintf("dryrun:%s:%s:%s", side, price.String(), qty.String())
}

func (g *dryRunGateway) place(symbol Symbol, side OrderSide, price, quantity decimal.Decimal, state OrderState) (string, error) {
	id := dryRunOrderID(side, price, quantity)
	g.mu.Lock()
	defer g.mu.Unlock()
	ord := Order{
		ExternalID: id,
		Symbol:     symbol,
		Side:       side,
		Price:      price,
		Quantity:   quantity,
		State:      state,
		GridLevel:  QuantizeToTick(price, g.underlying.TickSize(symbol)),
		PlacedAt:   time.Now(),
	}
	g.book[id] = ord
	g.events = append(g.events, ord)
	return id, nil
}

func (g *dryRunGateway) CreateLimitBuy(_ context.Context, symbol Symbol, price, quantity decimal.Decimal) (string, error) {
	return g.place(symbol, SideBuy, price, quantity, OrderStateOpen)
}

func (g *dryRunGateway) CreateLimitSell(_ context.Context, symbol Symbol, price, quantity decimal.Decimal) (string, error) {
	return g.place(symbol, SideSell, price, quantity, OrderStateOpen)
}

func (g *dryRunGateway) CreateMarketSell(_ context.Context, symbol Symbol, quantity decimal.Decimal) (string, error) {
	return g.place(symbol, SideSell, decimal.Zero, quantity, OrderStateFilled)
}

func (g *dryRunGateway) CancelOrder(_ context.Context, _ Symbol, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ord, ok := g.book[orderID]
	if !ok {
		return ErrUnknownOrder
	}
	ord.State = OrderStateCancelled
	g.book[orderID] = ord
	return nil
}

func (g *dryRunGateway) CancelAll(_ context.Context, symbol Symbol, side OrderSide) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var ids []string
	for id, ord := range g.book {
		if ord.Symbol != symbol || ord.Side != side || ord.State.terminal() {
			continue
		}
		ord.State = OrderStateCancelled
		g.book[id] = ord
		ids = append(ids, id)
	}
	return ids, nil
}

func (g *dryRunGateway) FetchOpenOrders(_ context.Context, symbol Symbol) ([]Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Order
	for _, ord := range g.book {
		if ord.Symbol == symbol && !ord.State.terminal() {
			out = append(out, ord)
		}
	}
	return out, nil
}

func (g *dryRunGateway) FetchOrdersSince(_ context.Context, symbol Symbol, sinceMs int64) ([]Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Order
	for _, ord := range g.events {
		if ord.Symbol != symbol {
			continue
		}
		if sinceMs > 0 && ord.PlacedAt.UnixMilli() < sinceMs {
			continue
		}
		out = append(out, ord)
	}
	return out, nil
}

func (g *dryRunGateway) GetBalance(_ context.Context, asset string) (decimal.Decimal, error) {
	if v, ok := g.balances[asset]; ok {
		return v, nil
	}
	return decimal.Zero, nil
}

// SetFilled lets a test harness simulate a venue fill for scenario B/E/F.
func (g *dryRunGateway) SetFilled(orderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ord, ok := g.book[orderID]; ok {
		ord.State = OrderStateFilled
		g.book[orderID] = ord
	}
}

func (g *dryRunGateway) FetchCandles(ctx context.Context, symbol Symbol, tf Timeframe, limit int) ([]Candle, error) {
	return g.underlying.FetchCandles(ctx, symbol, tf, limit)
}
func (g *dryRunGateway) SubscribeTicker(ctx context.Context, symbol Symbol) (<-chan TickerTick, error) {
	return g.underlying.SubscribeTicker(ctx, symbol)
}
func (g *dryRunGateway) SubscribeDepth(ctx context.Context, symbol Symbol) (<-chan DepthSnapshot, error) {
	return g.underlying.SubscribeDepth(ctx, symbol)
}
func (g *dryRunGateway) SubscribeCandles(ctx context.Context, symbol Symbol, tf Timeframe) (<-chan Candle, error) {
	return g.underlying.SubscribeCandles(ctx, symbol, tf)
}
func (g *dryRunGateway) TickSize(symbol Symbol) decimal.Decimal { return g.underlying.TickSize(symbol) }
func (g *dryRunGateway) LotSize(symbol Symbol) decimal.Decimal  { return g.underlying.LotSize(symbol) }
func (g *dryRunGateway) Close() error                           { return g.underlying.Close() }
