package main

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// fakeGateway is a minimal, test-only Gateway implementation that lets unit
// tests drive candle preload, order placement and balance reads without
// touching the network. Streaming subscriptions return closed channels since
// no test in this package exercises live streaming.
type fakeGateway struct {
	mu sync.Mutex

	candles map[Timeframe][]Candle
	balance map[string]decimal.Decimal

	orders      []Order
	nextOrderID int

	createErr error
	cancelErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		candles: make(map[Timeframe][]Candle),
		balance: make(map[string]decimal.Decimal),
	}
}

func (g *fakeGateway) CreateLimitBuy(_ context.Context, symbol Symbol, price, quantity decimal.Decimal) (string, error) {
	return g.place(symbol, SideBuy, price, quantity)
}

func (g *fakeGateway) CreateLimitSell(_ context.Context, symbol Symbol, price, quantity decimal.Decimal) (string, error) {
	return g.place(symbol, SideSell, price, quantity)
}

func (g *fakeGateway) CreateMarketSell(_ context.Context, symbol Symbol, quantity decimal.Decimal) (string, error) {
	return g.place(symbol, SideSell, decimal.Zero, quantity)
}

func (g *fakeGateway) place(symbol Symbol, side OrderSide, price, qty decimal.Decimal) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.nextOrderID++
	id := "fake-" + string(rune('a'+g.nextOrderID))
	g.orders = append(g.orders, Order{ExternalID: id, Symbol: symbol, Side: side, Price: price, Quantity: qty, State: OrderStateOpen, GridLevel: price})
	return id, nil
}

func (g *fakeGateway) CancelOrder(_ context.Context, _ Symbol, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return g.cancelErr
	}
	for i, o := range g.orders {
		if o.ExternalID == orderID {
			g.orders[i].State = OrderStateCancelled
		}
	}
	return nil
}

func (g *fakeGateway) CancelAll(_ context.Context, symbol Symbol, side OrderSide) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	var ids []string
	for i, o := range g.orders {
		if o.Symbol == symbol && o.Side == side && o.State == OrderStateOpen {
			g.orders[i].State = OrderStateCancelled
			ids = append(ids, o.ExternalID)
		}
	}
	return ids, nil
}

func (g *fakeGateway) FetchOpenOrders(_ context.Context, symbol Symbol) ([]Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Order
	for _, o := range g.orders {
		if o.Symbol == symbol && o.State == OrderStateOpen {
			out = append(out, o)
		}
	}
	return out, nil
}

func (g *fakeGateway) FetchOrdersSince(_ context.Context, symbol Symbol, _ int64) ([]Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Order
	for _, o := range g.orders {
		if o.Symbol == symbol {
			out = append(out, o)
		}
	}
	return out, nil
}

func (g *fakeGateway) GetBalance(_ context.Context, asset string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balance[asset], nil
}

func (g *fakeGateway) FetchCandles(_ context.Context, _ Symbol, tf Timeframe, limit int) ([]Candle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := g.candles[tf]
	if limit > 0 && len(c) > limit {
		c = c[len(c)-limit:]
	}
	out := make([]Candle, len(c))
	copy(out, c)
	return out, nil
}

func (g *fakeGateway) SubscribeTicker(_ context.Context, _ Symbol) (<-chan TickerTick, error) {
	ch := make(chan TickerTick)
	close(ch)
	return ch, nil
}

func (g *fakeGateway) SubscribeDepth(_ context.Context, _ Symbol) (<-chan DepthSnapshot, error) {
	ch := make(chan DepthSnapshot)
	close(ch)
	return ch, nil
}

func (g *fakeGateway) SubscribeCandles(_ context.Context, _ Symbol, _ Timeframe) (<-chan Candle, error) {
	ch := make(chan Candle)
	close(ch)
	return ch, nil
}

func (g *fakeGateway) TickSize(_ Symbol) decimal.Decimal { return d("0.01") }
func (g *fakeGateway) LotSize(_ Symbol) decimal.Decimal  { return d("0.0001") }
func (g *fakeGateway) Close() error                      { return nil }
