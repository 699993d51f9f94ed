// FILE: gateway_rest.go
// Package main – REST half of the live Exchange Gateway (C1).
//
// restGateway wraps a resty.Client with base URL, timeout, and 5xx retry
// grounded on 0xtitan6-polymarket-mm's exchange.Client (NewClient):
// SetRetryCount/SetRetryWaitTime/AddRetryCondition on status>=500 or
// transport error. Rate limiting is respected by treating 429 the same way
// the retry condition treats 5xx, per spec.md §4.1 ("RateLimited is retried
// internally with respectful delay").
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Credentials is the opaque (api_key, secret) pair the core never reads from
// files or env itself (spec.md §6); callers build it however they like and
// hand it to NewRESTGateway.
type Credentials struct {
	APIKey string
	Secret string
}

type restGateway struct {
	http     *resty.Client
	wsURL    string
	creds    Credentials
	tick     decimal.Decimal
	lot      decimal.Decimal
	symbolFn func(Symbol) string
}

// NewRESTGateway builds the live venue gateway. baseURL/wsURL are the
// venue's REST and websocket roots; tick/lot are the venue's price/quantity
// precision for the single traded symbol (fetched once at startup by the
// caller, e.g. via an exchange-info endpoint not modeled here).
func NewRESTGateway(baseURL, wsURL string, creds Credentials, tick, lot decimal.Decimal) *restGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(5).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(15 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500 || r.StatusCode() == http.StatusTooManyRequests
		}).
		SetHeader("Content-Type", "application/json")

	return &restGateway{
		http:     client,
		wsURL:    wsURL,
		creds:    creds,
		tick:     tick,
		lot:      lot,
		symbolFn: func(s Symbol) string { return string(s) },
	}
}

func (g *restGateway) venueSymbol(s Symbol) string { return g.symbolFn(s) }

func (g *restGateway) TickSize(Symbol) decimal.Decimal { return g.tick }
func (g *restGateway) LotSize(Symbol) decimal.Decimal  { return g.lot }

func (g *restGateway) Close() error {
	g.http.GetClient().CloseIdleConnections()
	return nil
}

type wireOrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason"`
}

func (g *restGateway) classifyStatus(resp *resty.Response, err error, body wireOrderResp) error {
	if err != nil {
		return wrapErr(ErrTransport, "%v", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return wrapErr(ErrAuthentication, "status %d", resp.StatusCode())
	case http.StatusTooManyRequests:
		return wrapErr(ErrRateLimited, "status %d", resp.StatusCode())
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if body.Reason == "insufficient_funds" {
			return wrapErr(ErrInsufficientFunds, "%s", body.Reason)
		}
		return wrapErr(ErrValidationRejected, "%s", body.Reason)
	default:
		return wrapErr(ErrRejected, "status %d: %s", resp.StatusCode(), resp.String())
	}
}

func (g *restGateway) CreateLimitBuy(ctx context.Context, symbol Symbol, price, quantity decimal.Decimal) (string, error) {
	return g.placeOrder(ctx, symbol, "buy", "limit", price, quantity)
}

func (g *restGateway) CreateLimitSell(ctx context.Context, symbol Symbol, price, quantity decimal.Decimal) (string, error) {
	return g.placeOrder(ctx, symbol, "sell", "limit", price, quantity)
}

func (g *restGateway) CreateMarketSell(ctx context.Context, symbol Symbol, quantity decimal.Decimal) (string, error) {
	return g.placeOrder(ctx, symbol, "sell", "market", decimal.Zero, quantity)
}

func (g *restGateway) placeOrder(ctx context.Context, symbol Symbol, side, orderType string, price, quantity decimal.Decimal) (string, error) {
	payload := map[string]any{
		"symbol":   g.venueSymbol(symbol),
		"side":     side,
		"type":     orderType,
		"quantity": quantity.String(),
	}
	if orderType == "limit" {
		payload["price"] = price.String()
	}
	var body wireOrderResp
	resp, err := g.http.R().SetContext(ctx).SetBody(payload).SetResult(&body).Post("/orders")
	if cerr := g.classifyStatus(resp, err, body); cerr != nil {
		return "", cerr
	}
	return body.OrderID, nil
}

func (g *restGateway) CancelOrder(ctx context.Context, symbol Symbol, orderID string) error {
	resp, err := g.http.R().SetContext(ctx).Delete(fmt.Sprintf("/orders/%s", orderID))
	if err != nil {
		return wrapErr(ErrTransport, "%v", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrUnknownOrder
	}
	if resp.StatusCode() >= 400 {
		return wrapErr(ErrRejected, "status %d", resp.StatusCode())
	}
	return nil
}

func (g *restGateway) CancelAll(ctx context.Context, symbol Symbol, side OrderSide) ([]string, error) {
	var body struct {
		CancelledIDs []string `json:"cancelled_ids"`
	}
	resp, err := g.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{"symbol": g.venueSymbol(symbol), "side": string(side)}).
		SetResult(&body).
		Delete("/orders")
	if err != nil {
		return nil, wrapErr(ErrTransport, "%v", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, wrapErr(ErrRejected, "status %d", resp.StatusCode())
	}
	return body.CancelledIDs, nil
}

type wireOrder struct {
	OrderID   string `json:"order_id"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at_ms"`
}

func (w wireOrder) toOrder(symbol Symbol, tick decimal.Decimal) Order {
	state := map[string]OrderState{
		"pending":   OrderStatePending,
		"open":      OrderStateOpen,
		"filled":    OrderStateFilled,
		"cancelled": OrderStateCancelled,
		"canceled":  OrderStateCancelled,
		"rejected":  OrderStateRejected,
	}[w.Status]
	if state == "" {
		state = OrderStateUnknown
	}
	price := parseDecimalOrZero(w.Price)
	return Order{
		ExternalID: w.OrderID,
		Symbol:     symbol,
		Side:       OrderSide(w.Side),
		Price:      price,
		Quantity:   parseDecimalOrZero(w.Quantity),
		State:      state,
		GridLevel:  QuantizeToTick(price, tick),
		PlacedAt:   time.UnixMilli(w.CreatedAt).UTC(),
	}
}

func (g *restGateway) FetchOpenOrders(ctx context.Context, symbol Symbol) ([]Order, error) {
	var body struct {
		Orders []wireOrder `json:"orders"`
	}
	resp, err := g.http.R().SetContext(ctx).
		SetQueryParam("symbol", g.venueSymbol(symbol)).
		SetResult(&body).
		Get("/orders/open")
	if err != nil {
		return nil, wrapErr(ErrTransport, "%v", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, wrapErr(ErrRejected, "status %d", resp.StatusCode())
	}
	out := make([]Order, len(body.Orders))
	for i, w := range body.Orders {
		out[i] = w.toOrder(symbol, g.tick)
	}
	return out, nil
}

func (g *restGateway) FetchOrdersSince(ctx context.Context, symbol Symbol, sinceMs int64) ([]Order, error) {
	var body struct {
		Orders []wireOrder `json:"orders"`
	}
	resp, err := g.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{"symbol": g.venueSymbol(symbol), "since": fmt.Sprintf("%d", sinceMs)}).
		SetResult(&body).
		Get("/orders")
	if err != nil {
		return nil, wrapErr(ErrTransport, "%v", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, wrapErr(ErrRejected, "status %d", resp.StatusCode())
	}
	out := make([]Order, len(body.Orders))
	for i, w := range body.Orders {
		out[i] = w.toOrder(symbol, g.tick)
	}
	return out, nil
}

func (g *restGateway) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	var body struct {
		Available string `json:"available"`
	}
	resp, err := g.http.R().SetContext(ctx).
		SetQueryParam("asset", asset).
		SetResult(&body).
		Get("/balances")
	if err != nil {
		return decimal.Zero, wrapErr(ErrTransport, "%v", err)
	}
	if resp.StatusCode() >= 400 {
		return decimal.Zero, wrapErr(ErrRejected, "status %d", resp.StatusCode())
	}
	return parseDecimalOrZero(body.Available), nil
}

func (g *restGateway) FetchCandles(ctx context.Context, symbol Symbol, tf Timeframe, limit int) ([]Candle, error) {
	var body struct {
		Candles []wireCandleMsg `json:"candles"`
	}
	resp, err := g.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   g.venueSymbol(symbol),
			"interval": string(tf),
			"limit":    fmt.Sprintf("%d", limit),
		}).
		SetResult(&body).
		Get("/candles")
	if err != nil {
		return nil, wrapErr(ErrTransport, "%v", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, wrapErr(ErrRejected, "status %d", resp.StatusCode())
	}
	out := make([]Candle, 0, len(body.Candles))
	for _, c := range body.Candles {
		out = append(out, Candle{
			Time:   time.UnixMilli(c.TimeMs).UTC(),
			Open:   parseDecimalOrZero(c.Open),
			High:   parseDecimalOrZero(c.High),
			Low:    parseDecimalOrZero(c.Low),
			Close:  parseDecimalOrZero(c.Close),
			Volume: parseDecimalOrZero(c.Volume),
		})
	}
	return out, nil
}

func parseDecimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decodeDepthLevels(raw [][]string) []DepthLevel {
	out := make([]DepthLevel, 0, len(raw))
	for _, lvl := range raw {
		if len(lvl) < 2 {
			continue
		}
		out = append(out, DepthLevel{Price: parseDecimalOrZero(lvl[0]), Qty: parseDecimalOrZero(lvl[1])})
	}
	return out
}
