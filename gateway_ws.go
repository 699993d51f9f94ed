// FILE: gateway_ws.go
// Package main – streaming half of the live Exchange Gateway (C1).
//
// Each subscription is its own gorilla/websocket connection with
// auto-reconnect and bounded exponential backoff (5s -> 60s per spec.md §5),
// a write-side ping to keep the connection alive, and a read deadline so a
// silently-dead server is detected instead of hanging forever. Grounded on
// 0xtitan6-polymarket-mm's WSFeed (internal/exchange/ws.go): same
// connect-subscribe-read loop shape, generalized over the payload type since
// this gateway fans out three independent stream kinds instead of two fixed
// channel types.
package main

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsPingInterval     = 30 * time.Second
	wsReadTimeout      = 90 * time.Second
	wsWriteTimeout     = 10 * time.Second
	wsMinReconnectWait = 5 * time.Second
	wsMaxReconnectWait = 60 * time.Second
	wsChannelBuffer    = 256
)

// wsStream manages one websocket connection delivering decoded values of
// type T into out. Consumers read from SubscribeTicker/SubscribeDepth/
// SubscribeCandles' returned channel; a full channel drops the newest event
// rather than blocking the reader loop (non-blocking send, spec.md §5 "no
// blocking").
type wsStream[T any] struct {
	url       string
	subscribe any
	decode    func([]byte) (T, bool)
	label     string

	connMu sync.Mutex
	conn   *websocket.Conn

	out chan T
}

func newWSStream[T any](url, label string, subscribe any, decode func([]byte) (T, bool)) *wsStream[T] {
	return &wsStream[T]{
		url:       url,
		label:     label,
		subscribe: subscribe,
		decode:    decode,
		out:       make(chan T, wsChannelBuffer),
	}
}

// Run connects and maintains the stream until ctx is cancelled.
func (s *wsStream[T]) Run(ctx context.Context) {
	backoff := wsMinReconnectWait
	for {
		err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Printf("[WARN] stream %s disconnected, reconnecting in %s: %v", s.label, backoff, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > wsMaxReconnectWait {
			backoff = wsMaxReconnectWait
		}
	}
}

func (s *wsStream[T]) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return wrapErr(ErrTransport, "dial %s: %v", s.label, err)
	}
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	defer func() {
		s.connMu.Lock()
		conn.Close()
		s.conn = nil
		s.connMu.Unlock()
	}()

	if err := s.writeJSON(s.subscribe); err != nil {
		return wrapErr(ErrTransport, "subscribe %s: %v", s.label, err)
	}
	log.Printf("[INFO] stream %s connected", s.label)

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go s.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return wrapErr(ErrTransport, "read %s: %v", s.label, err)
		}
		val, ok := s.decode(msg)
		if !ok {
			continue
		}
		select {
		case s.out <- val:
		default:
			log.Printf("[WARN] stream %s channel full, dropping event", s.label)
		}
	}
}

func (s *wsStream[T]) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.writeMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WARN] stream %s ping failed: %v", s.label, err)
				return
			}
		}
	}
}

func (s *wsStream[T]) writeJSON(v any) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return wrapErr(ErrTransport, "not connected")
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteJSON(v)
}

func (s *wsStream[T]) writeMessage(msgType int, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return wrapErr(ErrTransport, "not connected")
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(msgType, data)
}

// wireTickerMsg is the assumed venue wire shape for a ticker event.
type wireTickerMsg struct {
	EventTimeMs int64  `json:"event_time_ms"`
	EventID     int64  `json:"event_id"`
	LastPrice   string `json:"last_price"`
	BestBid     string `json:"best_bid"`
	BestBidQty  string `json:"best_bid_qty"`
	BestAsk     string `json:"best_ask"`
	BestAskQty  string `json:"best_ask_qty"`
	Volume24h   string `json:"volume_24h"`
}

// wireDepthMsg is the assumed venue wire shape for a depth snapshot.
type wireDepthMsg struct {
	EventTimeMs int64      `json:"event_time_ms"`
	EventID     int64      `json:"event_id"`
	Bids        [][]string `json:"bids"` // [price, qty] descending
	Asks        [][]string `json:"asks"` // [price, qty] ascending
}

// wireCandleMsg is the assumed venue wire shape for a closed candle.
type wireCandleMsg struct {
	TimeMs int64  `json:"time_ms"`
	Closed bool   `json:"closed"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

func (g *restGateway) SubscribeTicker(ctx context.Context, symbol Symbol) (<-chan TickerTick, error) {
	venueSym := g.venueSymbol(symbol)
	stream := newWSStream[TickerTick](g.wsURL, "ticker:"+string(symbol),
		map[string]any{"op": "subscribe", "channel": "ticker", "symbol": venueSym},
		func(raw []byte) (TickerTick, bool) {
			var m wireTickerMsg
			if err := json.Unmarshal(raw, &m); err != nil {
				return TickerTick{}, false
			}
			return TickerTick{
				EventTime:  time.UnixMilli(m.EventTimeMs).UTC(),
				EventID:    m.EventID,
				LastPrice:  parseDecimalOrZero(m.LastPrice),
				BestBid:    parseDecimalOrZero(m.BestBid),
				BestBidQty: parseDecimalOrZero(m.BestBidQty),
				BestAsk:    parseDecimalOrZero(m.BestAsk),
				BestAskQty: parseDecimalOrZero(m.BestAskQty),
				Volume24h:  parseDecimalOrZero(m.Volume24h),
			}, true
		})
	go stream.Run(ctx)
	return stream.out, nil
}

func (g *restGateway) SubscribeDepth(ctx context.Context, symbol Symbol) (<-chan DepthSnapshot, error) {
	venueSym := g.venueSymbol(symbol)
	stream := newWSStream[DepthSnapshot](g.wsURL, "depth:"+string(symbol),
		map[string]any{"op": "subscribe", "channel": "depth", "symbol": venueSym, "depth": 20},
		func(raw []byte) (DepthSnapshot, bool) {
			var m wireDepthMsg
			if err := json.Unmarshal(raw, &m); err != nil {
				return DepthSnapshot{}, false
			}
			return DepthSnapshot{
				EventTime: time.UnixMilli(m.EventTimeMs).UTC(),
				EventID:   m.EventID,
				Bids:      decodeDepthLevels(m.Bids),
				Asks:      decodeDepthLevels(m.Asks),
			}, true
		})
	go stream.Run(ctx)
	return stream.out, nil
}

func (g *restGateway) SubscribeCandles(ctx context.Context, symbol Symbol, tf Timeframe) (<-chan Candle, error) {
	venueSym := g.venueSymbol(symbol)
	stream := newWSStream[Candle](g.wsURL, "candles:"+string(symbol)+":"+string(tf),
		map[string]any{"op": "subscribe", "channel": "candles", "symbol": venueSym, "interval": string(tf)},
		func(raw []byte) (Candle, bool) {
			var m wireCandleMsg
			if err := json.Unmarshal(raw, &m); err != nil || !m.Closed {
				return Candle{}, false
			}
			return Candle{
				Time:   time.UnixMilli(m.TimeMs).UTC(),
				Open:   parseDecimalOrZero(m.Open),
				High:   parseDecimalOrZero(m.High),
				Low:    parseDecimalOrZero(m.Low),
				Close:  parseDecimalOrZero(m.Close),
				Volume: parseDecimalOrZero(m.Volume),
			}, true
		})
	go stream.Run(ctx)
	return stream.out, nil
}
