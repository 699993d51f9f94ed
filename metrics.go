// FILE: metrics.go
// Package main – Prometheus metrics for observability.
//
// Exposes the metrics the grid engine updates during operation:
//   • grid_orders_total{mode,side}        – Count of orders placed (mode: dryrun|live)
//   • grid_cancels_total{side,reason}     – Count of cancellations issued
//   • grid_regime{symbol,timeframe,regime} – Current regime as a labeled gauge (1=active)
//   • grid_gate_enabled{symbol,gate}      – Trade gate state (1=enabled, 0=disabled)
//   • grid_levels_count{symbol}           – Current number of grid levels
//   • grid_ticks_above_top{symbol}        – Breakout-reset counter
//   • grid_stray_orders_total{side}       – Strays discovered during reconciliation
//   • grid_invariant_violations_total     – InvariantViolation occurrences
//   • grid_tick_duration_seconds         – Coordinator tick wall time
//
// Registered in init() and served by the HTTP handler started in main.go at
// /metrics (Prometheus text exposition format), exactly as the teacher does.
package main

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_orders_total",
			Help: "Orders placed",
		},
		[]string{"mode", "side"},
	)

	mtxCancels = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_cancels_total",
			Help: "Cancellations issued, split by side and reason",
		},
		[]string{"side", "reason"}, // reason: lt_downtrend|st_downtrend|breakout_reset|stray
	)

	mtxRegime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grid_regime",
			Help: "Current regime per symbol/timeframe as a labeled series (1=active)",
		},
		[]string{"symbol", "timeframe", "regime"},
	)

	mtxGateEnabled = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grid_gate_enabled",
			Help: "Trade gate state (1=enabled, 0=disabled)",
		},
		[]string{"symbol", "gate"}, // gate: long_term|short_term
	)

	mtxLevelsCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grid_levels_count",
			Help: "Current number of grid levels",
		},
		[]string{"symbol"},
	)

	mtxTicksAboveTop = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grid_ticks_above_top",
			Help: "Consecutive ticks the price has closed above the top grid level",
		},
		[]string{"symbol"},
	)

	mtxStrayOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_stray_orders_total",
			Help: "Stray orders discovered during reconciliation",
		},
		[]string{"side"},
	)

	mtxInvariantViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grid_invariant_violations_total",
			Help: "Count of InvariantViolation errors surfaced to the supervisor",
		},
	)

	mtxTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grid_tick_duration_seconds",
			Help:    "Coordinator tick wall time",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(mtxOrders, mtxCancels)
	prometheus.MustRegister(mtxRegime, mtxGateEnabled)
	prometheus.MustRegister(mtxLevelsCount, mtxTicksAboveTop)
	prometheus.MustRegister(mtxStrayOrders, mtxInvariantViolations)
	prometheus.MustRegister(mtxTickDuration)
}

func IncOrder(mode, side string)          { mtxOrders.WithLabelValues(mode, side).Inc() }
func IncCancel(side, reason string)       { mtxCancels.WithLabelValues(side, reason).Inc() }
func IncStrayOrder(side string)           { mtxStrayOrders.WithLabelValues(side).Inc() }
func IncInvariantViolation()              { mtxInvariantViolations.Inc() }
func ObserveTickDuration(seconds float64) { mtxTickDuration.Observe(seconds) }

func SetRegimeMetric(symbol Symbol, tf Timeframe, regimes ...RegimeState) {
	for _, r := range []RegimeState{RegimeUptrend, RegimeDowntrend, RegimeSideways, RegimeUnknown} {
		v := 0.0
		for _, active := range regimes {
			if active == r {
				v = 1
			}
		}
		mtxRegime.WithLabelValues(string(symbol), string(tf), string(r)).Set(v)
	}
}

func SetGateMetric(symbol Symbol, gates TradeGates) {
	lt, st := 0.0, 0.0
	if gates.LongTermEnabled {
		lt = 1
	}
	if gates.ShortTermEnabled {
		st = 1
	}
	mtxGateEnabled.WithLabelValues(string(symbol), "long_term").Set(lt)
	mtxGateEnabled.WithLabelValues(string(symbol), "short_term").Set(st)
}

func SetLevelsCountMetric(symbol Symbol, n int)      { mtxLevelsCount.WithLabelValues(string(symbol)).Set(float64(n)) }
func SetTicksAboveTopMetric(symbol Symbol, n int)    { mtxTicksAboveTop.WithLabelValues(string(symbol)).Set(float64(n)) }
