// Package metrics exposes Prometheus metrics for scans, calculators and the API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ScansTotal    *prometheus.CounterVec
	ScanDuration  *prometheus.HistogramVec
	ValueBets     *prometheus.GaugeVec
	BestEV        *prometheus.GaugeVec
	AlertsTotal   *prometheus.CounterVec
	CashOuts      *prometheus.GaugeVec
	CacheRequests *prometheus.CounterVec
	CalcRequests  *prometheus.CounterVec
	ChatRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polydelta_scans_total",
				Help: "Store scans by sport and outcome",
			},
			[]string{"sport", "status"},
		),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polydelta_scan_duration_seconds",
				Help:    "Time to load and analyse one sport",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"sport"},
		),
		ValueBets: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "polydelta_value_bets",
				Help: "Value bets found in the last scan",
			},
			[]string{"sport", "signal"},
		),
		BestEV: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "polydelta_best_ev_percent",
				Help: "Largest absolute EV in the last scan",
			},
			[]string{"sport"},
		),
		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polydelta_alerts_total",
				Help: "Alerts emitted after cooldown",
			},
			[]string{"kind"},
		),
		CashOuts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "polydelta_cashout_signals",
				Help: "Open positions with a cash-out signal",
			},
			[]string{"action"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polydelta_cache_requests_total",
				Help: "Store cache lookups",
			},
			[]string{"kind", "result"},
		),
		CalcRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polydelta_calc_requests_total",
				Help: "Calculator invocations by result status",
			},
			[]string{"calculator", "status"},
		),
		ChatRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polydelta_chat_requests_total",
				Help: "Chat assistant requests",
			},
			[]string{"status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polydelta_http_request_duration_seconds",
				Help:    "API latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "code"},
		),
	}

	m.registry.MustRegister(
		m.ScansTotal, m.ScanDuration, m.ValueBets, m.BestEV, m.AlertsTotal, m.CashOuts,
		m.CacheRequests, m.CalcRequests, m.ChatRequests, m.HTTPDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordScan records one sport scan.
func (m *Metrics) RecordScan(sport, status string, durationSec float64) {
	m.ScansTotal.WithLabelValues(sport, status).Inc()
	m.ScanDuration.WithLabelValues(sport).Observe(durationSec)
}

// SetValueBets publishes the result of the latest scan.
func (m *Metrics) SetValueBets(sport string, undervalued, overvalued int, bestEV float64) {
	m.ValueBets.WithLabelValues(sport, "undervalued").Set(float64(undervalued))
	m.ValueBets.WithLabelValues(sport, "overvalued").Set(float64(overvalued))
	m.BestEV.WithLabelValues(sport).Set(bestEV)
}

// RecordAlert counts an emitted alert.
func (m *Metrics) RecordAlert(kind string) {
	m.AlertsTotal.WithLabelValues(kind).Inc()
}

// SetCashOuts publishes the count of positions per cash-out action.
func (m *Metrics) SetCashOuts(action string, n int) {
	m.CashOuts.WithLabelValues(action).Set(float64(n))
}

// CacheHit implements store.CacheObserver.
func (m *Metrics) CacheHit(kind string) {
	m.CacheRequests.WithLabelValues(kind, "hit").Inc()
}

// CacheMiss implements store.CacheObserver.
func (m *Metrics) CacheMiss(kind string) {
	m.CacheRequests.WithLabelValues(kind, "miss").Inc()
}

// RecordCalc counts a calculator call.
func (m *Metrics) RecordCalc(calculator, status string) {
	m.CalcRequests.WithLabelValues(calculator, status).Inc()
}

// RecordChat counts a chat request.
func (m *Metrics) RecordChat(status string) {
	m.ChatRequests.WithLabelValues(status).Inc()
}

// RecordHTTP observes one API request.
func (m *Metrics) RecordHTTP(route, method, code string, durationSec float64) {
	m.HTTPDuration.WithLabelValues(route, method, code).Observe(durationSec)
}
