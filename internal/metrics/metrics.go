// Package metrics exposes replay and ledger counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector. All methods are safe on a nil receiver
// so callers can run without metrics.
type Metrics struct {
	TicksTotal      prometheus.Counter
	SessionsTotal   prometheus.Counter
	SessionEnds     prometheus.Counter
	TradesTotal     *prometheus.CounterVec // labels: action
	RejectionsTotal *prometheus.CounterVec // labels: reason
	AlertsFired     prometheus.Counter
	TickDuration    prometheus.Histogram
	Balance         prometheus.Gauge
	Equity          prometheus.Gauge
	Cursor          prometheus.Gauge
	WSClients       prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replaysim_ticks_total",
			Help: "Bars advanced by replay ticks",
		}),
		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replaysim_sessions_total",
			Help: "Histories loaded",
		}),
		SessionEnds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replaysim_session_ends_total",
			Help: "Replays that reached the last bar",
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replaysim_trades_total",
			Help: "Ledger fills by action",
		}, []string{"action"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replaysim_rejections_total",
			Help: "Rejected commands by reason",
		}, []string{"reason"}),
		AlertsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replaysim_alerts_fired_total",
			Help: "Price alerts fired",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "replaysim_tick_duration_seconds",
			Help:    "Time to run one tick including alert evaluation",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replaysim_account_balance",
			Help: "Account balance",
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replaysim_account_equity",
			Help: "Balance plus unrealized PL at the last close",
		}),
		Cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replaysim_replay_cursor",
			Help: "Index of the last visible bar",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replaysim_ws_clients",
			Help: "Connected websocket clients",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.TicksTotal,
		m.SessionsTotal,
		m.SessionEnds,
		m.TradesTotal,
		m.RejectionsTotal,
		m.AlertsFired,
		m.TickDuration,
		m.Balance,
		m.Equity,
		m.Cursor,
		m.WSClients,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionLoaded() {
	if m == nil {
		return
	}
	m.SessionsTotal.Inc()
}

// Tick records one advanced bar.
func (m *Metrics) Tick(cursor int, took time.Duration) {
	if m == nil {
		return
	}
	m.TicksTotal.Inc()
	m.Cursor.Set(float64(cursor))
	m.TickDuration.Observe(took.Seconds())
}

func (m *Metrics) Seek(cursor int) {
	if m == nil {
		return
	}
	m.Cursor.Set(float64(cursor))
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.SessionEnds.Inc()
}

func (m *Metrics) Trade(action string) {
	if m == nil {
		return
	}
	m.TradesTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) AlertFired() {
	if m == nil {
		return
	}
	m.AlertsFired.Inc()
}

func (m *Metrics) Account(balance, equity float64) {
	if m == nil {
		return
	}
	m.Balance.Set(balance)
	m.Equity.Set(equity)
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.WSClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.WSClients.Dec()
}
