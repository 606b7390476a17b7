// Package metrics defines the Prometheus collectors exported by the bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the bot collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Updates        *prometheus.CounterVec
	GeocodeResults *prometheus.CounterVec
	StatusReports  *prometheus.CounterVec
	FlowsFinished  *prometheus.CounterVec
	FlowDuration   *prometheus.HistogramVec
	SendFailures   *prometheus.CounterVec
	HandlerErrors  prometheus.Counter
	Machines       prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rvmbot",
			Name:      "updates_total",
			Help:      "Telegram updates received, by kind.",
		}, []string{"kind"}),
		GeocodeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rvmbot",
			Name:      "geocode_requests_total",
			Help:      "Geocoder lookups, by result.",
		}, []string{"result"}),
		StatusReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rvmbot",
			Name:      "status_reports_total",
			Help:      "Accepted machine status reports, by reported status.",
		}, []string{"status"}),
		FlowsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rvmbot",
			Name:      "flows_finished_total",
			Help:      "Dialog flows that reached a terminal state, by flow and outcome.",
		}, []string{"flow", "outcome"}),
		FlowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rvmbot",
			Name:      "flow_duration_seconds",
			Help:      "Time from starting a flow to leaving it, by flow.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 900, 3600},
		}, []string{"flow"}),
		SendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rvmbot",
			Name:      "send_failures_total",
			Help:      "Replies the transport refused, by error code.",
		}, []string{"code"}),
		HandlerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rvmbot",
			Name:      "handler_errors_total",
			Help:      "Updates whose handling failed unexpectedly.",
		}),
		Machines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rvmbot",
			Name:      "machines",
			Help:      "Machines in the registry.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Updates, m.GeocodeResults, m.StatusReports, m.FlowsFinished, m.FlowDuration, m.SendFailures, m.HandlerErrors, m.Machines)
	}
	return m
}

func (m *Metrics) Update(kind string) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(kind).Inc()
}

func (m *Metrics) Geocode(result string) {
	if m == nil {
		return
	}
	m.GeocodeResults.WithLabelValues(result).Inc()
}

func (m *Metrics) StatusReport(status string) {
	if m == nil {
		return
	}
	m.StatusReports.WithLabelValues(status).Inc()
}

// FlowFinished counts a flow leaving with outcome. A non-positive took is
// not observed.
func (m *Metrics) FlowFinished(flow, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.FlowsFinished.WithLabelValues(flow, outcome).Inc()
	if took > 0 {
		m.FlowDuration.WithLabelValues(flow).Observe(took.Seconds())
	}
}

func (m *Metrics) SendFailure(code string) {
	if m == nil {
		return
	}
	m.SendFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) HandlerError() {
	if m == nil {
		return
	}
	m.HandlerErrors.Inc()
}

func (m *Metrics) SetMachines(n int) {
	if m == nil {
		return
	}
	m.Machines.Set(float64(n))
}
