// Package metrics exposes the agent's Prometheus collectors. All Recorder
// methods are safe to call on a nil receiver.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "econagent"

// Recorder records revenue, reinvestment, oracle and service metrics.
type Recorder struct {
	gatherer prometheus.Gatherer

	payments      *prometheus.CounterVec
	revenue       *prometheus.CounterVec
	available     prometheus.Gauge
	reinvested    prometheus.Gauge
	reinvestments *prometheus.CounterVec
	subAgents     prometheus.Gauge
	oracle        *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
	opportunities prometheus.Gauge
	executions    *prometheus.CounterVec
	serviceTime   *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatherer: reg,
		payments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Number of recorded service payments.",
		}, []string{"service"}),
		revenue: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_total",
			Help:      "Revenue recorded per service, in payment units.",
		}, []string{"service"}),
		available: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_available",
			Help:      "Available (unreinvested) balance.",
		}),
		reinvested: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_reinvested",
			Help:      "Cumulative reinvested balance.",
		}),
		reinvestments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reinvestments_total",
			Help:      "Reinvestment actions taken.",
		}, []string{"action"}),
		subAgents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subagents",
			Help:      "Number of spawned sub-agents.",
		}),
		oracle: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_requests_total",
			Help:      "Oracle lookups by source and result (hit, fetched, stale, default, error).",
		}, []string{"source", "result"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "oracle_breaker_open",
			Help:      "1 while the upstream circuit breaker is open.",
		}, []string{"source"}),
		opportunities: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "arbitrage_opportunities",
			Help:      "Opportunities found by the last arbitrage scan.",
		}),
		executions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arbitrage_executions_total",
			Help:      "Arbitrage execution attempts by result.",
		}, []string{"result"}),
		serviceTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_duration_seconds",
			Help:      "Time to serve a paid request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// RecordPayment counts a payment of amount for service.
func (r *Recorder) RecordPayment(service string, amount float64) {
	if r == nil {
		return
	}
	r.payments.WithLabelValues(service).Inc()
	r.revenue.WithLabelValues(service).Add(amount)
}

// SetLedger publishes the ledger balances.
func (r *Recorder) SetLedger(available, reinvested float64) {
	if r == nil {
		return
	}
	r.available.Set(available)
	r.reinvested.Set(reinvested)
}

// RecordReinvestment counts a reinvestment action and the sub-agent total.
func (r *Recorder) RecordReinvestment(action string, subAgents int) {
	if r == nil {
		return
	}
	r.reinvestments.WithLabelValues(action).Inc()
	r.subAgents.Set(float64(subAgents))
}

// RecordOracle counts an oracle lookup outcome.
func (r *Recorder) RecordOracle(source, result string) {
	if r == nil {
		return
	}
	r.oracle.WithLabelValues(source, result).Inc()
}

// SetBreakerOpen flags the breaker state for source.
func (r *Recorder) SetBreakerOpen(source string, open bool) {
	if r == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	r.breakerState.WithLabelValues(source).Set(v)
}

// RecordScan publishes the size of the last arbitrage scan.
func (r *Recorder) RecordScan(opportunities int) {
	if r == nil {
		return
	}
	r.opportunities.Set(float64(opportunities))
}

// RecordExecution counts an arbitrage execution by outcome.
func (r *Recorder) RecordExecution(success bool) {
	if r == nil {
		return
	}
	result := "failed"
	if success {
		result = "success"
	}
	r.executions.WithLabelValues(result).Inc()
}

// ObserveService records how long a paid request took.
func (r *Recorder) ObserveService(service string, d time.Duration) {
	if r == nil {
		return
	}
	r.serviceTime.WithLabelValues(service).Observe(d.Seconds())
}
