package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Outbound HTTP metrics (collectors)
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	backtestsTotal      *prometheus.CounterVec
	backtestDuration    prometheus.Histogram
	tradesTotal         *prometheus.CounterVec
	transactionCosts    prometheus.Counter
	sweepPointsTotal    *prometheus.CounterVec
	barsIngestedTotal   *prometheus.CounterVec
	chartsRenderedTotal *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxlab_http_requests_total",
				Help: "Total number of outbound HTTP requests",
			},
			[]string{"host", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxlab_http_request_duration_seconds",
				Help:    "Outbound HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fxlab_http_requests_in_flight",
				Help: "Number of outbound HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxlab_backtests_total",
			Help: "Total number of backtest runs",
		},
		[]string{"sell_rule", "status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fxlab_backtest_duration_seconds",
			Help:    "Backtest duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
	)
	r.tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxlab_trades_total",
			Help: "Total number of simulated fills",
		},
		[]string{"side"},
	)
	r.transactionCosts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fxlab_transaction_costs_total",
			Help: "Sum of simulated transaction costs",
		},
	)
	r.sweepPointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxlab_sweep_points_total",
			Help: "Total number of parameter sweep grid points evaluated",
		},
		[]string{"status"},
	)
	r.barsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxlab_bars_ingested_total",
			Help: "Total number of bars fetched from collectors",
		},
		[]string{"collector"},
	)
	r.chartsRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxlab_charts_rendered_total",
			Help: "Total number of labelled chart images rendered",
		},
		[]string{"label"},
	)

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.transactionCosts)
	reg.MustRegister(r.sweepPointsTotal)
	reg.MustRegister(r.barsIngestedTotal)
	reg.MustRegister(r.chartsRenderedTotal)

	return r
}

// RecordRequest records metrics for an outbound HTTP request.
func (r *Registry) RecordRequest(host string, status int, duration float64) {
	r.httpRequestsTotal.WithLabelValues(host, statusToString(status)).Inc()
	r.httpRequestDuration.WithLabelValues(host).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(sellRule, status string, duration float64) {
	r.backtestsTotal.WithLabelValues(sellRule, status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordTrade records one simulated fill and its cost.
func (r *Registry) RecordTrade(side string, cost float64) {
	r.tradesTotal.WithLabelValues(side).Inc()
	if cost > 0 {
		r.transactionCosts.Add(cost)
	}
}

// RecordSweepPoint records one evaluated sweep grid point.
func (r *Registry) RecordSweepPoint(status string) {
	r.sweepPointsTotal.WithLabelValues(status).Inc()
}

// RecordBars records bars fetched by a collector.
func (r *Registry) RecordBars(collector string, n int) {
	r.barsIngestedTotal.WithLabelValues(collector).Add(float64(n))
}

// RecordChart records a rendered chart image.
func (r *Registry) RecordChart(label string) {
	r.chartsRenderedTotal.WithLabelValues(label).Inc()
}

// WriteTextfile writes a snapshot in the node-exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status == 0:
		return "error"
	default:
		return "1xx"
	}
}
