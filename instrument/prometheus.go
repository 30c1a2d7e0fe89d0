package instrument

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus is an instrumenter that records check and operation counters and
// check latency. All metrics are registered in a custom [prometheus.Registry]
// (not the global default) so that only gatez metrics appear on the metrics
// endpoint.
type Prometheus struct {
	Registry *prometheus.Registry

	ChecksTotal     *prometheus.CounterVec
	CheckDuration   prometheus.Histogram
	OperationsTotal *prometheus.CounterVec
}

// NewPrometheus creates and registers all gatez metrics in a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()

	p := &Prometheus{
		Registry: reg,

		ChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatez_checks_total",
			Help: "Total number of feature checks.",
		}, []string{"result", "gate"}),

		CheckDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatez_check_duration_seconds",
			Help:    "Feature check latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatez_operations_total",
			Help: "Total number of feature storage operations.",
		}, []string{"operation", "status"}),
	}

	reg.MustRegister(
		p.ChecksTotal,
		p.CheckDuration,
		p.OperationsTotal,
	)

	return p
}

// Handler returns an [http.Handler] that serves Prometheus metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) Check(_ context.Context, _ string, result bool, gate string, elapsed time.Duration) {
	p.ChecksTotal.WithLabelValues(strconv.FormatBool(result), gate).Inc()
	p.CheckDuration.Observe(elapsed.Seconds())
}

func (p *Prometheus) Operation(_ context.Context, op string, _ string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.OperationsTotal.WithLabelValues(op, status).Inc()
}
