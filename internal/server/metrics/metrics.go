// Package metrics holds the Prometheus collectors of the account service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	forwarded *prometheus.CounterVec
	proxyPool prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gophwallet",
				Name:      "requests_total",
				Help:      "Total number of API requests by transport, operation and outcome.",
			},
			[]string{"transport", "operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gophwallet",
				Name:      "request_duration_seconds",
				Help:      "Duration of API requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"transport", "operation"},
		),
		forwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gophwallet",
				Name:      "forward_gas_total",
				Help:      "Gas limit of forward transactions handed to the relay queue.",
			},
			[]string{"queue"},
		),
		proxyPool: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gophwallet",
			Name:      "proxy_pool_size",
			Help:      "Unclaimed proxy contracts in the pool.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		m.requests, m.duration, m.forwarded, m.proxyPool,
	)
	return m
}

// ObserveRequest records one finished request. outcome is "ok" or the
// error kind.
func (m *Metrics) ObserveRequest(transport, operation, outcome string, d time.Duration) {
	m.requests.WithLabelValues(transport, operation, outcome).Inc()
	m.duration.WithLabelValues(transport, operation).Observe(d.Seconds())
}

func (m *Metrics) ObserveForward(queue string, gas uint64) {
	m.forwarded.WithLabelValues(queue).Add(float64(gas))
}

func (m *Metrics) SetProxyPool(n int) {
	m.proxyPool.Set(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
