package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// metricsServer exposes ServerStats over a Prometheus /metrics endpoint. It
// is only constructed when Config.MetricsEnabled is true.
type metricsServer struct {
	httpServer *http.Server
	logger     *logrus.Logger
}

// statsCollector adapts ServerStats to prometheus.Collector, reading the
// atomics through a Snapshot on every scrape rather than pushing through a second set
// of prometheus-native counters that would need to be kept in sync.
type statsCollector struct {
	stats *ServerStats
}

var (
	queriesDesc = prometheus.NewDesc(
		"gobite_queries_total", "Total queries by result.", []string{"result"}, nil)
	cacheHitsDesc = prometheus.NewDesc(
		"gobite_cache_hits_total", "Total lookup cache hits.", nil, nil)
	cacheMissesDesc = prometheus.NewDesc(
		"gobite_cache_misses_total", "Total lookup cache misses.", nil, nil)
	droppedDesc = prometheus.NewDesc(
		"gobite_connections_dropped_total", "Connections dropped at admission.", nil, nil)
	tlsFailDesc = prometheus.NewDesc(
		"gobite_tls_handshake_failures_total", "Failed TLS handshakes.", nil, nil)
	activeDesc = prometheus.NewDesc(
		"gobite_connections_active", "Currently active connections.", nil, nil)
)

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- queriesDesc
	ch <- cacheHitsDesc
	ch <- cacheMissesDesc
	ch <- droppedDesc
	ch <- tlsFailDesc
	ch <- activeDesc
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot()

	ch <- prometheus.MustNewConstMetric(queriesDesc, prometheus.CounterValue, float64(snap.Exists), "exists")
	ch <- prometheus.MustNewConstMetric(queriesDesc, prometheus.CounterValue, float64(snap.NotFound), "not_found")
	ch <- prometheus.MustNewConstMetric(queriesDesc, prometheus.CounterValue, float64(snap.RateLimited), "rate_limited")
	ch <- prometheus.MustNewConstMetric(queriesDesc, prometheus.CounterValue, float64(snap.Errors), "error")

	ch <- prometheus.MustNewConstMetric(cacheHitsDesc, prometheus.CounterValue, float64(snap.CacheHits))
	ch <- prometheus.MustNewConstMetric(cacheMissesDesc, prometheus.CounterValue, float64(snap.CacheMisses))
	ch <- prometheus.MustNewConstMetric(droppedDesc, prometheus.CounterValue, float64(snap.Dropped))
	ch <- prometheus.MustNewConstMetric(tlsFailDesc, prometheus.CounterValue, float64(snap.TLSHandshakeFailures))
	ch <- prometheus.MustNewConstMetric(activeDesc, prometheus.GaugeValue, float64(snap.ActiveConnections))
}

// queryDuration records lookup latency; it is a package-level histogram
// rather than a Server field because the Collect path above only reports
// counters/gauges sourced from ServerStats, and a histogram has its own
// natural accumulation inside the client library.
var queryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "gobite_query_duration_seconds",
	Help:    "Lookup latency from parsed query to lookup result.",
	Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10),
})

func newMetricsServer(addr string, stats *ServerStats, logger *logrus.Logger) *metricsServer {
	registry := prometheus.NewRegistry()
	registry.MustRegister(&statsCollector{stats: stats})
	registry.MustRegister(queryDuration)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &metricsServer{
		httpServer: &http.Server{Addr: addr, Handler: mux},
		logger:     logger,
	}
}

func (m *metricsServer) start() {
	go func() {
		if err := m.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.WithError(err).Error("metrics server failed")
		}
	}()
}

func (m *metricsServer) stop(ctx context.Context) error {
	return m.httpServer.Shutdown(ctx)
}
