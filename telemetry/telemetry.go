// Package telemetry exposes quota, cache and upstream request metrics in
// Prometheus format.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"ytinsight/ledger"
)

const namespace = "ytinsight"

// Collector owns a private registry so several instances can coexist in tests.
// It implements ledger.CacheStats and the http client's Observer, and
// ObserveQuota is a ledger.Observer.
type Collector struct {
	registry *prometheus.Registry

	quotaUsed      prometheus.Gauge
	quotaLimit     prometheus.Gauge
	quotaRemaining prometheus.Gauge
	overBudget     prometheus.Gauge

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates and registers every metric.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		quotaUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quota_units_used",
			Help:      "Quota units charged today.",
		}),
		quotaLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quota_daily_limit",
			Help:      "Advisory daily quota budget.",
		}),
		quotaRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quota_units_remaining",
			Help:      "Quota units left in today's budget.",
		}),
		overBudget: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quota_over_budget",
			Help:      "1 when today's usage exceeds the budget.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Fetch cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Fetch cache misses, including expired entries.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by host and status code.",
		}, []string{"host", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
	}

	c.registry.MustRegister(
		c.quotaUsed,
		c.quotaLimit,
		c.quotaRemaining,
		c.overBudget,
		c.cacheHits,
		c.cacheMisses,
		c.requests,
		c.requestDuration,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveQuota records a ledger usage snapshot.
func (c *Collector) ObserveQuota(u ledger.Usage) {
	c.quotaUsed.Set(float64(u.UnitsUsed))
	c.quotaLimit.Set(float64(u.DailyLimit))
	c.quotaRemaining.Set(float64(u.Remaining()))
	if u.OverBudget() {
		c.overBudget.Set(1)
	} else {
		c.overBudget.Set(0)
	}
}

func (c *Collector) CacheHit()  { c.cacheHits.Inc() }
func (c *Collector) CacheMiss() { c.cacheMisses.Inc() }

// ObserveRequest records one upstream round trip. status is 0 for transport
// failures.
func (c *Collector) ObserveRequest(host string, status int, elapsed time.Duration) {
	c.requests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(host).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("component", "telemetry").Str("addr", addr).Msg("serving metrics")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
