// Package metrics exposes container lifecycle counters on a per-application
// Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-ioc/framework/container"
)

const namespace = "ioc"

// Key is the store key the application registers its Collector under.
const Key = "metrics"

// Collector records registrations, init method calls, tier processing time,
// cleanup failures and startup time. It satisfies inject.Observer; its
// Registered and CleanupFailed methods plug into container.Store.OnRegister
// and cleanup.Registry.OnFailure.
type Collector struct {
	registry *prometheus.Registry

	registrations   *prometheus.CounterVec   // by tier
	initCalls       *prometheus.CounterVec   // by component
	tierDuration    *prometheus.HistogramVec // by tier
	cleanupFailures *prometheus.CounterVec   // by task
	startup         prometheus.Gauge
}

// New creates a Collector on a fresh registry, so several applications in
// one process do not collide.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "registrations_total",
			Help:      "Components registered, by tier",
		}, []string{"tier"}),

		initCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inject",
			Name:      "init_calls_total",
			Help:      "Init methods invoked, by component",
		}, []string{"component"}),

		tierDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "inject",
			Name:      "tier_duration_seconds",
			Help:      "Time spent injecting and initializing one tier",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1},
		}, []string{"tier"}),

		cleanupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "failures_total",
			Help:      "Cleanup tasks that returned an error or panicked",
		}, []string{"task"}),

		startup: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "startup_seconds",
			Help:      "Duration of the last successful container run",
		}),
	}

	c.registry.MustRegister(
		c.registrations,
		c.initCalls,
		c.tierDuration,
		c.cleanupFailures,
		c.startup,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registered(e container.Entry) {
	c.registrations.WithLabelValues(e.Tier.String()).Inc()
}

func (c *Collector) InitMethodCalled(key, _ string) {
	c.initCalls.WithLabelValues(key).Inc()
}

func (c *Collector) TierProcessed(tier container.Tier, _ int, elapsed time.Duration) {
	c.tierDuration.WithLabelValues(tier.String()).Observe(elapsed.Seconds())
}

func (c *Collector) CleanupFailed(name string, _ error) {
	c.cleanupFailures.WithLabelValues(name).Inc()
}

// StartupCompleted records the duration of a successful run.
func (c *Collector) StartupCompleted(d time.Duration) {
	c.startup.Set(d.Seconds())
}
