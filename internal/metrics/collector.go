// Package metrics exposes tool invocation metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "mcp_pangolin"

// Collector records bridge activity. It owns its registry so several
// collectors can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	policyDenials      *prometheus.CounterVec
	registryTools      *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector creates a collector under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.invocationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Total number of tool invocations by outcome",
		},
		[]string{"tool", "outcome"},
	)

	c.invocationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_invocation_duration_seconds",
			Help:      "Tool invocation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"tool"},
	)

	c.policyDenials = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_denials_total",
			Help:      "Total number of invocations rejected by the access policy",
		},
		[]string{"tool"},
	)

	c.registryTools = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_tools",
			Help:      "Number of tools in the registry by method",
		},
		[]string{"method"},
	)

	return c
}

// ObserveInvocation records one finished invocation.
func (c *Collector) ObserveInvocation(tool, outcome string, d time.Duration) {
	c.invocationsTotal.WithLabelValues(tool, outcome).Inc()
	c.invocationDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// PolicyDenied records a policy rejection.
func (c *Collector) PolicyDenied(tool string) {
	c.policyDenials.WithLabelValues(tool).Inc()
}

// SetRegistryTools publishes the per-method tool counts.
func (c *Collector) SetRegistryTools(byMethod map[string]int) {
	c.registryTools.Reset()
	for method, n := range byMethod {
		c.registryTools.WithLabelValues(method).Set(float64(n))
	}
	c.logger.Debug("registry gauge updated", zap.Int("methods", len(byMethod)))
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
