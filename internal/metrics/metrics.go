// Package metrics exposes settlement counters to Prometheus.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spotus"

// Collector records purchase settlement outcomes. It satisfies
// purchase.MetricsCollector.
type Collector struct {
	registry    *prometheus.Registry
	settlements *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	amount      *prometheus.CounterVec
}

// NewCollector registers the settlement metrics, plus the Go runtime and
// process collectors, on a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_settlements_total",
			Help:      "Purchase settlement attempts by payment method and result.",
		}, []string{"method", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "purchase_settlement_duration_seconds",
			Help:      "Time spent settling a purchase, gateway call included.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		amount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_settled_amount_total",
			Help:      "Sum of settled purchase totals in dollars.",
		}, []string{"method"}),
	}

	c.registry.MustRegister(
		c.settlements,
		c.duration,
		c.amount,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) RecordSettlement(method, result string) {
	c.settlements.WithLabelValues(method, result).Inc()
}

func (c *Collector) RecordSettlementDuration(method string, d time.Duration) {
	c.duration.WithLabelValues(method).Observe(d.Seconds())
}

func (c *Collector) RecordSettledAmount(method string, amount float64) {
	if amount <= 0 {
		return
	}
	c.amount.WithLabelValues(method).Add(amount)
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}
