// Package metrics exposes dispatch, mail and HTTP metrics for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/policydesk/internal/dispatch"
)

const namespace = "policydesk"

// Collector owns a private registry so tests can create as many as they need.
type Collector struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	reminders     *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
	sends         *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New registers all metrics plus the Go runtime and process collectors.
// nextRun, when not nil, is exported as the next scheduled cycle time.
func New(nextRun func() time.Time) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_cycles_total",
			Help:      "Dispatch cycles by final status.",
		}, []string{"status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_cycle_duration_seconds",
			Help:      "Wall time of a dispatch cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminders handled by outcome.",
		}, []string{"outcome"}), // due|sent|failed|skipped|marked
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_last_success_timestamp_seconds",
			Help:      "Unix time of the last cycle that completed without error.",
		}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_sends_total",
			Help:      "Mail send attempts by result or failure class.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.cycles, c.cycleDuration, c.reminders, c.lastSuccess, c.sends,
		c.httpRequests, c.httpDuration,
	)

	if nextRun != nil {
		c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_next_run_timestamp_seconds",
			Help:      "Unix time of the next scheduled cycle, 0 when not scheduled.",
		}, func() float64 {
			next := nextRun()
			if next.IsZero() {
				return 0
			}
			return float64(next.Unix())
		}))
	}

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveCycle matches dispatch.CycleObserver.
func (c *Collector) ObserveCycle(r dispatch.Report, took time.Duration, err error) {
	status := r.Status
	if status == "" {
		status = dispatch.StatusFailed
	}
	c.cycles.WithLabelValues(status).Inc()
	c.cycleDuration.Observe(took.Seconds())

	c.reminders.WithLabelValues("due").Add(float64(r.Due))
	c.reminders.WithLabelValues("sent").Add(float64(r.Sent))
	c.reminders.WithLabelValues("failed").Add(float64(r.Failed))
	c.reminders.WithLabelValues("skipped").Add(float64(r.Skipped))
	c.reminders.WithLabelValues("marked").Add(float64(r.Marked))

	if err == nil {
		c.lastSuccess.SetToCurrentTime()
	}
}

// ObserveSend matches mailer.Observer.
func (c *Collector) ObserveSend(result string) {
	c.sends.WithLabelValues(result).Inc()
}

// Middleware records request counts and latency labeled by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
