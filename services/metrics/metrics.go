package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/todoapp/core/reminder"
)

const namespace = "todoapp"

// Collectors groups the app's Prometheus collectors.
type Collectors struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	reminderJobs  prometheus.Gauge
	remindersSent *prometheus.CounterVec
}

var _ reminder.Metrics = (*Collectors)(nil)

// New registers the collectors on a new registry, along with the Go and process collectors.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latencies by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reminderJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "active_jobs",
			Help:      "Timezones having a scheduled daily reminder job.",
		}),
		remindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "sent_total",
			Help:      "Reminder emails handed to the email service, by timezone.",
		}, []string{"timezone"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpDuration,
		c.reminderJobs,
		c.remindersSent,
	)
	return c
}

// Handler serves the collected metrics.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collectors) SetActiveJobs(n int) {
	c.reminderJobs.Set(float64(n))
}

func (c *Collectors) AddSent(tz string, n int) {
	if n > 0 {
		c.remindersSent.WithLabelValues(tz).Add(float64(n))
	}
}

// Middleware records the count and latency of requests per route.
// The route template (eg. /api/v1/tasks/:id) is used as label to keep cardinality low.
func (c *Collectors) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			code := ctx.Response().Status
			if err != nil {
				code = http.StatusInternalServerError
				if he, ok := errors.Cause(err).(*echo.HTTPError); ok {
					code = he.Code
				}
			}
			route := ctx.Path()
			if route == "" {
				route = "unknown"
			}
			method := ctx.Request().Method
			c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
			c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
