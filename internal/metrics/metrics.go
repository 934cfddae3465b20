// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private prometheus registry so tests can build as many as
// they like. All methods are safe on a nil *Registry.
type Registry struct {
	reg *prometheus.Registry

	Events        *prometheus.CounterVec
	Oracle        *prometheus.CounterVec
	FeedDuration  prometheus.Histogram
	Notifications *prometheus.CounterVec
	HTTPRequests  *prometheus.HistogramVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchfeed_events_total",
				Help: "Engagement events by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		Oracle: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchfeed_oracle_requests_total",
				Help: "Price oracle calls by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		FeedDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pitchfeed_feed_compose_seconds",
				Help:    "Time spent composing a feed",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchfeed_notifications_total",
				Help: "Notifications by outcome (delivered, dropped, failed)",
			},
			[]string{"outcome"},
		),
		HTTPRequests: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pitchfeed_http_request_duration_seconds",
				Help:    "HTTP request latency by route and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
	r.reg.MustRegister(
		r.Events,
		r.Oracle,
		r.FeedDuration,
		r.Notifications,
		r.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) ObserveEvent(eventType, outcome string) {
	if r == nil {
		return
	}
	r.Events.WithLabelValues(eventType, outcome).Inc()
}

func (r *Registry) ObserveOracle(op, outcome string) {
	if r == nil {
		return
	}
	r.Oracle.WithLabelValues(op, outcome).Inc()
}

func (r *Registry) ObserveFeed(d time.Duration) {
	if r == nil {
		return
	}
	r.FeedDuration.Observe(d.Seconds())
}

func (r *Registry) ObserveNotification(outcome string) {
	if r == nil {
		return
	}
	r.Notifications.WithLabelValues(outcome).Inc()
}

func (r *Registry) ObserveRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
