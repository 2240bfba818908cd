package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// GraphQL fields
	ResolverDuration *prometheus.HistogramVec
	ResolverResults  *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec

	// stats provider
	UpstreamDuration *prometheus.HistogramVec
	UpstreamCache    *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fraghub",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fraghub",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "fraghub",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fraghub",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fraghub",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		ResolverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fraghub",
				Subsystem: "graphql",
				Name:      "resolver_duration_seconds",
				Help:      "Root field resolver latency by field and outcome.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"field", "outcome"},
		),
		ResolverResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fraghub",
				Subsystem: "graphql",
				Name:      "resolver_results_total",
				Help:      "Root field outcomes (ok or error kind).",
			},
			[]string{"field", "outcome"},
		),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fraghub",
				Subsystem: "graphql",
				Name:      "rate_limited_total",
				Help:      "Field calls rejected by the rate limiter.",
			},
			[]string{"field"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fraghub",
				Subsystem: "stats",
				Name:      "upstream_duration_seconds",
				Help:      "Stats provider call latency.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"resource", "status"},
		),
		UpstreamCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fraghub",
				Subsystem: "stats",
				Name:      "cache_total",
				Help:      "Stats cache lookups by result (hit or miss).",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.ResolverDuration, p.ResolverResults, p.RateLimited,
		p.UpstreamDuration, p.UpstreamCache,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// ObserveResolver records one root field call.
func (p *Prom) ObserveResolver(field, outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.ResolverResults.WithLabelValues(field, outcome).Inc()
	p.ResolverDuration.WithLabelValues(field, outcome).Observe(d.Seconds())
}

func (p *Prom) IncRateLimited(field string) {
	if p == nil {
		return
	}
	p.RateLimited.WithLabelValues(field).Inc()
}

func (p *Prom) ObserveUpstream(resource, status string, d time.Duration) {
	if p == nil {
		return
	}
	p.UpstreamDuration.WithLabelValues(resource, status).Observe(d.Seconds())
}

func (p *Prom) CacheLookup(hit bool) {
	if p == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	p.UpstreamCache.WithLabelValues(result).Inc()
}
