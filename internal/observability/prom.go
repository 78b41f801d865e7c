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

	// OAuth2 authorization server
	UpstreamDuration *prometheus.HistogramVec
	UpstreamResults  *prometheus.CounterVec
	TokenCacheLookup *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rentdesk",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "rentdesk",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rentdesk",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rentdesk",
				Subsystem: "oauth",
				Name:      "request_duration_seconds",
				Help:      "Latency of calls to the authorization server by endpoint.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 120},
			},
			[]string{"endpoint"},
		),
		UpstreamResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Subsystem: "oauth",
				Name:      "results_total",
				Help:      "Authorization server call outcomes by endpoint.",
			},
			[]string{"endpoint", "result"}, // result=ok|rejected|unreachable
		),
		TokenCacheLookup: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Subsystem: "oauth",
				Name:      "token_cache_lookups_total",
				Help:      "Introspection cache lookups by result.",
			},
			[]string{"result"}, // result=hit|miss|error
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.UpstreamDuration, p.UpstreamResults, p.TokenCacheLookup,
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

// ObserveUpstream records one call to the authorization server. A nil *Prom
// is a no-op so clients can run without metrics.
func (p *Prom) ObserveUpstream(endpoint, result string, d time.Duration) {
	if p == nil {
		return
	}
	p.UpstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	p.UpstreamResults.WithLabelValues(endpoint, result).Inc()
}

func (p *Prom) ObserveTokenCache(result string) {
	if p == nil {
		return
	}
	p.TokenCacheLookup.WithLabelValues(result).Inc()
}
