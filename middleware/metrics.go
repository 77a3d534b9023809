package middleware

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cppla/fitquest/utils"
)

// HTTPMetrics counts requests by route template.
type HTTPMetrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	authRejections *prometheus.CounterVec
}

// NewHTTPMetrics creates the collectors and registers them with reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		authRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_rejections_total",
				Help: "Total number of unauthorized requests",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.authRejections)
	return m
}

// Middleware records every request. Unmatched routes share one label to bound cardinality.
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := ctx.Writer.Status()
		m.requests.WithLabelValues(path, ctx.Request.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(path, ctx.Request.Method).Observe(time.Since(start).Seconds())

		switch status {
		case http.StatusUnauthorized:
			m.authRejections.WithLabelValues("401_unauthorized").Inc()
		case http.StatusForbidden:
			m.authRejections.WithLabelValues("403_forbidden").Inc()
		}
	}
}

// MetricsBasicAuth protects /metrics. An empty user leaves the endpoint open.
func MetricsBasicAuth(user, pass string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if user == "" {
			ctx.Next()
			return
		}
		u, p, ok := ctx.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			ctx.Header("WWW-Authenticate", `Basic realm="metrics"`)
			utils.Error(ctx, http.StatusUnauthorized, 40106, "unauthorized")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
