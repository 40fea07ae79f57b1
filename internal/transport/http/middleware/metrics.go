package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexbid", Name: "http_requests_total", Help: "HTTP requests by route, method and status.",
	}, []string{"path", "method", "status"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nexbid", Name: "http_request_duration_seconds", Help: "HTTP request latency by route.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"path", "method"})
	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nexbid", Name: "http_inflight_requests", Help: "Requests holding a concurrency slot.",
	})
	httpTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nexbid", Name: "http_request_timeouts_total", Help: "Requests whose deadline expired.",
	})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, httpInflight, httpTimeouts)
}

// Metrics 按路由模板打点；未匹配的路由归到 "unmatched"
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
