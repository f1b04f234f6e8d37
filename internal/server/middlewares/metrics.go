package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-api/pkg/metrics"
)

// MetricsMiddleware records per-request prometheus metrics: a counter by
// route/method/status and a duration histogram by route.
func MetricsMiddleware(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		collector.HTTPRequestsTotal.WithLabelValues(
			route,
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		collector.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
