package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"media-site-service/metrics"
)

// Prometheus records request counts and latency by matched route. Unmatched
// paths share one label to bound cardinality.
func Prometheus() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
