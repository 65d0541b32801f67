package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/internal/metrics"
)

// MetricsMiddleware records request count and latency per route template,
// so /orders/ORD-1 and /orders/ORD-2 share one series.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
