package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/microcredit-pool-ledger/internal/platform/metrics"
)

// Metrics observes request latency labelled by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
