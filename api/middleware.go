package api

import (
	"strconv"
	"time"

	"github.com/Domenick1991/travelsync/internal/logger"
	"github.com/Domenick1991/travelsync/internal/metrics"
	"github.com/gin-gonic/gin"
)

// RequestMetrics records the duration and outcome of every request, labelled
// by route template rather than raw path.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(status), elapsed.Seconds())
		logger.Debug("http request", "method", c.Request.Method, "path", path, "status", status, "duration", elapsed)
	}
}
