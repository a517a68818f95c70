package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"vigorfit.com/progressionengine/pkg/metrics"
)

// Metrics records per-request duration labelled by route template, so
// /api/challenges/:challenge_id/days stays one series regardless of id.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.RequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
