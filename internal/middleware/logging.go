// internal/middleware/logging.go
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/metrics"
	"github.com/javajoker/verdict-cms/internal/telemetry"
	"github.com/javajoker/verdict-cms/internal/utils"
)

// RequestLogger logs every request through logrus and records its latency.
// Routes are labelled by their pattern so ids never reach metric labels.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), status, duration)

		// Skip health checks and scrapes
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
			return
		}

		userID, _ := utils.GetUserIDFromContext(c)
		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"route":      c.FullPath(),
			"status":     status,
			"duration":   duration.Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"user_id":    userID,
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("Request processed")
		case status >= 400:
			entry.Warn("Request processed")
		default:
			entry.Info("Request processed")
		}
	}
}

// Recovery turns a handler panic into a 500 and reports it.
func Recovery(log logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		err := fmt.Errorf("panic: %v", recovered)
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("Handler panicked")
		telemetry.CaptureError(err, map[string]string{"route": c.FullPath()})
		utils.InternalErrorResponse(c, "")
		c.Abort()
	})
}
