package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gilby125/cs509-reservation-client/pkg/logger"
)

// RequestLogger logs one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      path,
			"status":    statusCode,
			"latency":   time.Since(start),
			"client_ip": c.ClientIP(),
		}
		if requestID := GetRequestID(c); requestID != "" {
			fields["request_id"] = requestID
		}
		if raw != "" {
			fields["query"] = raw
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			logger.WithFields(fields).Error(nil, "HTTP Request")
		case statusCode >= 400:
			logger.WithFields(fields).Warn("HTTP Request")
		default:
			logger.WithFields(fields).Info("HTTP Request")
		}
	}
}

// Recovery turns panics into a logged 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": GetRequestID(c),
			"panic":      recovered,
		}).Error(nil, "Panic recovered")
		c.AbortWithStatus(500)
	})
}
