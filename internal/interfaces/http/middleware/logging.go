package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sixcities/pkg/logger"
)

// AccessLog writes one line per request. Server errors are logged at error
// level with the first error a handler attached.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Duration("latency", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}

		switch {
		case status >= 500:
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			log.Error(c.Request.Context(), "Request failed", err, fields...)
		case status >= 400:
			log.Info(c.Request.Context(), "Request rejected", fields...)
		default:
			log.Debug(c.Request.Context(), "Request served", fields...)
		}
	}
}
