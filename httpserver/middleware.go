package httpserver

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Khagendra01/cloud-py-exec/logger"
)

const (
	requestIDHeader = "X-Request-Id"

	requestIDContextKey = "request_id"
	loggerContextKey    = "logger"
)

// RequestIDMiddleware ensures every request carries an id, echoed on the
// response, and attaches a request-scoped logger to the gin context.
func RequestIDMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDContextKey, requestID)
		c.Set(loggerContextKey, logger.WithRequestID(base, requestID))
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}

// RequestLoggerMiddleware writes one info line per completed request
func RequestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		requestLogger(c).Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// requestLogger returns the request-scoped logger, or a no-op logger when
// the middleware did not run (direct handler tests).
func requestLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(loggerContextKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
