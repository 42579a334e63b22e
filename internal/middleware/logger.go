package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tubecast/pkg/logger"
)

var logSkipPaths = map[string]bool{
	"/health":      true,
	"/favicon.ico": true,
}

// RequestLogger logs each HTTP request with method, path, status and
// latency through the structured logger.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if logSkipPaths[path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		raw := log.Raw()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = raw.Error()
		case status >= 400:
			event = raw.Warn()
		default:
			event = raw.Info()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("errors", c.Errors.String()).
			Msg("request")
	}
}
