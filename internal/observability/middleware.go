package observability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AdminMiddleware logs every admin request and records it under the given
// session label. Rejected token checks are logged at warn with the reason.
func AdminMiddleware(session string, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		RecordHTTPRequest(session, c.Request.Method, route, status, elapsed)

		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status == http.StatusUnauthorized:
			event = logger.Warn().Str("reason", c.Errors.String())
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		default:
			event = logger.Debug()
		}
		event.
			Str("session", session).
			Str("method", c.Request.Method).
			Str("route", route).
			Str("uri", c.Request.URL.RequestURI()).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("admin.request")
	}
}
