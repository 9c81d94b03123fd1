package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docanalyzer/internal/shared/telemetry"
)

// quietRoutes are probed constantly and only logged when they fail.
var quietRoutes = map[string]struct{}{
	"/api/v1/health":  {},
	"/api/v1/metrics": {},
}

// Logging emits one request.complete entry per request. Handlers enrich it by
// setting "documentId" and "statusTransition" on the context.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		status := c.Writer.Status()

		route := c.FullPath()
		if _, quiet := quietRoutes[route]; quiet && status < http.StatusInternalServerError {
			return
		}

		identity := IdentityFromContext(c)
		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             route,
			"status":            status,
			"status_transition": c.GetString("statusTransition"),
			"duration_ms":       float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes":             c.Writer.Size(),
			"user_id":           identity.UserID,
			"identity":          identity.Kind,
			"document_id":       c.GetString("documentId"),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		}
		if status >= http.StatusInternalServerError {
			telemetry.Warn("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
