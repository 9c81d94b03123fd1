package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "docanalyzer/internal/auth"
	"docanalyzer/internal/documents"
	"docanalyzer/internal/services/health"
	"docanalyzer/internal/shared/auth"
	"docanalyzer/internal/shared/config"
	"docanalyzer/internal/shared/metrics"
	"docanalyzer/internal/shared/server/middleware"
	"docanalyzer/internal/shared/server/respond"
)

const processingRateGroup = "PROCESSING"

// RouterDeps carries the constructed services the HTTP surface exposes.
type RouterDeps struct {
	Config     config.Config
	Signer     *auth.Signer
	Documents  *documents.Handler
	GoogleAuth *googleauth.GoogleService
	Health     *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	cfg := deps.Config
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(deps.Signer),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				processingRateGroup: {
					Rate:  float64(cfg.ProcessRatePerMinute) / 60,
					Burst: cfg.ProcessRateBurst,
				},
			},
			GroupFor: rateGroupFor,
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps.Health))
	api.GET("/metrics", metrics.Handler())
	registerMeRoutes(api)
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.Documents != nil {
		deps.Documents.RegisterRoutes(api)
	}

	return r
}

// rateGroupFor puts the endpoints that reach the language service in their own bucket.
func rateGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	path := c.Request.URL.Path
	switch {
	case path == "/api/v1/documents/analyze-text":
		return processingRateGroup
	case strings.HasPrefix(path, "/api/v1/documents/") &&
		(strings.HasSuffix(path, "/process") || strings.HasSuffix(path, "/action")):
		return processingRateGroup
	}
	return ""
}

func healthHandler(svc *health.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		report := svc.Check(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
