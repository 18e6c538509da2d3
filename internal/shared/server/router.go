package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "resumind/internal/auth"
	"resumind/internal/resumes"
	"resumind/internal/services/health"
	"resumind/internal/shared/config"
	"resumind/internal/shared/metrics"
	"resumind/internal/shared/server/middleware"
	"resumind/internal/shared/server/respond"
	"resumind/internal/submissions"
)

const submitRateGroup = "SUBMIT"

// Deps are the handlers mounted under /api/v1. Nil handlers are skipped.
type Deps struct {
	Config      config.Config
	Resumes     *resumes.Handler
	Submissions *submissions.Handler
	Google      *googleauth.GoogleService
	Health      *health.Service
	// Limiter and InFlight are shared across routers when set.
	Limiter  *middleware.RateLimiter
	InFlight *middleware.InFlight
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(cfg.AllowGuests),
	)

	api := r.Group("/api/v1")
	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	api.GET("/health", func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	api.GET("/metrics", metrics.Handler())
	registerMeRoutes(api)

	if deps.Google != nil {
		deps.Google.RegisterRoutes(api)
	}
	if deps.Resumes != nil {
		deps.Resumes.RegisterRoutes(api)
	}
	if deps.Submissions != nil {
		limiter := deps.Limiter
		if limiter == nil {
			limiter = middleware.NewRateLimiter(nil)
		}
		submitLimit := middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				submitRateGroup: {Rate: cfg.SubmitPerMin / 60, Burst: cfg.SubmitBurst},
			},
			DefaultGroup: submitRateGroup,
			Limiter:      limiter,
		})
		deps.Submissions.RegisterRoutes(api, submitLimit, middleware.OnePerUser(deps.InFlight))
	}

	return r
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
