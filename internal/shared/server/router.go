package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"coverletter-backend/internal/services/health"
	"coverletter-backend/internal/sessions"
	"coverletter-backend/internal/shared/config"
	"coverletter-backend/internal/shared/metrics"
	"coverletter-backend/internal/shared/server/middleware"
	"coverletter-backend/internal/shared/server/respond"
	"coverletter-backend/internal/web"
)

const generateRateGroup = "GENERATE"

// RouterDeps carries what NewRouter needs from bootstrap.
type RouterDeps struct {
	Config   config.Config
	Sessions *sessions.Store
	Health   *health.Service
	Limiter  *middleware.RateLimiter
	Now      func() time.Time
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	if deps.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	tmpl, err := web.LoadTemplate()
	if err != nil {
		return nil, err
	}
	if deps.Health == nil {
		deps.Health = health.NewService(deps.Sessions)
	}
	if deps.Limiter == nil {
		deps.Limiter = middleware.NewRateLimiter(deps.Now)
	}
	deps.Sessions.OnEvict(deps.Limiter.Forget)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, deps.Health.Status())
	})
	r.GET("/metrics", metrics.Handler())

	cfg := deps.Config
	pages := r.Group("/")
	pages.Use(
		middleware.Session(deps.Sessions),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == "/generate" {
					return generateRateGroup
				}
				return ""
			},
			Limiter: deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				generateRateGroup: {Rate: cfg.GenerateRatePerMinute / 60, Burst: cfg.GenerateBurst},
			},
		}),
	)
	web.NewHandler(cfg.MaxUploadBytes).RegisterRoutes(pages)

	return r, nil
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
