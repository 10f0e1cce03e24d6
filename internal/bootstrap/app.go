package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"coverletter-backend/internal/generation"
	"coverletter-backend/internal/ingest"
	"coverletter-backend/internal/page"
	"coverletter-backend/internal/services/health"
	"coverletter-backend/internal/sessions"
	"coverletter-backend/internal/shared/config"
	"coverletter-backend/internal/shared/server"
	"coverletter-backend/internal/shared/server/middleware"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	Sessions  *sessions.Store
	Ingestor  *ingest.Ingestor
	Generator page.Generator
	Health    *health.Service
	Limiter   *middleware.RateLimiter
}

// Options overrides dependencies, mostly for tests.
type Options struct {
	Generator page.Generator
	PDFOpener ingest.PDFOpener
	Now       func() time.Time
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	return BuildWith(cfg, Options{})
}

// BuildWith is Build with dependency overrides.
func BuildWith(cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = config.DefaultSessionTTL
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = config.DefaultMaxUploadBytes
	}

	gen := opts.Generator
	if gen == nil {
		url := cfg.GeneratorURL
		if strings.TrimSpace(url) == "" {
			url = config.DefaultGeneratorURL
		}
		client, err := generation.NewClient(url, cfg.GeneratorTimeout)
		if err != nil {
			return nil, fmt.Errorf("build generator client: %w", err)
		}
		gen = client
	}

	ingestor := ingest.New(opts.PDFOpener)
	store := sessions.NewStore(cfg.SessionTTL, func(id string) *page.Controller {
		return page.NewController(id, ingestor, gen)
	}, opts.Now)
	healthSvc := health.NewService(store)
	limiter := middleware.NewRateLimiter(opts.Now)

	router, err := server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Sessions: store,
		Health:   healthSvc,
		Limiter:  limiter,
		Now:      opts.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	return &App{
		Config:    cfg,
		Router:    router,
		Sessions:  store,
		Ingestor:  ingestor,
		Generator: gen,
		Health:    healthSvc,
		Limiter:   limiter,
	}, nil
}
