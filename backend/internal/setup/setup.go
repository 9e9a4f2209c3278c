package setup

import (
	"context"
	"fmt"

	"github.com/itchan-dev/caster/backend/internal/handler"
	"github.com/itchan-dev/caster/backend/internal/scraper"
	"github.com/itchan-dev/caster/backend/internal/service"
	"github.com/itchan-dev/caster/backend/internal/storage/pg"
	"github.com/itchan-dev/caster/shared/config"
	"github.com/itchan-dev/caster/shared/logger"
)

// previewCache is what both cache backends offer.
type previewCache interface {
	service.Cache
	service.Sweeper
	Ping(ctx context.Context) error
}

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config    *config.Config
	Cache     previewCache
	CacheKind string
	Handler   *handler.Handler
	storage   *pg.Storage
}

// SetupDependencies initializes all dependencies required for the application.
// The preview cache is postgres when credentials are configured, in memory otherwise.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg}

	if cfg.Private.Pg != nil {
		storage, err := pg.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("preview cache: %w", err)
		}
		deps.storage = storage
		deps.Cache = storage
		deps.CacheKind = "postgres"
	} else {
		deps.Cache = service.NewMemoryCache(cfg.Public.Previews.CacheTTL)
		deps.CacheKind = "memory"
	}
	logger.Component("previews").Info("preview cache ready", "kind", deps.CacheKind)

	previews := service.NewPreviews(scraper.New(cfg.Public.Previews), deps.Cache, cfg.Public.Previews)
	deps.Handler = handler.New(previews, deps.Cache, deps.CacheKind, cfg)
	return deps, nil
}

// StartBackground launches the cache sweeper; it stops with ctx.
func (d *Dependencies) StartBackground(ctx context.Context) {
	service.StartSweeper(ctx, d.Cache, d.Config.Public.Previews.CacheGCInterval)
}

func (d *Dependencies) Cleanup() {
	if d.storage != nil {
		if err := d.storage.Cleanup(); err != nil {
			logger.Component("previews").Error("failed to close preview cache", "error", err)
		}
	}
}
