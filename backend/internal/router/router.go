package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itchan-dev/caster/backend/internal/handler"
	"github.com/itchan-dev/caster/shared/config"
	mw "github.com/itchan-dev/caster/shared/middleware"
	"github.com/itchan-dev/caster/shared/middleware/metrics"
	rl "github.com/itchan-dev/caster/shared/middleware/ratelimiter"
)

// JSON API only, no scripts/styles needed
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// New wires the previews API. Rate limits set with Use apply to every route in that group combined.
func New(h *handler.Handler, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.Compress(5))

	// browser composers call /previews directly
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Public.Previews.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(mw.SecurityHeaders(mw.SecurityOptions{CSP: apiCSP, HSTSMaxAge: cfg.Public.Previews.HSTSMaxAge}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	p := cfg.Public.Previews
	perClient := rl.New(rl.Config{Rate: p.RequestsPerSec, Burst: p.RateLimitBurst, IdleTTL: p.RateLimitIdleTTL})
	global := rl.New(rl.Config{Rate: p.GlobalRequestsPerSec, Burst: int(p.GlobalRequestsPerSec), IdleTTL: p.RateLimitIdleTTL})
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit(perClient, mw.GetIP))
		r.Use(mw.GlobalRateLimit(global))
		r.Get("/previews", h.Previews)
	})

	return r
}
