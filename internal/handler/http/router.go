package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/savedcarts/internal/repository"
	"github.com/utafrali/savedcarts/internal/view"
	"github.com/utafrali/savedcarts/pkg/health"
	"github.com/utafrali/savedcarts/pkg/middleware"
)

const serviceName = "saved-carts"

// RouterConfig holds everything the router mounts.
type RouterConfig struct {
	Service  SnapshotService
	Notices  repository.NoticeStore
	Renderer *view.Renderer
	Health   *health.Handler

	// HTTPMetrics instruments every request; Gatherer backs /metrics.
	HTTPMetrics *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer

	// TokenValidator is optional; without it only X-User-ID identifies users.
	TokenValidator middleware.TokenValidator
	// TrustedProxyCIDRs are the gateway addresses X-User-ID is accepted from.
	TrustedProxyCIDRs []string

	CartURL    string
	PprofCIDRs []string
	CORS       middleware.CORSConfig
	Logger     *slog.Logger
}

// NewRouter creates a chi router with all saved-carts routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Middleware(serviceName))
	}
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.Identify(cfg.TokenValidator, cfg.TrustedProxyCIDRs, cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	// Storefront action links, with or without a trailing slash.
	redirects := NewRedirectHandler(cfg.Service, cfg.Notices, cfg.CartURL, cfg.Logger)
	for path, h := range map[string]http.HandlerFunc{
		"/scd-save-cart":    redirects.SaveCart,
		"/scd-restore-cart": redirects.RestoreCart,
		"/scd-delete-cart":  redirects.DeleteCart,
	} {
		r.Get(path, h)
		r.Get(path+"/", h)
	}

	// HTML fragments
	fragments := NewFragmentHandler(cfg.Service, cfg.Notices, cfg.Renderer, cfg.Logger)
	r.Route("/fragments", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.Get("/save-cart-button", fragments.SaveButton)
		r.Get("/saved-carts", fragments.SavedCarts)
		r.Get("/notices", fragments.Notices)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(view.Static()))))

	// JSON API
	api := NewAPIHandler(cfg.Service, cfg.Renderer, cfg.Logger)
	r.Route("/api/v1/saved-carts", func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Get("/", api.List)
		r.Post("/", api.Save)
		r.Post("/{savedAt}/restore", api.Restore)
		r.Delete("/{savedAt}", api.Delete)
	})

	return r
}
