package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devmojahid/restu-food/internal/service"
	"github.com/devmojahid/restu-food/pkg/health"
	"github.com/devmojahid/restu-food/pkg/middleware"
)

// RouterConfig carries the cross-cutting settings of the HTTP surface.
type RouterConfig struct {
	PprofCIDRs []string
	CORS       middleware.CORSConfig
	// RequestTimeout bounds each request, including the offer service call.
	RequestTimeout time.Duration
	// OfferRatePerMinute and OfferBurst limit offer attempts per session.
	// A zero rate disables the limit.
	OfferRatePerMinute float64
	OfferBurst         int
}

// NewRouter creates a chi router with all cart service routes registered.
func NewRouter(
	cartService *service.CartService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Tracing runs first so access logs and panics carry the trace id.
	r.Use(
		middleware.Tracing("cart"),
		middleware.RequestLogging(logger),
		middleware.PrometheusMetrics("cart"),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
		chimw.Compress(5),
		chimw.Timeout(cfg.RequestTimeout),
	)

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	cartHandler := NewCartHandler(cartService, logger)

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.NoStore())
		r.Use(requireJSON)
		r.Use(middleware.Session())
		r.Use(middleware.RequestLogger(logger))

		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)

		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{itemId}", cartHandler.UpdateItemQuantity)
		r.Delete("/items/{itemId}", cartHandler.RemoveItem)

		r.With(middleware.RateLimit(cfg.OfferRatePerMinute, cfg.OfferBurst, middleware.SessionKey, logger)).
			Post("/offer", cartHandler.ApplyOffer)
		r.Delete("/offer", cartHandler.RemoveOffer)
	})

	return r
}
