package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/carbuild-backend/api/controllers"
	"github.com/angelmondragon/carbuild-backend/api/controllers/storefront"
	"github.com/angelmondragon/carbuild-backend/api/middleware"
	"github.com/angelmondragon/carbuild-backend/pkg/config"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
	"github.com/angelmondragon/carbuild-backend/pkg/redis"
)

// NewStorefrontRouter serves the single-shopper session API. idem may be
// nil, which disables response replay; gatherer may be nil, which hides /metrics.
func NewStorefrontRouter(
	cfg *config.Config,
	logg *logger.Logger,
	session storefront.Session,
	idem redis.IdempotencyStore,
	gatherer prometheus.Gatherer,
	readiness map[string]controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg, nil),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idem, logg, middleware.StorefrontIdempotency))

		r.Get("/vehicles", storefront.ListVehicles(session, logg))
		r.Route("/session", func(r chi.Router) {
			r.Put("/vehicle", storefront.SelectVehicle(session, logg))
			r.Get("/parts", storefront.ListParts(session, logg))
			r.Put("/items/{partID}", storefront.SetQuantity(session, logg))
			r.Get("/cart", storefront.Cart(session))
			r.Post("/checkout", storefront.Checkout(session, logg))
			r.Get("/confirmation", storefront.Confirmation(session, logg))
			r.Post("/reset", storefront.StartOver(session))
		})
	})

	return r
}
