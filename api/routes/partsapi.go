package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/carbuild-backend/api/controllers"
	parts "github.com/angelmondragon/carbuild-backend/api/controllers/partsapi"
	"github.com/angelmondragon/carbuild-backend/api/middleware"
	"github.com/angelmondragon/carbuild-backend/api/responses"
	"github.com/angelmondragon/carbuild-backend/pkg/config"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
	"github.com/angelmondragon/carbuild-backend/pkg/redis"
)

// NewPartsRouter serves the parts API. Every route answers with and without
// a trailing slash.
func NewPartsRouter(
	cfg *config.Config,
	logg *logger.Logger,
	svc parts.Service,
	idem redis.IdempotencyStore,
	gatherer prometheus.Gatherer,
	deps map[string]parts.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg, responses.WriteStatusError),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Get("/health/live", controllers.HealthLive(cfg))
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(idem, logg, middleware.PartsIdempotency))

		both(r, http.MethodGet, "/cars", parts.ListVehicles(svc, logg))
		both(r, http.MethodGet, "/cars/{carID}", parts.GetVehicle(svc, logg))
		both(r, http.MethodGet, "/cars/{carID}/pecas", parts.ListVehicleParts(svc, logg))
		both(r, http.MethodGet, "/pecas", parts.ListParts(svc, logg))
		both(r, http.MethodGet, "/pecas/{partID}", parts.GetPart(svc, logg))
		both(r, http.MethodPost, "/calculate-price", parts.CalculatePrice(svc, logg))
		both(r, http.MethodPost, "/orders", parts.CreateOrder(svc, logg))
		both(r, http.MethodGet, "/orders/{orderID}/report", parts.OrderReport(svc, logg))
		both(r, http.MethodPost, "/generate-order-id", parts.GenerateOrderID(svc))
		both(r, http.MethodGet, "/health", parts.Health(deps, logg))
		both(r, http.MethodPost, "/pagar", parts.LegacyCheckout(svc, logg))
	})

	return r
}

func both(r chi.Router, method, pattern string, h http.HandlerFunc) {
	r.Method(method, pattern, h)
	r.Method(method, pattern+"/", h)
}
