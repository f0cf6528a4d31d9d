package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modbuspro/license-server/api/controllers"
	webhookcontrollers "github.com/modbuspro/license-server/api/controllers/webhooks"
	"github.com/modbuspro/license-server/api/middleware"
	"github.com/modbuspro/license-server/internal/activations"
	stripewebhook "github.com/modbuspro/license-server/internal/webhooks/stripe"
	"github.com/modbuspro/license-server/pkg/config"
	"github.com/modbuspro/license-server/pkg/db"
	"github.com/modbuspro/license-server/pkg/logger"
	"github.com/modbuspro/license-server/pkg/redis"
	"github.com/modbuspro/license-server/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	activationsService activations.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	pingers := []controllers.Pinger{dbP}
	if redisClient != nil {
		pingers = append(pingers, redisClient)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, pingers...))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Typed nils must not reach the handler's guard interface.
	var guard webhookcontrollers.StripeWebhookGuard
	if stripeWebhookGuard != nil {
		guard = stripeWebhookGuard
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/activate", controllers.Activate(activationsService, logg))
		r.Post("/deactivate", controllers.Deactivate(activationsService, logg))
		r.Post("/validate", controllers.Validate(activationsService, logg))
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, guard, logg))
		})
	})

	return r
}
