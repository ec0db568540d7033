package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stitchfield/stitchfield-backend/api/controllers"
	webhookcontrollers "github.com/stitchfield/stitchfield-backend/api/controllers/webhooks"
	"github.com/stitchfield/stitchfield-backend/api/middleware"
	"github.com/stitchfield/stitchfield-backend/internal/orders"
	"github.com/stitchfield/stitchfield-backend/internal/returns"
	paymentwebhook "github.com/stitchfield/stitchfield-backend/internal/webhooks/payments"
	"github.com/stitchfield/stitchfield-backend/pkg/config"
	"github.com/stitchfield/stitchfield-backend/pkg/db"
	"github.com/stitchfield/stitchfield-backend/pkg/logger"
	"github.com/stitchfield/stitchfield-backend/pkg/redis"
	"github.com/stitchfield/stitchfield-backend/pkg/square"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	squareClient *square.Client,
	webhookService *paymentwebhook.Service,
	webhookGuard *paymentwebhook.IdempotencyGuard,
	ordersService orders.Service,
	returnsService returns.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentWebhook(webhookService, squareClient, webhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/orders/{sessionId}", controllers.OrderDetail(ordersService, logg))

		r.Post("/returns", controllers.ReturnCreate(returnsService, logg))
		r.Get("/returns", controllers.ReturnList(returnsService, logg))
		r.Get("/returns/{returnId}", controllers.ReturnDetail(returnsService, logg))
		r.Post("/returns/{returnId}/transition", controllers.ReturnTransition(returnsService, logg))
	})

	return r
}
