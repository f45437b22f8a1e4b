package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LLTIGER/pulse-architects-sub001/api/controllers"
	ordercontrollers "github.com/LLTIGER/pulse-architects-sub001/api/controllers/orders"
	webhookcontrollers "github.com/LLTIGER/pulse-architects-sub001/api/controllers/webhooks"
	"github.com/LLTIGER/pulse-architects-sub001/api/middleware"
	checkoutsvc "github.com/LLTIGER/pulse-architects-sub001/internal/checkout"
	"github.com/LLTIGER/pulse-architects-sub001/internal/downloads"
	"github.com/LLTIGER/pulse-architects-sub001/internal/orders"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/auth/session"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/config"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/redis"
)

// RedisStore is the subset of *redis.Client the HTTP layer touches.
type RedisStore interface {
	redis.Pinger
	redis.IdempotencyStore
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the API surface is wired from.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry

	DB       controllers.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Objects  controllers.ObjectOpener

	Checkout  checkoutsvc.Service
	Downloads downloads.Service
	Licenses  controllers.LicenseLister
	Orders    orders.Service

	StripeClient  webhookcontrollers.SigningSecretProvider
	StripeWebhook webhookcontrollers.StripeWebhookService
	WebhookGuard  webhookcontrollers.EventGuard
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CSRF.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    d.DB,
			"redis": d.Redis,
		}, logg))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	// gateway callbacks carry no browser headers and are authenticated by signature
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(d.StripeWebhook, d.StripeClient, d.WebhookGuard, logg))
	})

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.CheckoutWindow, cfg.RateLimit.CheckoutLimit)
	downloadPolicy := middleware.NewRateLimitPolicy("download", cfg.RateLimit.DownloadWindow, cfg.RateLimit.DownloadLimit)

	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.RateLimit(downloadPolicy, d.Redis, logg))
		r.Get("/api/v1/assets/{assetId}/download", controllers.AssetDownload(d.Downloads, d.Objects, logg))
	})

	// the origin gate runs before identity; the rate limit is per identity
	r.With(
		middleware.OriginCheck(cfg.CSRF.AllowedOrigins, logg),
		middleware.Auth(cfg.JWT, d.Sessions, logg),
		middleware.RateLimit(checkoutPolicy, d.Redis, logg),
		middleware.Idempotency(d.Redis, cfg.Checkout.IdempotencyTTL, logg),
	).Post("/api/v1/checkout", controllers.Checkout(d.Checkout, logg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

		r.Get("/api/v1/licenses", controllers.LicenseList(d.Licenses, logg))
		r.Get("/api/v1/orders", ordercontrollers.List(d.Orders, logg))
		r.Get("/api/v1/orders/{orderId}", ordercontrollers.Detail(d.Orders, logg))
	})

	return r
}
