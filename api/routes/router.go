package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/kinfortune-backend/api/controllers"
	billingcontrollers "github.com/angelmondragon/kinfortune-backend/api/controllers/billing"
	webhookcontrollers "github.com/angelmondragon/kinfortune-backend/api/controllers/webhooks"
	"github.com/angelmondragon/kinfortune-backend/api/middleware"
	"github.com/angelmondragon/kinfortune-backend/internal/auth"
	"github.com/angelmondragon/kinfortune-backend/internal/numerology"
	"github.com/angelmondragon/kinfortune-backend/internal/tarot"
	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/internal/webhooks"
	stripewebhook "github.com/angelmondragon/kinfortune-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/kinfortune-backend/pkg/auth/session"
	"github.com/angelmondragon/kinfortune-backend/pkg/config"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
	"github.com/angelmondragon/kinfortune-backend/pkg/pagination"
)

// KeyValueStore is the redis surface used by rate limiting and request
// idempotency.
type KeyValueStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type userDirectory interface {
	List(ctx context.Context, page pagination.Params) (*users.UserList, error)
}

type guard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeWebhooks interface {
	webhookcontrollers.StripeService
	webhookcontrollers.StripeSimulator
}

// Deps carries everything the HTTP surface is wired to.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Store    KeyValueStore
	Sessions session.Checker
	Users    userFinder

	Auth       auth.Service
	Register   auth.RegisterService
	Directory  userDirectory
	Billing    billingcontrollers.Service
	Numerology *numerology.Service
	Tarot      *tarot.Service

	StripeVerifier webhookcontrollers.StripeVerifier
	StripeWebhooks stripeWebhooks
	StripeGuard    guard
	SquareVerifier webhookcontrollers.SquareVerifier
	SquareWebhooks webhookcontrollers.SquareService
	SquareGuard    guard

	Metrics http.Handler
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{"db": d.DB, "redis": d.Redis}, logg))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	skipSignature := cfg.Webhooks.SkipSignatureInDev && !cfg.App.IsProd()
	idempotent := middleware.Idempotency(d.Store, cfg.Billing.IdempotencyTTL, logg)
	simulatorEnabled := cfg.FeatureFlags.WebhookSimulator && !cfg.App.IsProd()

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(middleware.RegisterPolicy(cfg.AuthRateLimit), d.Store, logg)).
			Post("/register", controllers.AuthRegister(d.Register, logg))
		r.With(middleware.AuthRateLimit(middleware.LoginPolicy(cfg.AuthRateLimit), d.Store, logg)).
			Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(middleware.AuthRateLimit(middleware.RefreshPolicy(cfg.AuthRateLimit), d.Store, logg)).
			Post("/refresh", controllers.AuthRefresh(d.Auth, logg))

		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(d.StripeVerifier, d.StripeWebhooks, d.StripeGuard, logg))
		r.Post("/webhooks/square", webhookcontrollers.SquareWebhook(d.SquareVerifier, d.SquareWebhooks, d.SquareGuard,
			webhookcontrollers.SquareOptions{SkipSignature: skipSignature}, logg))

		r.Get("/fortune/free", controllers.FortuneFree(d.Numerology, logg))
		r.Get("/fortune/kake", controllers.KakeList(d.Numerology))
		r.Get("/fortune/kake/{kin}", controllers.KakeByKin(d.Numerology, logg))
		r.Get("/stripe/prices", billingcontrollers.ListPrices(d.Billing, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

			r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
			r.Get("/fortune", controllers.Fortune(d.Numerology, logg))
			r.Get("/fortune/compatibility", controllers.FortuneCompatibility(d.Numerology, nil, logg))
			r.Get("/subscriptions/status", billingcontrollers.SubscriptionStatus(d.Billing, logg))
			r.With(idempotent).Post("/create-checkout-session", billingcontrollers.CreateCheckoutSession(d.Billing, logg))
			r.With(idempotent).Post("/payments/complete", billingcontrollers.CompletePayment(d.Billing, logg))
			r.With(middleware.RequirePaid(d.Users, logg)).Post("/tarot/draw", controllers.TarotDraw(d.Tarot, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

				r.Get("/payments/status", billingcontrollers.PaymentStatus(d.Billing, logg))
				r.Put("/payments/status", billingcontrollers.UpdatePaymentStatus(d.Billing, logg))
				r.With(idempotent).Post("/stripe/prices", billingcontrollers.CreatePrice(d.Billing, logg))
				r.Get("/admin/users", controllers.AdminUsers(d.Directory, logg))
				r.Get("/debug/stripe", billingcontrollers.DebugStripe(d.Billing, logg))
				r.With(middleware.RequireEnabled(simulatorEnabled, logg)).
					Post("/webhooks/test", webhookcontrollers.StripeWebhookTest(d.StripeWebhooks, logg))
			})
		})
	})

	return r
}

var (
	_ guard          = (*webhooks.IdempotencyGuard)(nil)
	_ stripeWebhooks = (*stripewebhook.Service)(nil)
)
