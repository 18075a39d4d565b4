package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/kinfortune-backend/api/routes"
	"github.com/angelmondragon/kinfortune-backend/internal/auth"
	"github.com/angelmondragon/kinfortune-backend/internal/billing"
	"github.com/angelmondragon/kinfortune-backend/internal/numerology"
	"github.com/angelmondragon/kinfortune-backend/internal/tarot"
	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/internal/webhooks"
	squarewebhook "github.com/angelmondragon/kinfortune-backend/internal/webhooks/square"
	stripewebhook "github.com/angelmondragon/kinfortune-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/kinfortune-backend/pkg/auth/session"
	"github.com/angelmondragon/kinfortune-backend/pkg/config"
	"github.com/angelmondragon/kinfortune-backend/pkg/db"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
	"github.com/angelmondragon/kinfortune-backend/pkg/metrics"
	"github.com/angelmondragon/kinfortune-backend/pkg/migrate"
	"github.com/angelmondragon/kinfortune-backend/pkg/redis"
	"github.com/angelmondragon/kinfortune-backend/pkg/security"
	"github.com/angelmondragon/kinfortune-backend/pkg/square"
	"github.com/angelmondragon/kinfortune-backend/pkg/stripe"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	tables, err := numerology.Load()
	if err != nil {
		logg.Error(ctx, "failed to load numerology tables", err)
		os.Exit(1)
	}
	numerologyService, err := numerology.NewService(tables)
	if err != nil {
		logg.Error(ctx, "failed to create numerology service", err)
		os.Exit(1)
	}
	deck, err := tarot.LoadDeck()
	if err != nil {
		logg.Error(ctx, "failed to load tarot deck", err)
		os.Exit(1)
	}
	tarotService, err := tarot.NewService(deck, nil)
	if err != nil {
		logg.Error(ctx, "failed to create tarot service", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	hasher := security.NewPasswordHasher(cfg.Password)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Hasher:         hasher,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{UserRepo: userRepo, Hasher: hasher})
	if err != nil {
		logg.Error(ctx, "failed to create register service", err)
		os.Exit(1)
	}
	directory, err := users.NewService(userRepo)
	if err != nil {
		logg.Error(ctx, "failed to create user directory", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	webhookMetrics := metrics.NewWebhooks(registry)

	// Missing provider keys leave the affected endpoints answering with a
	// configuration error. Interfaces stay nil rather than holding a nil *Client.
	billingParams := billing.ServiceParams{Users: userRepo, Config: billing.ConfigFrom(cfg), Logger: logg}
	verifierOpts := stripewebhook.VerifierOptions{
		AllowTestSignature: !cfg.App.IsProd(),
		SkipSignature:      cfg.Webhooks.SkipSignatureInDev && !cfg.App.IsProd(),
	}
	var stripeVerifier *stripewebhook.Verifier
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	switch {
	case err == nil:
		billingParams.Stripe = stripeClient
		stripeVerifier = stripewebhook.NewVerifier(stripeClient, verifierOpts)
	case errors.Is(err, stripe.ErrNotConfigured):
		logg.Warn(ctx, "stripe not configured; billing endpoints degraded")
		stripeVerifier = stripewebhook.NewVerifier(nil, verifierOpts)
	default:
		logg.Error(ctx, "failed to create stripe client", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billingParams)
	if err != nil {
		logg.Error(ctx, "failed to create billing service", err)
		os.Exit(1)
	}

	stripeWebhooks, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Users:       userRepo,
		DefaultPlan: billingParams.Config.DefaultPlan,
		Logger:      logg,
		Recorder:    webhookMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	squareParams := squarewebhook.ServiceParams{Users: userRepo, Logger: logg, Recorder: webhookMetrics}
	squareClient, err := square.NewClient(ctx, cfg.Square, logg)
	switch {
	case err == nil:
		squareParams.Square = squareClient
	case errors.Is(err, square.ErrNotConfigured):
		logg.Warn(ctx, "square access token not set; only linked customers can be matched")
	default:
		logg.Error(ctx, "failed to create square client", err)
		os.Exit(1)
	}
	squareWebhooks, err := squarewebhook.NewService(squareParams)
	if err != nil {
		logg.Error(ctx, "failed to create square webhook service", err)
		os.Exit(1)
	}

	stripeGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook guard", err)
		os.Exit(1)
	}
	squareGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, "square-webhook")
	if err != nil {
		logg.Error(ctx, "failed to create square webhook guard", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Store:          redisClient,
		Sessions:       sessionManager,
		Users:          userRepo,
		Auth:           authService,
		Register:       registerService,
		Directory:      directory,
		Billing:        billingService,
		Numerology:     numerologyService,
		Tarot:          tarotService,
		StripeVerifier: stripeVerifier,
		StripeWebhooks: stripeWebhooks,
		StripeGuard:    stripeGuard,
		SquareVerifier: square.NewVerifier(cfg.Square.WebhookSignatureKey, cfg.Square.WebhookNotificationURL),
		SquareWebhooks: squareWebhooks,
		SquareGuard:    squareGuard,
		Metrics:        metrics.Handler(registry),
	})

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server stopped")
}
