package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/modbuspro/license-server/api/routes"
	"github.com/modbuspro/license-server/internal/activations"
	"github.com/modbuspro/license-server/internal/licenses"
	"github.com/modbuspro/license-server/internal/notifications"
	stripewebhook "github.com/modbuspro/license-server/internal/webhooks/stripe"
	"github.com/modbuspro/license-server/pkg/config"
	"github.com/modbuspro/license-server/pkg/db"
	"github.com/modbuspro/license-server/pkg/logger"
	"github.com/modbuspro/license-server/pkg/mailer"
	"github.com/modbuspro/license-server/pkg/metrics"
	"github.com/modbuspro/license-server/pkg/migrate"
	"github.com/modbuspro/license-server/pkg/redis"
	"github.com/modbuspro/license-server/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "license-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "license-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, webhook replay guard disabled")
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	licensingMetrics := metrics.NewLicensingMetrics(registry)

	var notifier notifications.Service
	if cfg.SMTP.Host != "" {
		smtpMailer, err := mailer.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			logg.Error(context.Background(), "failed to configure smtp", err)
			os.Exit(1)
		}
		notifier, err = notifications.NewService(notifications.ServiceParams{
			Mailer:       smtpMailer,
			SupportEmail: cfg.Licensing.SupportEmail,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create notification service", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "smtp not configured, license emails disabled")
	}

	activationsService, err := activations.NewService(activations.ServiceParams{
		LicensesRepo:    licenses.NewRepository(dbClient.DB()),
		ActivationsRepo: activations.NewRepository(dbClient.DB()),
		Metrics:         licensingMetrics,
		SupportEmail:    cfg.Licensing.SupportEmail,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create activation service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		LicensesRepo: licenses.NewRepository(dbClient.DB()),
		Checkout:     stripewebhook.NewCheckoutClient(stripeClient),
		Notifier:     notifier,
		Metrics:      licensingMetrics,
		Logger:       logg,
		KeyPrefix:    cfg.Licensing.KeyPrefix,
		PriceTiers:   cfg.Stripe.PriceTiers(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	var webhookGuard *stripewebhook.IdempotencyGuard
	if redisClient != nil {
		webhookGuard, err = stripewebhook.NewIdempotencyGuard(redisClient, cfg.Redis.GuardTTL, "stripe-webhook")
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook guard", err)
			os.Exit(1)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting license server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			activationsService,
			stripeClient,
			webhookService,
			webhookGuard,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "license server stopped unexpectedly", err)
		os.Exit(1)
	}
}
