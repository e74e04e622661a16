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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/assignmentpoint-backend/api/controllers"
	"github.com/angelmondragon/assignmentpoint-backend/api/routes"
	"github.com/angelmondragon/assignmentpoint-backend/internal/bids"
	"github.com/angelmondragon/assignmentpoint-backend/internal/ledger"
	"github.com/angelmondragon/assignmentpoint-backend/internal/marketplace"
	"github.com/angelmondragon/assignmentpoint-backend/internal/orders"
	"github.com/angelmondragon/assignmentpoint-backend/internal/payments"
	"github.com/angelmondragon/assignmentpoint-backend/internal/settlement"
	"github.com/angelmondragon/assignmentpoint-backend/internal/users"
	stripewebhook "github.com/angelmondragon/assignmentpoint-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/config"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/metrics"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/migrate"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/redis"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/stripe"
)

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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}

	currency, err := enums.ParseCurrency(cfg.Marketplace.Currency)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	marketMetrics := metrics.NewMarketplaceMetrics(registry)

	gormDB := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(gormDB), logg)
	orderRepo := orders.NewRepository(gormDB)
	bidRepo := bids.NewRepository(gormDB)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gormDB), dbClient, logg, marketMetrics)
	if err != nil {
		return err
	}

	profiles, err := users.NewService(users.NewRepository(gormDB), dbClient, ledgerSvc, currency, logg)
	if err != nil {
		return err
	}

	settlementPolicy, err := settlement.PolicyFromConfig(cfg.Settlement)
	if err != nil {
		return err
	}
	settlementSvc, err := settlement.NewService(settlement.Deps{
		Rules:    settlement.NewRepository(gormDB),
		Orders:   orderRepo,
		Tx:       dbClient,
		Wallets:  ledgerSvc,
		Profiles: profiles,
		Outbox:   events,
		Policy:   settlementPolicy,
		Logger:   logg,
		Metrics:  marketMetrics,
	})
	if err != nil {
		return err
	}
	if cfg.DB.IsSQLite() {
		seeded, seedErr := settlementSvc.SeedDefaultRules(ctx)
		if seedErr != nil {
			return seedErr
		}
		if seeded > 0 {
			logg.Info(logg.WithField(ctx, "rules", seeded), "seeded default revenue rules")
		}
	}

	orderSvc, err := orders.NewService(orders.Deps{
		Repo:     orderRepo,
		Bids:     bidRepo,
		Tx:       dbClient,
		Outbox:   events,
		Profiles: profiles,
		Wallets:  ledgerSvc,
		Settler:  settlementSvc,
		Currency: currency,
		Logger:   logg,
		Metrics:  marketMetrics,
	})
	if err != nil {
		return err
	}

	marketSvc, err := marketplace.NewService(marketplace.Deps{
		Orders:  orderRepo,
		Bids:    bidRepo,
		Tx:      dbClient,
		Outbox:  events,
		Writers: profiles,
		Policy:  marketplace.PolicyFromConfig(cfg.Marketplace),
		Logger:  logg,
		Metrics: marketMetrics,
	})
	if err != nil {
		return err
	}

	paymentSvc, err := payments.NewService(payments.Deps{
		Repo:      payments.NewRepository(gormDB),
		Tx:        dbClient,
		Gateway:   stripeClient,
		Customers: profiles,
		Wallets:   ledgerSvc,
		Outbox:    events,
		Currency:  currency,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Deposits: paymentSvc,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "stripe-webhook")
	if err != nil {
		return err
	}

	router := routes.NewRouter(routes.Deps{
		Config: cfg,
		Logger: logg,
		Pingers: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
		Idempotency:   redisClient,
		BidLimiter:    redisClient,
		Metrics:       marketMetrics,
		Gatherer:      registry,
		Profiles:      profiles,
		Orders:        orderSvc,
		Marketplace:   marketSvc,
		Accounts:      ledgerSvc,
		Payments:      paymentSvc,
		Revenue:       settlementSvc,
		StripeClient:  stripeClient,
		StripeWebhook: webhookSvc,
		WebhookGuard:  webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
