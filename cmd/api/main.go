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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/herovault-backend/api/routes"
	"github.com/angelmondragon/herovault-backend/internal/accounts"
	"github.com/angelmondragon/herovault-backend/internal/catalog"
	"github.com/angelmondragon/herovault-backend/internal/ledger"
	"github.com/angelmondragon/herovault-backend/internal/packages"
	"github.com/angelmondragon/herovault-backend/internal/rewards"
	"github.com/angelmondragon/herovault-backend/internal/trades"
	"github.com/angelmondragon/herovault-backend/pkg/config"
	"github.com/angelmondragon/herovault-backend/pkg/db"
	"github.com/angelmondragon/herovault-backend/pkg/instance"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
	"github.com/angelmondragon/herovault-backend/pkg/metrics"
	"github.com/angelmondragon/herovault-backend/pkg/migrate"
	"github.com/angelmondragon/herovault-backend/pkg/outbox"
	"github.com/angelmondragon/herovault-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	economyMetrics := metrics.NewEconomyMetrics(registry)

	services, err := buildServices(cfg, logg, dbClient, redisClient, economyMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, economyMetrics *metrics.EconomyMetrics) (routes.Services, error) {
	policy := db.RetryPolicyFromConfig(cfg.Economy)
	policy.Observer = economyMetrics
	uow, err := db.NewUnitOfWork(dbClient, policy)
	if err != nil {
		return routes.Services{}, err
	}

	holdings := ledger.NewStore(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		return routes.Services{}, err
	}
	generator, err := rewards.NewGenerator(catalogService, rewards.DefaultRarityWeights(), rewards.WithObserver(economyMetrics))
	if err != nil {
		return routes.Services{}, err
	}

	startingCredits, err := cfg.Economy.StartingCreditsAmount()
	if err != nil {
		return routes.Services{}, err
	}
	accountsService, err := accounts.NewService(accounts.ServiceParams{
		Repo:            accounts.NewRepository(dbClient.DB()),
		Holdings:        holdings,
		UnitOfWork:      uow,
		Outbox:          outboxService,
		Logger:          logg,
		StartingCredits: startingCredits,
	})
	if err != nil {
		return routes.Services{}, err
	}

	packagesService, err := packages.NewService(packages.ServiceParams{
		Repo:           packages.NewRepository(dbClient.DB()),
		Holdings:       holdings,
		UnitOfWork:     uow,
		Generator:      generator,
		Cards:          catalogService,
		Outbox:         outboxService,
		Locker:         redisClient,
		Metrics:        economyMetrics,
		Logger:         logg,
		Rand:           rewards.NewSource(cfg.Economy.RewardSeed),
		RetireLockTTL:  cfg.Economy.RetireLockTTL,
		FeaturedWindow: cfg.Economy.FeaturedWindow(),
	})
	if err != nil {
		return routes.Services{}, err
	}

	tradesService, err := trades.NewService(trades.ServiceParams{
		Repo:       trades.NewRepository(dbClient.DB()),
		Holdings:   holdings,
		UnitOfWork: uow,
		Catalog:    catalogService,
		Outbox:     outboxService,
		Metrics:    economyMetrics,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Accounts: accountsService,
		Catalog:  catalogService,
		Packages: packagesService,
		Trades:   tradesService,
	}, nil
}
