package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/outre-records/inventory-core/internal/catalog"
	"github.com/outre-records/inventory-core/internal/cron"
	"github.com/outre-records/inventory-core/internal/inventory"
	"github.com/outre-records/inventory-core/pkg/config"
	"github.com/outre-records/inventory-core/pkg/db"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/metrics"
	"github.com/outre-records/inventory-core/pkg/migrate"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	lock, err := cron.NewRedisLock(redisClient.Raw(), redisClient.LockKey("cron-worker:"+envOrLocal(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	metrics.Serve(ctx, cfg.Metrics.Addr, prometheus.DefaultGatherer, logg)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	outboxSvc := outbox.NewService(outboxRepo, logg)

	ledger, err := inventory.NewService(inventory.ServiceParams{
		Repo:   inventory.NewRepository(conn),
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		return nil, err
	}

	audit, err := cron.NewLedgerAuditJob(cron.LedgerAuditJobParams{
		Logger:    logg,
		DB:        dbClient,
		Products:  catalogRepo,
		Ledger:    ledger,
		Outbox:    outboxSvc,
		BatchSize: cfg.Inventory.AuditBatchSize,
	})
	if err != nil {
		return nil, err
	}
	lowStock, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:   logg,
		DB:       dbClient,
		Products: catalogRepo,
		Outbox:   outboxSvc,
		Limit:    cfg.Inventory.LowStockScanLimit,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(audit, lowStock, retention)
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
