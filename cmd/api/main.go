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

	"github.com/outre-records/inventory-core/api/routes"
	"github.com/outre-records/inventory-core/internal/catalog"
	"github.com/outre-records/inventory-core/internal/inventory"
	"github.com/outre-records/inventory-core/internal/orders"
	"github.com/outre-records/inventory-core/internal/settlements"
	"github.com/outre-records/inventory-core/pkg/config"
	"github.com/outre-records/inventory-core/pkg/db"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/metrics"
	"github.com/outre-records/inventory-core/pkg/migrate"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/redis"
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

	params, err := buildServices(logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}
	params.Config = cfg
	params.Logger = logg
	params.DB = dbClient
	params.Redis = redisClient
	params.Gatherer = prometheus.DefaultGatherer

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown failed", err)
		return
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func buildServices(logg *logger.Logger, dbClient *db.Client) (routes.Params, error) {
	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	ledger, err := inventory.NewService(inventory.ServiceParams{
		Repo:    inventory.NewRepository(conn),
		Tx:      dbClient,
		Logger:  logg,
		Metrics: metrics.NewLedgerMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return routes.Params{}, err
	}

	catalogRepo := catalog.NewRepository(conn)
	catalogSvc, err := catalog.NewService(catalogRepo, dbClient, ledger)
	if err != nil {
		return routes.Params{}, err
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(conn),
		Catalog: catalogRepo,
		Tx:      dbClient,
		Ledger:  ledger,
		Outbox:  outboxSvc,
		Logger:  logg,
	})
	if err != nil {
		return routes.Params{}, err
	}

	settlementsSvc, err := settlements.NewService(settlements.ServiceParams{
		Repo:   settlements.NewRepository(conn),
		Tx:     dbClient,
		Outbox: outboxSvc,
		Logger: logg,
	})
	if err != nil {
		return routes.Params{}, err
	}

	return routes.Params{
		Inventory:   ledger,
		Catalog:     catalogSvc,
		Orders:      ordersSvc,
		Settlements: settlementsSvc,
	}, nil
}
