package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/outre-records/inventory-core/pkg/config"
	"github.com/outre-records/inventory-core/pkg/db"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/migrate"
)

func main() {
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate|automigrate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory; \""+migrate.EmbeddedDir+"\" uses the set compiled into this binary")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// Commands that do NOT require config or a DB
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			exitf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		versions, err := migrate.ListVersions(*dir)
		if err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Printf("migration validation passed (%d migrations)\n", len(versions))
		return
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmd,
		"dir":    *dir,
		"driver": cfg.DB.Driver,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if *cmd == "automigrate" || dbClient.Driver() == config.DriverSQLite {
		if *cmd != "up" && *cmd != "automigrate" {
			exitf("sqlite databases only support -cmd=up or -cmd=automigrate")
		}
		if err := migrate.AutoMigrateModels(ctx, dbClient); err != nil {
			exitf("automigrate failed: %v", err)
		}
		logg.Info(ctx, "schema auto-migrated from models")
		return
	}

	sqlDB, err := dbClient.SQL()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, *dir, *cmd); err != nil {
			exitf("goose %s failed: %v", *cmd, err)
		}

	case "version":
		if *version == "" {
			exitf("missing -version for version command")
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *version); err != nil {
			exitf("goose version migrate failed: %v", err)
		}

	default:
		exitf("unknown -cmd value: %s", *cmd)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
