package migrate

import (
	"context"
	"fmt"

	"github.com/outre-records/inventory-core/pkg/config"
	"github.com/outre-records/inventory-core/pkg/db"
	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. sqlite databases cannot run the Postgres migrations, so
// their schema is derived from the models instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": EmbeddedDir, "driver": client.Driver()}
	ctx = logg.WithFields(ctx, meta)

	if client.Driver() == config.DriverSQLite {
		logg.Info(ctx, "auto-migrating sqlite schema from models")
		if err := AutoMigrateModels(ctx, client); err != nil {
			return err
		}
		logg.Info(ctx, "sqlite schema ready")
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running Goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, EmbeddedDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrateModels creates or updates tables for every persisted model.
func AutoMigrateModels(ctx context.Context, client *db.Client) error {
	if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}
	return nil
}
