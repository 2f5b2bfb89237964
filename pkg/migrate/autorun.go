package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/sealcard-backend/pkg/config"
	"github.com/angelmondragon/sealcard-backend/pkg/db"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

// autoRunEnabled gates MaybeRunDev: dev only, flag on, and never against
// sqlite, which cannot run the Postgres schema.
func autoRunEnabled(cfg *config.Config) (bool, string) {
	switch {
	case !cfg.App.IsDev():
		return false, ""
	case !cfg.FeatureFlags.AutoMigrate:
		return false, ""
	case cfg.DB.Driver == "sqlite" || cfg.FeatureFlags.UseSQLite:
		return false, "sqlite connection"
	}
	return true, ""
}

// MaybeRunDev brings the schema up to date from the embedded migrations on
// service start when SEALCARD_AUTO_MIGRATE is set in dev.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	ok, reason := autoRunEnabled(cfg)
	if !ok {
		if reason != "" {
			logg.Warn(logg.WithField(ctx, "reason", reason), "skipping auto-migrate")
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	runner, err := NewRunner(sqlDB, "", logg)
	if err != nil {
		return err
	}
	logg.Info(ctx, "auto-migrate: applying embedded migrations")
	return runner.Run(ctx, "up")
}
