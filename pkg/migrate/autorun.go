package migrate

import (
	"context"

	"github.com/wycenapp/wycena-sync/pkg/config"
	"github.com/wycenapp/wycena-sync/pkg/db"
	"github.com/wycenapp/wycena-sync/pkg/logger"
)

// MaybeRun applies pending migrations when auto-migrate is enabled. The
// on-device store owns its schema, so this is on by default.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.DB.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}

	if err := Up(ctx, sqlDB, client.Driver()); err != nil {
		return err
	}

	if logg != nil {
		logg.Info(ctx, "local store migrations applied")
	}
	return nil
}
