package migrate

import (
	"context"
	"fmt"

	"github.com/crosscartapp/crosscart-backend/pkg/config"
	"github.com/crosscartapp/crosscart-backend/pkg/db"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations at startup. It only acts in dev
// environments with the auto-migrate flag on; production schema changes go
// through the migrate binary.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	switch {
	case !cfg.App.IsDev():
		return nil
	case !cfg.FeatureFlags.AutoMigrate:
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(logg.WithField(ctx, "env", cfg.App.Env), "dir", DefaultDir)
	logg.Info(ctx, "running goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "goose migrations completed")
	return nil
}
