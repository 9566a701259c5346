package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/rvstore-backend/pkg/config"
	"github.com/angelmondragon/rvstore-backend/pkg/db"
	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultCategoryID          int64 = 1
	DefaultCategoryDescription       = "Uncategorized"
	DefaultMargin                    = "0.05"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.IsSQLite() {
		ctx = logg.WithField(ctx, "driver", config.DBDriverSQLite)
		logg.Info(ctx, "running gorm auto-migrate (dev auto-run)")
		if err := AutoMigrate(ctx, client.DB()); err != nil {
			return err
		}
		logg.Info(ctx, "auto-migrate completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrate creates the schema from the gorm models and seeds the store defaults.
// It mirrors the SQL migrations for databases goose does not target.
func AutoMigrate(ctx context.Context, conn *gorm.DB) error {
	if err := conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return SeedDefaults(ctx, conn)
}

// SeedDefaults inserts the default category and preferences when missing.
func SeedDefaults(ctx context.Context, conn *gorm.DB) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category := models.Category{ID: DefaultCategoryID, Description: DefaultCategoryDescription}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&category).Error; err != nil {
			return fmt.Errorf("seed default category: %w", err)
		}

		prefs := []models.Preference{
			{Key: string(enums.PreferenceKeyGlobalDefaultMargin), Value: DefaultMargin},
			{Key: string(enums.PreferenceKeyDefaultProductCategory), Value: fmt.Sprintf("%d", DefaultCategoryID)},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&prefs).Error; err != nil {
			return fmt.Errorf("seed preferences: %w", err)
		}
		return nil
	})
}
