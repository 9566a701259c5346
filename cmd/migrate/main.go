package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/rvstore-backend/pkg/config"
	"github.com/angelmondragon/rvstore-backend/pkg/db"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/angelmondragon/rvstore-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate|seed")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the migrations directory.
	if done, err := runOffline(opts); done {
		exitOnError(err)
		return
	}

	cfg, err := config.Load()
	exitOnError(err)

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"driver": cfg.DB.Driver,
		"cmd":    opts.cmd,
	})

	if err := runOnline(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate finished")
}

func runOffline(opts options) (bool, error) {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return true, fmt.Errorf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return true, err
		}
		fmt.Println("created migration:", path)
		return true, nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return true, err
		}
		fmt.Println("migration validation passed")
		return true, nil
	}
	return false, nil
}

func runOnline(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	// goose targets postgres; sqlite schemas come from the gorm models.
	if cfg.DB.IsSQLite() {
		switch opts.cmd {
		case migrate.CommandUp:
			return migrate.AutoMigrate(ctx, dbClient.DB())
		case "seed":
			return migrate.SeedDefaults(ctx, dbClient.DB())
		}
		return fmt.Errorf("-cmd=%s is not supported for the sqlite driver", opts.cmd)
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}

	switch opts.cmd {
	case migrate.CommandUp, migrate.CommandDown, migrate.CommandStatus:
		return migrate.Run(ctx, sqlDB, opts.dir, opts.cmd)
	case "version":
		if opts.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	case "seed":
		return migrate.SeedDefaults(ctx, dbClient.DB())
	}
	return fmt.Errorf("unknown -cmd value: %s", opts.cmd)
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "migrate:", err)
	os.Exit(1)
}
