package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Dialect is the goose dialect of the SQL migrations. SQLite databases are
// bootstrapped through AutoMigrate instead.
const Dialect = "postgres"

// Commands accepted by Run.
const (
	CommandUp     = "up"
	CommandDown   = "down"
	CommandStatus = "status"
)

// Run executes a goose command against the store database. The directory is
// validated before "up" so a malformed file never applies half a schema.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	switch command {
	case CommandUp, CommandDown, CommandStatus:
	default:
		return fmt.Errorf("unsupported migrate command %q", command)
	}
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if command == CommandUp {
		if err := ValidateDir(dir); err != nil {
			return err
		}
	}

	if err := goose.SetDialect(Dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down to targetVersion. The target must
// be 0 or the version of a migration shipped in dir.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	target, err := ParseVersion(targetVersion)
	if err != nil {
		return err
	}
	if err := requireKnownVersion(dir, target); err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("db is required")
	}

	if err := goose.SetDialect(Dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}

// ParseVersion reads a YYYYMMDDHHMMSS migration version. "0" names the empty schema.
func ParseVersion(value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("version is required")
	}
	version, err := strconv.ParseInt(value, 10, 64)
	if err != nil || version < 0 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", value)
	}
	if version != 0 && len(value) != len("20060102150405") {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", value)
	}
	return version, nil
}

func requireKnownVersion(dir string, target int64) error {
	if target == 0 {
		return nil
	}
	migrations, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	if err != nil {
		return fmt.Errorf("collect migrations: %w", err)
	}
	for _, m := range migrations {
		if m.Version == target {
			return nil
		}
	}
	return fmt.Errorf("no migration with version %d in %s", target, dir)
}
