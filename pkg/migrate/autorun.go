package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/config"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
)

type sqlHandle interface {
	SQL() (*sql.DB, error)
}

// MaybeRunDev brings a dev database up to date on boot. The api, cron worker
// and relay all call it, so the run holds a postgres advisory lock and the
// late starters find nothing left to apply.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client sqlHandle) error {
	if !autoMigrate(cfg) {
		return nil
	}
	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return fmt.Errorf("migration lock: %w", err)
	}
	source, err := Source("")
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, source, goose.WithSessionLocker(locker))
	if err != nil {
		return err
	}

	steps, err := runner.Exec(ctx, "up")
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if len(steps) > 0 {
		logg.Info(logg.WithField(ctx, "applied", len(steps)), "dev schema migrated")
	}
	return nil
}

func autoMigrate(cfg *config.Config) bool {
	return cfg != nil && cfg.App.IsDev() && cfg.Flags.AutoMigrate
}
