package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"jobboard/internal/config"
	"jobboard/internal/domain"
	"jobboard/internal/infra/postgres"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const migrateLockName = "migrate"

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema",
		Long:  "Apply the PostgreSQL schema. With etcd configured, concurrent runs are serialized by a lock.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.StoreDriver != config.DriverPostgres {
				return errors.New("migrate requires store_driver=postgres")
			}
			return migrate(cmd.Context(), cfg)
		},
	}
}

func migrate(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(os.Stderr, cfg)
	rt, err := openRuntime(ctx, cfg, uuid.NewString(), logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.locker != nil {
		lock, err := rt.locker.Lock(ctx, migrateLockName)
		if errors.Is(err, domain.ErrLockNotAcquired) {
			return errors.New("another migration is running")
		}
		if err != nil {
			return fmt.Errorf("failed to take migration lock: %w", err)
		}
		defer func() {
			if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to release migration lock", "error", err)
			}
		}()
	}

	if err := postgres.Migrate(ctx, rt.pool); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("schema applied")
	return nil
}
