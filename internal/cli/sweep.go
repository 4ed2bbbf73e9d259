package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/Showrunner/internal/config"
	"github.com/shaiso/Showrunner/internal/repo"
	"github.com/shaiso/Showrunner/internal/telemetry"
)

// NewSweepCmd создаёт команду sweep: один запуск cancellation sweep
// и выход. Используется для ручной отмены устаревших броней без
// ожидания debounce-таймера воркера.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single cancellation sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep()
		},
	}
}

func runSweep() error {
	logger := telemetry.SetupLogger()

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Executor != config.ExecutorModeBrowser {
		return fmt.Errorf("sweep requires browser executor mode")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	ledgerRepo := repo.NewLedgerRepo(pool)

	exec, sweepSvc, err := buildExecutor(ctx, cfg, ledgerRepo, logger)
	if err != nil {
		return fmt.Errorf("create executor: %w", err)
	}
	defer exec.Close()

	if sweepSvc == nil {
		return fmt.Errorf("executor does not support sweep")
	}

	cancelled, failed, err := sweepSvc.RunSweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	logger.Info("sweep completed", "cancelled", cancelled, "failed", failed)
	return nil
}
