package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/Showrunner/internal/config"
	"github.com/shaiso/Showrunner/internal/executor"
	"github.com/shaiso/Showrunner/internal/health"
	"github.com/shaiso/Showrunner/internal/mq"
	"github.com/shaiso/Showrunner/internal/orchestrator"
	"github.com/shaiso/Showrunner/internal/repo"
	"github.com/shaiso/Showrunner/internal/resolver"
	"github.com/shaiso/Showrunner/internal/sweeper"
	"github.com/shaiso/Showrunner/internal/telemetry"
)

// NewWorkerCmd создаёт команду worker — основной режим процесса.
func NewWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the showing booking worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker()
		},
	}
}

func runWorker() error {
	logger := telemetry.SetupLogger()
	logger.Info("starting showrunner worker")

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	ledgerRepo := repo.NewLedgerRepo(pool)
	requestRepo := repo.NewRequestRepo(pool)
	addressRepo := repo.NewAddressCacheRepo(pool)

	// RabbitMQ. Без него воркер работает, но обрабатывает только
	// catch-up replay — новые события не приходят.
	var mqConn *mq.Connection
	var publisher *mq.Publisher

	mqURL := cfg.RabbitURL
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in replay-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Resolver
	res := resolver.New(resolver.Config{
		Cache:       addressRepo,
		BaseURL:     cfg.LookupBaseURL,
		Timeout:     cfg.LookupTimeout,
		MaxAttempts: cfg.LookupMaxAttempts,
		RetryDelay:  cfg.LookupRetryDelay,
		Logger:      logger,
	})

	// Executor
	exec, sweepSvc, err := buildExecutor(ctx, cfg, ledgerRepo, logger)
	if err != nil {
		return fmt.Errorf("create executor: %w", err)
	}
	defer exec.Close()

	// Sweeper: отменять брони умеет только browser executor
	sw := sweeper.New(sweeper.Config{
		Service:  sweepSvc,
		Enabled:  cfg.SweepEnabled && sweepSvc != nil,
		Delay:    cfg.SweepDelay,
		CronExpr: cfg.SweepCron,
		Logger:   logger,
	})
	if err := sw.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}

	// Health monitor
	monitor := health.New(health.Config{
		Executor: exec,
		Interval: cfg.HealthInterval,
		Logger:   logger,
	})
	monitor.Start(ctx)

	// Orchestrator
	orch := orchestrator.New(orchestrator.Config{
		Ledger:             ledgerRepo,
		Requests:           requestRepo,
		Resolver:           res,
		Executor:           exec,
		DrainListener:      sw,
		Publisher:          publisher,
		Conn:               mqConn,
		ReplayBatch:        cfg.ReplayBatchSize,
		MaxConsumeFailures: cfg.MaxConsumeFailures,
		Logger:             logger,
	})
	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, pingCancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer pingCancel()

		if mqConn != nil && !mqConn.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("event transport disconnected"))
			return
		}
		if !monitor.IsAlive(pingCtx) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("executor unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		addr := ":" + cfg.WorkerPort
		logger.Info("listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Работаем до сигнала или фатальной ошибки подписки
	var fatal error
	select {
	case <-ctx.Done():
	case fatal = <-orch.Fatal():
		logger.Error("fatal transport error, shutting down", "error", fatal)
	}

	// Порядок остановки: сначала перестаём принимать и дорабатываем
	// in-flight заявку, затем гасим фоновые сервисы
	orch.Stop()
	monitor.Stop()
	sw.Stop()

	logger.Info("showrunner worker stopped")
	return fatal
}

// buildExecutor создаёт executor по режиму из конфигурации.
// Второе возвращаемое значение — sweep-сервис: nil для spawn,
// у которого нет долгоживущей сессии для отмены броней.
func buildExecutor(ctx context.Context, cfg config.Config, ledger *repo.LedgerRepo, logger *slog.Logger) (executor.Executor, sweeper.Service, error) {
	switch cfg.Executor {
	case config.ExecutorModeSpawn:
		exec, err := executor.NewSpawn(cfg.SpawnCmd, logger)
		if err != nil {
			return nil, nil, err
		}
		return exec, nil, nil

	default:
		exec, err := executor.NewBrowser(ctx, executor.BrowserConfig{
			BaseURL:    cfg.BookingBaseURL,
			Headless:   cfg.BrowserHeadless,
			ProfileDir: cfg.ChromeProfileDir,
			Stale:      ledger,
			StaleAfter: cfg.SweepStaleAfter,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return exec, exec, nil
	}
}
