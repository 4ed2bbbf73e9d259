// Package health следит за живостью ресурса executor'а.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Showrunner/internal/executor"
	"github.com/shaiso/Showrunner/internal/telemetry"
)

const defaultInterval = 60 * time.Second

// Monitor периодически проверяет живость executor'а и переподключает
// его при разрыве.
//
// Работает независимо от обработки очереди и не блокирует её:
// Execution Handoff, обнаруживший мёртвый ресурс посреди заявки,
// выполняет собственную синхронную попытку восстановления, не дожидаясь
// следующего тика монитора.
type Monitor struct {
	exec     executor.Executor
	interval time.Duration

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Monitor.
type Config struct {
	// Executor — проверяемый ресурс.
	Executor executor.Executor

	// Interval — период проверки (default: 60s).
	Interval time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Monitor.
func New(cfg Config) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		exec:     cfg.Executor,
		interval: interval,
		logger:   logger,
	}
}

// Start запускает фоновый цикл проверки.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.loop(ctx)
	}()

	m.logger.Info("health monitor started", "interval", m.interval)
}

// Stop останавливает монитор.
func (m *Monitor) Stop() {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.wg.Wait()
	m.logger.Info("health monitor stopped")
}

// IsAlive проверяет живость ресурса executor'а.
func (m *Monitor) IsAlive(ctx context.Context) bool {
	return m.exec.Ping(ctx) == nil
}

// loop — цикл периодических проверок.
func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckAndRecover(ctx)
		}
	}
}

// CheckAndRecover проверяет ресурс и при разрыве пытается восстановить.
// Неудачное восстановление не фатально: следующая попытка — на
// следующем тике.
func (m *Monitor) CheckAndRecover(ctx context.Context) {
	if err := m.exec.Ping(ctx); err == nil {
		return
	}

	m.logger.Warn("executor unhealthy, attempting recovery")

	if err := m.exec.Reconnect(ctx); err != nil {
		telemetry.ExecutorReconnects.WithLabelValues("failed").Inc()
		m.logger.Error("executor recovery failed", "error", err)
		return
	}

	telemetry.ExecutorReconnects.WithLabelValues("ok").Inc()
	m.logger.Info("executor recovered")
}
