// Package sweeper планирует и выполняет cancellation sweep —
// пакетную отмену устаревших auto-booked показов.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Showrunner/internal/domain"
	"github.com/shaiso/Showrunner/internal/telemetry"
)

const defaultDelay = 10 * time.Minute

// sweepCronParser — парсер cron-выражений (стандартные 5 полей).
var sweepCronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Service — внешний коллаборатор, выполняющий сам sweep
// (реализуется BrowserExecutor).
type Service interface {
	RunSweep(ctx context.Context) (cancelled, failed int, err error)
}

// Sweeper — планировщик cancellation sweep.
//
// Два пути запуска, оба через общий guarded RunSweep:
//   - debounce-таймер после опустошения очереди (OnQueueDrained);
//     повторное взведение отменяет предыдущий таймер — побеждает
//     последний drain, поэтому серия всплесков заявок даёт один sweep;
//   - опциональное cron-расписание, независимое от очереди.
//
// Повторный вход в RunSweep во время работающего sweep — no-op с
// логом, а не очередь.
type Sweeper struct {
	svc      Service
	enabled  bool
	delay    time.Duration
	cronExpr string

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	last    *domain.SweepRecord

	cron *cron.Cron

	logger     *slog.Logger
	baseCtx    context.Context
	cancelFunc context.CancelFunc
}

// Config — конфигурация Sweeper.
type Config struct {
	// Service — исполнитель sweep.
	Service Service

	// Enabled — выключенный sweeper игнорирует OnQueueDrained.
	Enabled bool

	// Delay — задержка debounce после drain (default: 10m).
	Delay time.Duration

	// CronExpr — опциональное cron-расписание ("" — выключено).
	CronExpr string

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Sweeper.
func New(cfg Config) *Sweeper {
	delay := cfg.Delay
	if delay <= 0 {
		delay = defaultDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		svc:      cfg.Service,
		enabled:  cfg.Enabled,
		delay:    delay,
		cronExpr: cfg.CronExpr,
		logger:   logger,
	}
}

// Start запускает sweeper (и cron-расписание, если задано).
func (s *Sweeper) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.baseCtx = ctx
	s.cancelFunc = cancel

	if !s.enabled {
		s.logger.Info("sweeper disabled")
		return nil
	}

	if s.cronExpr != "" {
		s.cron = cron.New(cron.WithParser(sweepCronParser))
		if _, err := s.cron.AddFunc(s.cronExpr, func() {
			s.RunSweep(s.baseCtx)
		}); err != nil {
			return fmt.Errorf("invalid sweep cron expression %q: %w", s.cronExpr, err)
		}
		s.cron.Start()
		s.logger.Info("sweep cron schedule armed", "cron", s.cronExpr)
	}

	s.logger.Info("sweeper started", "delay", s.delay)
	return nil
}

// Stop отменяет таймер, cron и ждёт отмены контекста.
func (s *Sweeper) Stop() {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	s.logger.Info("sweeper stopped")
}

// OnQueueDrained (пере)взводит debounce-таймер.
// Взведение отменяет ранее ожидающий таймер (last-drain-wins).
// При выключенном sweeper — no-op.
func (s *Sweeper) OnQueueDrained() {
	if !s.enabled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}

	s.timer = time.AfterFunc(s.delay, func() {
		s.RunSweep(s.baseCtx)
	})

	s.logger.Debug("sweep timer armed", "delay", s.delay)
}

// RunSweep выполняет один sweep.
// Повторный вход во время работающего sweep — no-op с логом.
func (s *Sweeper) RunSweep(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info("sweep already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	s.logger.Info("sweep started")
	telemetry.SweepRuns.Inc()

	record := domain.SweepRecord{RanAt: start}

	cancelled, failed, err := s.svc.RunSweep(ctx)
	record.Duration = time.Since(start)
	record.Cancelled = cancelled
	record.Failed = failed

	if err != nil {
		record.Error = err.Error()
		s.logger.Error("sweep failed", "duration", record.Duration, "error", err)
	} else {
		s.logger.Info("sweep completed",
			"duration", record.Duration,
			"cancelled", cancelled,
			"failed", failed,
		)
	}

	s.mu.Lock()
	s.last = &record
	s.mu.Unlock()
}

// LastRecord возвращает результат последнего sweep.
func (s *Sweeper) LastRecord() (domain.SweepRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return domain.SweepRecord{}, false
	}
	return *s.last, true
}
