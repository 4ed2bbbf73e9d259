package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Showrunner/internal/domain"
	"github.com/shaiso/Showrunner/internal/executor"
	"github.com/shaiso/Showrunner/internal/mq"
	"github.com/shaiso/Showrunner/internal/telemetry"
)

// Default configuration values.
const (
	defaultReplayBatch     = 500
	defaultShowingDuration = 30 // minutes
)

// Ledger — запись исходов обработки (реализуется repo.LedgerRepo).
type Ledger interface {
	Admit(ctx context.Context, requestID, propertyID string) (bool, error)
	SetStatus(ctx context.Context, requestID string, status domain.BookingStatus, errMsg string) error
	MarkBooked(ctx context.Context, requestID, bookingID string) error
}

// RequestSource — источник заявок для catch-up replay
// (реализуется repo.RequestRepo).
type RequestSource interface {
	ListUnprocessed(ctx context.Context, limit int) ([]domain.ShowingRequest, error)
}

// AddressResolver — разрешение адреса объекта (реализуется resolver.Resolver).
type AddressResolver interface {
	Resolve(ctx context.Context, propertyID string) (string, error)
	RetryDelay() time.Duration
}

// DrainListener получает уведомление об опустошении очереди
// (реализуется sweeper.Sweeper).
type DrainListener interface {
	OnQueueDrained()
}

// ProcessedPublisher публикует события об обработанных заявках
// (реализуется mq.Publisher).
type ProcessedPublisher interface {
	PublishShowingProcessed(ctx context.Context, payload mq.ShowingProcessedPayload) error
}

// Orchestrator — последовательный обработчик очереди заявок на показ.
//
// Инварианты:
//   - не более одного in-flight вызова Execute;
//   - на заявку не более одной записи ledger (идемпотентность через
//     Ledger.Admit);
//   - каждая заявка доводится до терминального статуса, кроме случаев
//     остановки процесса (тогда её подхватит replay на следующем старте).
type Orchestrator struct {
	ledger   Ledger
	requests RequestSource
	resolver AddressResolver
	exec     executor.Executor

	drainListener DrainListener
	publisher     ProcessedPublisher

	conn     *mq.Connection
	consumer *mq.Consumer

	replayBatch        int
	maxConsumeFailures int
	showingDuration    int

	mu           sync.Mutex
	queue        []domain.ShowingRequest
	isProcessing bool
	accepting    bool
	retryTimers  map[string]*time.Timer

	// procCtx живёт дольше контекста Start: при остановке in-flight
	// заявка дорабатывается, а не обрывается.
	procCtx    context.Context
	procCancel context.CancelFunc
	cancelFunc context.CancelFunc
	fatalCh    chan error
	wg         sync.WaitGroup

	logger *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Ledger — booking ledger.
	Ledger Ledger

	// Requests — источник заявок для catch-up replay.
	Requests RequestSource

	// Resolver — разрешение адресов.
	Resolver AddressResolver

	// Executor — исполнитель бронирования.
	Executor executor.Executor

	// DrainListener — получатель уведомлений об опустошении очереди
	// (nil — уведомления не отправляются).
	DrainListener DrainListener

	// Publisher — публикация showing.processed (nil — без публикации).
	Publisher ProcessedPublisher

	// Conn — подключение к RabbitMQ (nil — только catch-up replay).
	Conn *mq.Connection

	// ReplayBatch — максимум заявок за один replay (default: 500).
	ReplayBatch int

	// MaxConsumeFailures — порог подряд неудачных подписок consumer,
	// после которого оркестратор сигнализирует Fatal.
	MaxConsumeFailures int

	// ShowingDurationMinutes — длительность показа (default: 30).
	ShowingDurationMinutes int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	replayBatch := cfg.ReplayBatch
	if replayBatch <= 0 {
		replayBatch = defaultReplayBatch
	}

	showingDuration := cfg.ShowingDurationMinutes
	if showingDuration <= 0 {
		showingDuration = defaultShowingDuration
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		ledger:             cfg.Ledger,
		requests:           cfg.Requests,
		resolver:           cfg.Resolver,
		exec:               cfg.Executor,
		drainListener:      cfg.DrainListener,
		publisher:          cfg.Publisher,
		conn:               cfg.Conn,
		replayBatch:        replayBatch,
		maxConsumeFailures: cfg.MaxConsumeFailures,
		showingDuration:    showingDuration,
		retryTimers:        make(map[string]*time.Timer),
		fatalCh:            make(chan error, 1),
		logger:             logger,
	}
}

// Start запускает оркестратор: catch-up replay накопившихся заявок и
// подписка на события showing.requested.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	o.cancelFunc = cancel
	o.procCtx, o.procCancel = context.WithCancel(context.Background())

	o.mu.Lock()
	o.accepting = true
	o.mu.Unlock()

	// Заявки, накопившиеся пока воркер был выключен
	if err := o.replay(ctx); err != nil {
		o.logger.Error("catch-up replay failed", "error", err)
	}

	if o.conn != nil {
		o.consumer = mq.NewConsumer(o.conn, o.logger, mq.ConsumerConfig{
			Queue:            string(mq.QueueShowingsRequested),
			Handler:          o.handleShowingRequested,
			Prefetch:         10,
			MaxSetupFailures: o.maxConsumeFailures,
		})

		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			err := o.consumer.Start(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			o.logger.Error("showing consumer stopped", "error", err)
			if errors.Is(err, mq.ErrSubscriptionLost) {
				select {
				case o.fatalCh <- err:
				default:
				}
			}
		}()
	} else {
		o.logger.Warn("RabbitMQ not configured, processing replayed requests only")
	}

	o.logger.Info("orchestrator started")
	return nil
}

// Stop останавливает оркестратор.
//
// Порядок: прекращаем принимать заявки, отменяем отложенные retry,
// останавливаем consumer и ждём завершения in-flight заявки. Оставшиеся
// в очереди заявки не обрабатываются — их подхватит replay на следующем
// старте.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.accepting = false
	for id, timer := range o.retryTimers {
		timer.Stop()
		delete(o.retryTimers, id)
	}
	o.mu.Unlock()

	if o.consumer != nil {
		o.consumer.Stop()
	}
	if o.cancelFunc != nil {
		o.cancelFunc()
	}

	// Дорабатывает in-flight заявка, drain-горутина выходит сама
	o.wg.Wait()

	if o.procCancel != nil {
		o.procCancel()
	}

	o.logger.Info("orchestrator stopped")
}

// Fatal возвращает канал фатальных ошибок: оркестратор пишет в него,
// когда подписка на события потеряна безвозвратно и процесс должен
// завершиться.
func (o *Orchestrator) Fatal() <-chan error {
	return o.fatalCh
}

// Admit принимает заявку в обработку.
//
// Идемпотентна: заявка с уже существующей записью ledger — no-op без
// ошибки, независимо от статуса этой записи.
func (o *Orchestrator) Admit(ctx context.Context, req domain.ShowingRequest) error {
	if req.ID == "" || req.PropertyID == "" {
		return fmt.Errorf("%w: id and property_id are required", ErrInvalidRequest)
	}

	o.mu.Lock()
	accepting := o.accepting
	o.mu.Unlock()
	if !accepting {
		return ErrNotAccepting
	}

	created, err := o.ledger.Admit(ctx, req.ID, req.PropertyID)
	if err != nil {
		return fmt.Errorf("admit request %s: %w", req.ID, err)
	}
	if !created {
		o.logger.Debug("request already admitted, skipping",
			"request_id", req.ID,
			"property_id", req.PropertyID,
		)
		return nil
	}

	o.logger.Info("request admitted",
		"request_id", req.ID,
		"property_id", req.PropertyID,
	)
	o.enqueue(req)
	return nil
}

// QueueLen возвращает текущую длину очереди (наблюдаемость).
func (o *Orchestrator) QueueLen() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// replay поднимает из БД заявки без терминального исхода: и новые
// (dashboard создал, пока воркер был выключен), и прерванные остановкой
// процесса на середине очереди.
func (o *Orchestrator) replay(ctx context.Context) error {
	pending, err := o.requests.ListUnprocessed(ctx, o.replayBatch)
	if err != nil {
		return fmt.Errorf("list unprocessed requests: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	o.logger.Info("replaying unprocessed requests", "count", len(pending))

	for _, req := range pending {
		// Запись ledger может уже существовать (прерванная обработка) —
		// тогда Admit вернёт false, но заявку всё равно нужно поставить
		// в очередь: терминального исхода у неё нет.
		created, err := o.ledger.Admit(ctx, req.ID, req.PropertyID)
		if err != nil {
			o.logger.Error("failed to replay request",
				"request_id", req.ID,
				"error", err,
			)
			continue
		}
		if !created {
			o.logger.Debug("re-enqueueing interrupted request", "request_id", req.ID)
		}
		o.enqueue(req)
	}
	return nil
}

// enqueue добавляет заявку в хвост очереди и при необходимости
// запускает drain-горутину.
func (o *Orchestrator) enqueue(req domain.ShowingRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Остановка могла начаться между проверкой accepting и этим вызовом;
	// брошенную заявку подхватит replay
	if !o.accepting {
		return
	}

	o.queue = append(o.queue, req)
	telemetry.QueueDepth.Set(float64(len(o.queue)))

	if !o.isProcessing {
		o.isProcessing = true
		o.wg.Add(1)
		go o.drain()
	}
}

// drain последовательно обрабатывает очередь до опустошения.
// Единственная горутина обработки: инвариант "не более одного
// in-flight Execute" держится на том, что drain запускается только
// из enqueue под мьютексом при isProcessing=false.
func (o *Orchestrator) drain() {
	defer o.wg.Done()

	for {
		o.mu.Lock()
		if !o.accepting && len(o.queue) > 0 {
			// Остановка: бросаем хвост очереди, replay подхватит
			o.logger.Info("stopping with queued requests", "remaining", len(o.queue))
			o.queue = nil
		}
		if len(o.queue) == 0 {
			o.isProcessing = false
			accepting := o.accepting
			o.mu.Unlock()
			telemetry.QueueDepth.Set(0)

			if accepting {
				o.logger.Info("queue drained")
				if o.drainListener != nil {
					o.drainListener.OnQueueDrained()
				}
			}
			return
		}
		req := o.queue[0]
		o.queue = o.queue[1:]
		telemetry.QueueDepth.Set(float64(len(o.queue)))
		o.mu.Unlock()

		o.processRequest(o.procCtx, req)
	}
}

// scheduleRetry взводит одноразовый таймер, возвращающий заявку в хвост
// очереди после паузы resolver'а. Темп повторов обеспечивается только
// этим таймером, поэтому каждая постановка в очередь — ровно одна
// попытка lookup.
func (o *Orchestrator) scheduleRetry(req domain.ShowingRequest) {
	delay := o.resolver.RetryDelay()

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.accepting {
		return
	}
	if timer, ok := o.retryTimers[req.ID]; ok {
		// Не должно случаться: заявка не может ждать два повтора сразу
		timer.Stop()
	}

	o.retryTimers[req.ID] = time.AfterFunc(delay, func() {
		o.mu.Lock()
		delete(o.retryTimers, req.ID)
		accepting := o.accepting
		o.mu.Unlock()

		if !accepting {
			return
		}
		o.logger.Info("re-enqueueing request after retry delay",
			"request_id", req.ID,
			"property_id", req.PropertyID,
		)
		o.enqueue(req)
	})

	o.logger.Debug("retry scheduled",
		"request_id", req.ID,
		"delay", delay,
	)
}
