package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Showrunner/internal/domain"
	"github.com/shaiso/Showrunner/internal/executor"
	"github.com/shaiso/Showrunner/internal/mq"
	"github.com/shaiso/Showrunner/internal/resolver"
	"github.com/shaiso/Showrunner/internal/telemetry"
)

// processRequest обрабатывает одну заявку: разрешение адреса и
// execution handoff. Любой исход, кроме retry, терминален и фиксируется
// в ledger ровно один раз.
//
// Паника обработки не роняет drain-горутину: заявка уходит в
// failed_unexpected_error, очередь продолжает обрабатываться.
func (o *Orchestrator) processRequest(ctx context.Context, req domain.ShowingRequest) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic while processing request",
				"request_id", req.ID,
				"panic", r,
			)
			o.persistOutcome(ctx, req, domain.BookingStatusFailedUnexpected,
				fmt.Sprintf("panic: %v", r), "")
		}
	}()

	logger := telemetry.WithPropertyID(telemetry.WithRequestID(o.logger, req.ID), req.PropertyID)
	logger.Info("processing request")

	address, err := o.resolver.Resolve(ctx, req.PropertyID)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrRetryable):
			// Не терминально: заявка вернётся в хвост очереди по таймеру
			if serr := o.ledger.SetStatus(ctx, req.ID, domain.BookingStatusRetryPending, err.Error()); serr != nil {
				logger.Error("failed to mark retry_pending", "error", serr)
			}
			o.scheduleRetry(req)

		case errors.Is(err, resolver.ErrNoAddress):
			o.persistOutcome(ctx, req, domain.BookingStatusFailedNoAddress, err.Error(), "")

		default:
			o.persistOutcome(ctx, req, domain.BookingStatusFailedUnexpected, err.Error(), "")
		}
		return
	}

	o.handoff(ctx, req, address)
}

// handoff передаёт заявку исполнителю бронирования.
//
// Перед передачей проверяется живость ресурса исполнителя; мёртвый
// ресурс лечится одной синхронной попыткой Reconnect, не дожидаясь
// health monitor. Неудача восстановления терминальна для заявки.
func (o *Orchestrator) handoff(ctx context.Context, req domain.ShowingRequest, address string) {
	logger := telemetry.WithPropertyID(telemetry.WithRequestID(o.logger, req.ID), req.PropertyID)

	if err := o.exec.Ping(ctx); err != nil {
		logger.Warn("executor unhealthy before handoff, reconnecting", "error", err)

		if err := o.exec.Reconnect(ctx); err != nil {
			telemetry.ExecutorReconnects.WithLabelValues("failed").Inc()
			o.persistOutcome(ctx, req, domain.BookingStatusFailedUnexpected,
				fmt.Sprintf("executor recovery failed: %v", err), "")
			return
		}
		telemetry.ExecutorReconnects.WithLabelValues("ok").Inc()
		logger.Info("executor recovered before handoff")
	}

	outcome, err := o.exec.Execute(ctx, executor.Booking{
		RequestID:       req.ID,
		Address:         address,
		PreferredDate:   req.ScheduledDate,
		PreferredTime:   req.ScheduledTime,
		DurationMinutes: o.showingDuration,
	})
	if err != nil {
		// Инфраструктурная ошибка исполнителя
		o.persistOutcome(ctx, req, domain.BookingStatusFailedUnexpected, err.Error(), "")
		return
	}

	if outcome.Success {
		o.persistOutcome(ctx, req, domain.BookingStatusCompleted, "", outcome.BookingID)
		return
	}
	o.persistOutcome(ctx, req, domain.BookingStatusFailedBooking, outcome.Error, "")
}

// persistOutcome фиксирует терминальный исход заявки в ledger и
// публикует событие showing.processed.
func (o *Orchestrator) persistOutcome(ctx context.Context, req domain.ShowingRequest, status domain.BookingStatus, errMsg, bookingID string) {
	logger := telemetry.WithRequestID(o.logger, req.ID)

	var err error
	if status == domain.BookingStatusCompleted {
		err = o.ledger.MarkBooked(ctx, req.ID, bookingID)
	} else {
		err = o.ledger.SetStatus(ctx, req.ID, status, errMsg)
	}
	if err != nil {
		// Бронирование уже произошло во внешней системе; расхождение
		// с ledger только логируем
		logger.Error("failed to persist outcome",
			"status", status,
			"error", err,
		)
	} else {
		logger.Info("request processed",
			"status", status,
			"booking_id", bookingID,
		)
	}

	telemetry.ShowingsProcessed.WithLabelValues(string(status)).Inc()
	o.publishProcessed(ctx, req, status, bookingID, errMsg)
}

// publishProcessed публикует showing.processed best-effort: ошибка
// публикации не влияет на исход заявки.
func (o *Orchestrator) publishProcessed(ctx context.Context, req domain.ShowingRequest, status domain.BookingStatus, bookingID, errMsg string) {
	if o.publisher == nil {
		return
	}

	payload := mq.ShowingProcessedPayload{
		RequestID:     req.ID,
		PropertyID:    req.PropertyID,
		BookingStatus: status,
		BookingID:     bookingID,
		Error:         errMsg,
	}
	if err := o.publisher.PublishShowingProcessed(ctx, payload); err != nil {
		o.logger.Warn("failed to publish showing.processed",
			"request_id", req.ID,
			"error", err,
		)
	}
}
