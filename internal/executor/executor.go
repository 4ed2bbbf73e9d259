package executor

import (
	"context"
	"errors"
)

// Ошибки executor'ов.
var (
	// ErrNotConnected — браузерная сессия не запущена или разорвана.
	ErrNotConnected = errors.New("executor not connected")

	// ErrSweepUnsupported — реализация не умеет cancellation sweep.
	ErrSweepUnsupported = errors.New("sweep not supported by this executor")
)

// Booking — параметры бронирования показа.
type Booking struct {
	// RequestID — идентификатор заявки (для логов и отладки).
	RequestID string

	// Address — адрес объекта.
	Address string

	// PreferredDate — желаемая дата (YYYY-MM-DD); "" — ближайший слот.
	PreferredDate string

	// PreferredTime — желаемое время (HH:MM); "" — ближайший слот.
	PreferredTime string

	// DurationMinutes — длительность показа в минутах.
	DurationMinutes int
}

// Outcome — результат бронирования.
//
// Инфраструктурные ошибки (браузер умер, команда не запустилась)
// возвращаются через error; Outcome описывает исход самого
// бронирования.
type Outcome struct {
	// Success — бронирование выполнено.
	Success bool `json:"success"`

	// BookingID — идентификатор брони во внешней системе.
	BookingID string `json:"booking_id,omitempty"`

	// Error — описание ошибки бронирования.
	Error string `json:"error,omitempty"`
}

// Executor — контракт исполнителя бронирования.
//
// Execute — долгая операция (минуты); таймаут ей не навязывается,
// исполнитель сам управляет внутренними таймаутами шагов.
type Executor interface {
	// Execute выполняет бронирование по адресу.
	Execute(ctx context.Context, booking Booking) (*Outcome, error)

	// Ping проверяет живость ресурса исполнителя.
	Ping(ctx context.Context) error

	// Reconnect переподключает/перезапускает ресурс исполнителя.
	Reconnect(ctx context.Context) error

	// Close освобождает ресурс.
	Close() error
}
