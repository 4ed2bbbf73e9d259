package domain

import "time"

// BookingStatus — статус обработки заявки в ledger.
//
// Жизненный цикл:
//
//	pending → {retry_pending ⇄ pending} → completed
//	                                    ↘ failed_no_address
//	                                    ↘ failed_booking_error
//	                                    ↘ failed_unexpected_error
//
// Все четыре правых статуса терминальные: после них запись не меняется.
type BookingStatus string

const (
	// BookingStatusPending — заявка принята в очередь, ещё не обработана.
	BookingStatusPending BookingStatus = "pending"

	// BookingStatusRetryPending — поиск адреса не удался, назначена
	// повторная попытка.
	BookingStatusRetryPending BookingStatus = "retry_pending"

	// BookingStatusCompleted — показ успешно забронирован.
	BookingStatusCompleted BookingStatus = "completed"

	// BookingStatusFailedNoAddress — адрес объекта не удалось получить
	// после всех попыток.
	BookingStatusFailedNoAddress BookingStatus = "failed_no_address"

	// BookingStatusFailedBooking — executor не смог выполнить бронирование.
	BookingStatusFailedBooking BookingStatus = "failed_booking_error"

	// BookingStatusFailedUnexpected — непредвиденная ошибка при обработке.
	BookingStatusFailedUnexpected BookingStatus = "failed_unexpected_error"
)

// ActiveBookingStatuses — нетерминальные статусы ledger: заявки в этих
// статусах подхватываются catch-up replay после рестарта.
var ActiveBookingStatuses = []string{
	string(BookingStatusPending),
	string(BookingStatusRetryPending),
}

// IsTerminal возвращает true, если статус финальный (запись больше не меняется).
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted,
		BookingStatusFailedNoAddress,
		BookingStatusFailedBooking,
		BookingStatusFailedUnexpected:
		return true
	default:
		return false
	}
}

// LedgerEntry — запись ledger: одна на каждую заявку, когда-либо
// принятую в очередь.
//
// Инвариант: не более одной записи на request id. Повторное принятие
// той же заявки — no-op (идемпотентность обеспечивается на уровне БД).
// Записи создаются при admission, мутируются только при смене статуса
// и никогда не удаляются.
type LedgerEntry struct {
	// RequestID — идентификатор заявки (primary key).
	RequestID string `json:"request_id"`

	// PropertyID — идентификатор объекта недвижимости.
	PropertyID string `json:"property_id"`

	// BookingStatus — текущий статус обработки.
	BookingStatus BookingStatus `json:"booking_status"`

	// AutoBooked — true, если показ был забронирован автоматически.
	// Выставляется только на переходе в completed.
	AutoBooked bool `json:"auto_booked"`

	// BookingID — идентификатор брони во внешней системе.
	BookingID string `json:"booking_id,omitempty"`

	// Error — описание ошибки для failed_* статусов.
	Error string `json:"error,omitempty"`

	// AdmittedAt — время принятия заявки в очередь.
	AdmittedAt time.Time `json:"admitted_at"`

	// UpdatedAt — время последнего изменения статуса.
	UpdatedAt time.Time `json:"updated_at"`
}

// AddressCacheEntry — закэшированный адрес объекта.
//
// Инвариант: однажды записанный адрес не инвалидируется в течение
// жизни процесса — он считается авторитетным.
type AddressCacheEntry struct {
	// PropertyID — идентификатор объекта (unique key).
	PropertyID string `json:"property_id"`

	// Address — нормализованная строка адреса.
	Address string `json:"address"`

	// ResolvedAt — время первого успешного получения адреса.
	ResolvedAt time.Time `json:"resolved_at"`
}
