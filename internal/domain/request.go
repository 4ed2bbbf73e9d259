package domain

import "time"

// ShowingRequest — заявка на показ объекта недвижимости.
//
// Создаётся внешней системой (dashboard или realtime-событие) и
// доставляется оркестратору через Event Source Adapter. Для
// оркестратора заявка read-only: все изменения статуса бронирования
// записываются в ledger, а не в саму заявку.
type ShowingRequest struct {
	// ID — уникальный идентификатор заявки.
	ID string `json:"id"`

	// PropertyID — идентификатор объекта недвижимости.
	PropertyID string `json:"property_id"`

	// UserID — идентификатор пользователя, создавшего заявку.
	UserID string `json:"user_id,omitempty"`

	// Status — статус жизненного цикла заявки во внешней системе
	// (pending, scheduled, rescheduled и т.д.).
	Status string `json:"status"`

	// ScheduledDate — желаемая дата показа (YYYY-MM-DD).
	ScheduledDate string `json:"scheduled_date,omitempty"`

	// ScheduledTime — желаемое время показа (HH:MM).
	ScheduledTime string `json:"scheduled_time,omitempty"`

	// GroupName — имя группы показов (для групповых туров).
	GroupName string `json:"group_name,omitempty"`

	// CreatedAt — время создания заявки во внешней системе.
	CreatedAt time.Time `json:"created_at"`
}

// ReplayableStatuses — статусы заявок, которые оркестратор подхватывает
// при старте (catch-up replay), если для них ещё нет записи в ledger.
var ReplayableStatuses = []string{"pending", "scheduled", "rescheduled"}
