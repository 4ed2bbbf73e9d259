package domain

import "time"

// SweepRecord — результат последнего запуска cancellation sweep.
//
// Эфемерная запись: хранится одна на процесс, перезаписывается каждым
// запуском и не переживает рестарт.
type SweepRecord struct {
	// RanAt — время запуска sweep.
	RanAt time.Time `json:"ran_at"`

	// Duration — длительность выполнения.
	Duration time.Duration `json:"duration"`

	// Cancelled — количество отменённых показов.
	Cancelled int `json:"cancelled"`

	// Failed — количество показов, отменить которые не удалось.
	Failed int `json:"failed"`

	// Error — текст ошибки, если sweep завершился неуспешно.
	Error string `json:"error,omitempty"`
}
