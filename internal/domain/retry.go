package domain

import "time"

// RetryState — состояние повторных попыток поиска адреса.
//
// Хранится только в памяти, ключ — property id. После выставления
// Terminal запись сохраняется для наблюдаемости, но попытки больше
// не выполняются. Очищается при успешном получении адреса.
type RetryState struct {
	// PropertyID — идентификатор объекта.
	PropertyID string

	// Attempts — количество выполненных попыток.
	// Инвариант: Attempts не превышает настроенный максимум.
	Attempts int

	// LastAttemptAt — время последней попытки.
	LastAttemptAt time.Time

	// NotBefore — время, раньше которого повторная попытка не выполняется.
	NotBefore time.Time

	// Terminal — все попытки исчерпаны, адрес не получен.
	Terminal bool
}
