package resolver

import "errors"

// Ошибки resolver'а.
var (
	// ErrRetryable — lookup не удался, но попытки ещё не исчерпаны.
	// Вызывающая сторона планирует повторное разрешение.
	ErrRetryable = errors.New("address lookup failed, retryable")

	// ErrNoAddress — адрес получить не удалось после всех попыток
	// (или в ответе сервиса не нашлось распознаваемого адреса,
	// когда попытки исчерпаны). Терминальная ошибка.
	ErrNoAddress = errors.New("no address available")
)
