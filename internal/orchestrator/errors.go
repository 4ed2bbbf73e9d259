package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrNotAccepting — оркестратор не принимает заявки
	// (ещё не запущен или уже останавливается).
	ErrNotAccepting = errors.New("orchestrator is not accepting requests")

	// ErrInvalidRequest — заявка без обязательных полей.
	ErrInvalidRequest = errors.New("invalid showing request")
)
