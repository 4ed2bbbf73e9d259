// Package orchestrator — ядро воркера бронирования показов.
//
// Оркестратор принимает заявки (из RabbitMQ и catch-up replay на
// старте), ведёт FIFO-очередь в памяти и обрабатывает её строго
// последовательно: не более одной заявки в работе одновременно.
// Обработка заявки — разрешение адреса через resolver и execution
// handoff исполнителю бронирования; исход фиксируется в booking ledger
// ровно один раз.
//
// Неудавшийся lookup адреса не блокирует очередь: заявка переводится в
// retry_pending, а отложенный одноразовый таймер возвращает её в хвост
// очереди после паузы. При опустошении очереди оркестратор уведомляет
// sweeper.
package orchestrator
