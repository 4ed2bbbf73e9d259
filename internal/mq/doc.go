// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Типы сообщений:
//   - showing.requested — новая заявка на показ (внешняя система → оркестратор)
//   - showing.processed — заявка обработана (оркестратор → dashboard)
//
// Exchanges:
//   - showrunner.showings — события заявок
//   - showrunner.dlq      — dead letter queue
//
// Транспорт считается надёжным источником событий; если подписка
// перестаёт устанавливаться после нескольких попыток подряд, consumer
// возвращает ErrSubscriptionLost и процесс завершается, чтобы внешний
// supervisor перезапустил его в чистом состоянии.
package mq
