// Package cli реализует команды процесса showrunner.
//
// # Команды
//
//   - worker — основной режим: воркер бронирования показов
//     (очередь, resolver, executor, sweeper, health monitor);
//   - sweep — один запуск cancellation sweep и выход;
//   - enqueue — публикация события showing.requested (отладка
//     и ручная постановка заявки);
//   - status — вывод записи ledger по id заявки.
//
// Вся конфигурация — из переменных окружения (config.FromEnv);
// флаги есть только у enqueue, где параметры заявки удобнее
// передавать из командной строки.
package cli
