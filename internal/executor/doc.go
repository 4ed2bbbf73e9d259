// Package executor выполняет многошаговое бронирование показа
// на стороннем сайте.
//
// Две реализации одного контракта:
//   - BrowserExecutor — одна долгоживущая браузерная сессия (chromedp);
//     дешёвые запуски, но требует Health Monitor и синхронного
//     восстановления при разрыве.
//   - SpawnExecutor — отдельный запуск внешней автоматизации на каждую
//     заявку; платит полную стоимость старта браузера, зато без
//     разделяемого состояния.
//
// Оркестратор пишется против контракта Executor и выбирает реализацию
// через конфигурацию.
package executor
