// Package repo предоставляет доступ к PostgreSQL.
//
// Структура:
//   - db.go            — создание pgxpool
//   - ledger_repo.go   — booking ledger (идемпотентные записи статусов)
//   - address_repo.go  — кэш адресов объектов
//   - request_repo.go  — catch-up чтение необработанных заявок
//
// Ledger — единственное место, где хранится исход обработки каждой
// заявки. Пишет в него только оркестратор; dashboard читает.
package repo
