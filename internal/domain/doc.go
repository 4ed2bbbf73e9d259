// Package domain содержит основные сущности системы Showrunner:
// ShowingRequest, LedgerEntry, RetryState, SweepRecord.
//
// Сущности не зависят от инфраструктуры (БД, MQ, браузер) и
// используются всеми остальными пакетами.
package domain
