// Package resolver получает адрес объекта недвижимости по property id.
//
// Порядок разрешения:
//  1. Кэш адресов (однажды записанный адрес авторитетен).
//  2. HTTP-запрос к сервису адресов с таймаутом.
//
// При ошибке lookup ведётся ограниченный счёт попыток (RetryState).
// После исчерпания попыток property помечается терминально и больше
// не запрашивается. Темп повторных попыток задаёт вызывающая сторона
// (отложенный re-enqueue в оркестраторе), resolver только фиксирует
// not-before и счётчик.
package resolver
