// Пакет kv — key-value хранилище внешнего состояния сервиса:
// сессии, счётчики rate limiting, массивы конкурсных категорий,
// счётчик посещений. Система записи — Redis; MemoryStore — облегчённая
// реализация для тестов.
package kv

import (
	"context"
	"time"
)

// Store — контракт KV-хранилища.
//
// TTL == 0 означает запись без срока жизни. Incr — атомарный инкремент
// нативным примитивом хранилища: счётчики под конкуренцией не должны
// реализовываться через read-modify-write.
type Store interface {
	// Get возвращает значение ключа. Второй результат — false,
	// если ключ отсутствует (это не ошибка).
	Get(ctx context.Context, key string) (string, bool, error)

	// Put записывает значение с опциональным TTL.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete удаляет ключ. Идемпотентна: отсутствие ключа — не ошибка.
	Delete(ctx context.Context, key string) error

	// Exists проверяет существование ключа.
	Exists(ctx context.Context, key string) (bool, error)

	// Incr атомарно увеличивает целочисленное значение ключа на 1
	// и возвращает новое значение. Отсутствующий ключ считается нулём.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire устанавливает TTL существующего ключа.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// SetNX записывает значение, только если ключ отсутствует.
	// Возвращает true, если запись произошла.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}
