// Пакет ratelimit — fixed-window счётчики поверх KV.
//
// Счётчик и его TTL устанавливаются вместе: существование ключа и есть
// окно, истечение ключа атомарно сбрасывает окно. Инкремент — нативный
// атомарный примитив хранилища (INCR), TTL ставится только на первом
// инкременте, открывающем окно.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/arturkryukov/assoweb/internal/storage/kv"
)

// Параметры окон по назначению.
const (
	// LoginLimit / LoginWindow — попытки входа с одного IP
	LoginLimit  = 5
	LoginWindow = 15 * time.Minute

	// ContactLimit / ContactWindow — отправки контактной формы с одного IP
	ContactLimit  = 1
	ContactWindow = 5 * time.Minute

	// VisitWindow — маркер де-дупликации счётчика посещений
	VisitWindow = 24 * time.Hour
)

// LoginKey строит ключ счётчика попыток входа.
func LoginKey(ip string) string { return "rate:login:" + ip }

// ContactKey строит ключ счётчика контактной формы.
func ContactKey(ip string) string { return "rate:contact:" + ip }

// VisitKey строит ключ маркера де-дупликации посещений.
func VisitKey(hash string) string { return "rate:visit:" + hash }

// Limiter — fixed-window rate limiter поверх KV.
type Limiter struct {
	kv     kv.Store
	logger *slog.Logger
}

// New создаёт rate limiter.
func New(kvStore kv.Store, logger *slog.Logger) *Limiter {
	return &Limiter{
		kv:     kvStore,
		logger: logger.With(slog.String("component", "rate_limiter")),
	}
}

// Check возвращает текущее значение счётчика. Отсутствующий ключ — 0
// (окно не открыто или истекло).
func (l *Limiter) Check(ctx context.Context, key string) (int, error) {
	raw, ok, err := l.kv.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("чтение счётчика %s: %w", key, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("повреждённый счётчик %s: %q", key, raw)
	}
	return n, nil
}

// Increment атомарно увеличивает счётчик. Первый инкремент открывает
// окно: TTL устанавливается только когда счётчик создан.
func (l *Limiter) Increment(ctx context.Context, key string, ttl time.Duration) error {
	n, err := l.kv.Incr(ctx, key)
	if err != nil {
		return fmt.Errorf("инкремент счётчика %s: %w", key, err)
	}
	if n == 1 {
		if err := l.kv.Expire(ctx, key, ttl); err != nil {
			return fmt.Errorf("открытие окна %s: %w", key, err)
		}
	}
	return nil
}

// Clear сбрасывает счётчик (например, после успешного входа).
func (l *Limiter) Clear(ctx context.Context, key string) error {
	if err := l.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("сброс счётчика %s: %w", key, err)
	}
	return nil
}

// MarkOnce устанавливает маркер де-дупликации.
// Возвращает true, если маркер новый (событие ещё не учитывалось
// в текущем окне).
func (l *Limiter) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.kv.SetNX(ctx, key, "1", ttl)
	if err != nil {
		return false, fmt.Errorf("маркер %s: %w", key, err)
	}
	return ok, nil
}
