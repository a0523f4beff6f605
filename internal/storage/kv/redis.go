// redis.go — реализация Store поверх Redis (go-redis v9).
package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore — KV-хранилище поверх Redis.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore создаёт хранилище и проверяет соединение через PING.
func NewRedisStore(ctx context.Context, addr, password string, db int, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("соединение с Redis %s: %w", addr, err)
	}

	return &RedisStore{
		client: client,
		logger: logger.With(slog.String("component", "kv_redis")),
	}, nil
}

// NewRedisStoreFromClient оборачивает готовый клиент.
// Используется в интеграционных тестах.
func NewRedisStoreFromClient(client *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.With(slog.String("component", "kv_redis")),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("GET %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("SET %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("DEL %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("EXISTS %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("INCR %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("EXPIRE %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("SETNX %s: %w", key, err)
	}
	return ok, nil
}

// Close закрывает соединение с Redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping проверяет доступность Redis (для readiness probe).
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Проверка соответствия интерфейсу на этапе компиляции
var _ Store = (*RedisStore)(nil)
