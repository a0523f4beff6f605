package kv

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestRedis запускает Redis в Docker-контейнере через testcontainers.
// Возвращает готовое хранилище; контейнер останавливается в t.Cleanup.
func setupTestRedis(t *testing.T) *RedisStore {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := tcredis.Run(ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить Redis контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить адрес контейнера: %v", err)
	}

	opts, err := goredis.ParseURL(uri)
	if err != nil {
		t.Fatalf("Некорректный URI Redis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewRedisStoreFromClient(goredis.NewClient(opts), logger)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// TestRedisStore_RoundTrip проверяет базовые операции против реального Redis.
func TestRedisStore_RoundTrip(t *testing.T) {
	s := setupTestRedis(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	val, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if !ok || val != "v" {
		t.Errorf("ожидалось (v, true), получено (%q, %v)", val, ok)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("удалённый ключ не должен находиться")
	}
}

// TestRedisStore_IncrAndWindow проверяет счётчик с окном:
// INCR + EXPIRE на первом инкременте.
func TestRedisStore_IncrAndWindow(t *testing.T) {
	s := setupTestRedis(t)
	ctx := context.Background()

	n, err := s.Incr(ctx, "rate:test")
	if err != nil {
		t.Fatalf("ошибка инкремента: %v", err)
	}
	if n != 1 {
		t.Fatalf("первый инкремент: ожидалось 1, получено %d", n)
	}
	if err := s.Expire(ctx, "rate:test", time.Minute); err != nil {
		t.Fatalf("ошибка установки TTL: %v", err)
	}

	n, _ = s.Incr(ctx, "rate:test")
	if n != 2 {
		t.Errorf("второй инкремент: ожидалось 2, получено %d", n)
	}
}

// TestRedisStore_SetNX проверяет маркер де-дупликации.
func TestRedisStore_SetNX(t *testing.T) {
	s := setupTestRedis(t)
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "visit:hash", "1", time.Minute)
	if err != nil {
		t.Fatalf("ошибка SETNX: %v", err)
	}
	if !ok {
		t.Fatal("первый SETNX должен записать ключ")
	}

	ok, _ = s.SetNX(ctx, "visit:hash", "1", time.Minute)
	if ok {
		t.Error("повторный SETNX не должен записать ключ")
	}
}
