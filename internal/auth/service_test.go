package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/arturkryukov/assoweb/internal/ratelimit"
	"github.com/arturkryukov/assoweb/internal/storage/kv"
)

const (
	testUsername = "admin"
	testPassword = "correct horse battery staple"
)

func newTestService(t *testing.T) (*Service, *kv.MemoryStore) {
	t.Helper()

	store := kv.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := NewTokenManager(testPrivateKeyPEM(t), store, logger)
	if err != nil {
		t.Fatalf("создание TokenManager: %v", err)
	}
	hash, err := HashPassword(testPassword)
	if err != nil {
		t.Fatalf("хэширование пароля: %v", err)
	}
	limiter := ratelimit.New(store, logger)

	return NewService(testUsername, hash, tokens, limiter, logger), store
}

// TestLogin_Success проверяет успешный вход и проверяемость выданного токена.
func TestLogin_Success(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, testUsername, testPassword, "203.0.113.10")
	if err != nil {
		t.Fatalf("ошибка входа: %v", err)
	}

	subject, _, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("выданный токен не прошёл проверку: %v", err)
	}
	if subject != testUsername {
		t.Errorf("subject: ожидалось %q, получено %q", testUsername, subject)
	}
}

// TestLogin_WrongCredentials проверяет, что ошибка не различает
// неверное имя и неверный пароль.
func TestLogin_WrongCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, errUser := svc.Login(ctx, "intruder", testPassword, "203.0.113.10")
	_, errPass := svc.Login(ctx, testUsername, "wrong", "203.0.113.10")

	if !errors.Is(errUser, ErrInvalidCredentials) {
		t.Errorf("неверное имя: ожидалось ErrInvalidCredentials, получено %v", errUser)
	}
	if !errors.Is(errPass, ErrInvalidCredentials) {
		t.Errorf("неверный пароль: ожидалось ErrInvalidCredentials, получено %v", errPass)
	}
	if errUser.Error() != errPass.Error() {
		t.Error("тексты ошибок для имени и пароля должны совпадать")
	}
}

// TestLogin_RateLimit проверяет блокировку шестой попытки после пяти неудач.
func TestLogin_RateLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	const ip = "203.0.113.10"

	for i := 0; i < ratelimit.LoginLimit; i++ {
		if _, err := svc.Login(ctx, testUsername, "wrong", ip); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("попытка %d: ожидалось ErrInvalidCredentials, получено %v", i+1, err)
		}
	}

	// Шестая попытка блокируется ещё до проверки пароля,
	// даже с верными данными.
	if _, err := svc.Login(ctx, testUsername, testPassword, ip); !errors.Is(err, ErrRateLimited) {
		t.Errorf("ожидалось ErrRateLimited, получено %v", err)
	}
}

// TestLogin_RateLimitPerIP проверяет независимость счётчиков разных адресов.
func TestLogin_RateLimitPerIP(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < ratelimit.LoginLimit; i++ {
		svc.Login(ctx, testUsername, "wrong", "203.0.113.10")
	}

	if _, err := svc.Login(ctx, testUsername, testPassword, "198.51.100.7"); err != nil {
		t.Errorf("другой адрес не должен быть заблокирован: %v", err)
	}
}

// TestLogin_SuccessResetsCounter проверяет сброс счётчика после
// успешного входа.
func TestLogin_SuccessResetsCounter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	const ip = "203.0.113.10"

	for i := 0; i < ratelimit.LoginLimit-1; i++ {
		svc.Login(ctx, testUsername, "wrong", ip)
	}
	if _, err := svc.Login(ctx, testUsername, testPassword, ip); err != nil {
		t.Fatalf("вход до порога должен быть успешным: %v", err)
	}

	// Счётчик сброшен — новая серия неудач снова начинается с нуля.
	for i := 0; i < ratelimit.LoginLimit-1; i++ {
		svc.Login(ctx, testUsername, "wrong", ip)
	}
	if _, err := svc.Login(ctx, testUsername, testPassword, ip); err != nil {
		t.Errorf("после сброса счётчика вход должен быть успешным: %v", err)
	}
}

// TestLogin_LoopbackSkipsLimit проверяет исключение для loopback-адресов.
func TestLogin_LoopbackSkipsLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, ip := range []string{"127.0.0.1", "::1"} {
		for i := 0; i < ratelimit.LoginLimit*2; i++ {
			svc.Login(ctx, testUsername, "wrong", ip)
		}
		if _, err := svc.Login(ctx, testUsername, testPassword, ip); err != nil {
			t.Errorf("loopback %s не должен блокироваться: %v", ip, err)
		}
	}
}

// TestLogout проверяет отзыв сессии через сервис.
func TestLogout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, testUsername, testPassword, "127.0.0.1")
	if err != nil {
		t.Fatalf("ошибка входа: %v", err)
	}
	_, jti, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("ошибка проверки: %v", err)
	}

	if err := svc.Logout(ctx, jti); err != nil {
		t.Fatalf("ошибка выхода: %v", err)
	}
	if _, _, err := svc.Verify(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("после выхода токен должен быть недействителен, получено %v", err)
	}
}
