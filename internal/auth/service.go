// service.go — сценарий входа: проверка учётных данных с rate limiting.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/arturkryukov/assoweb/internal/ratelimit"
)

// Ошибки входа. Текст ErrInvalidCredentials намеренно не различает,
// что именно неверно — имя или пароль.
var (
	ErrInvalidCredentials = errors.New("неверные учётные данные")
	ErrRateLimited        = errors.New("слишком много попыток входа, повторите позже")
)

// Service — проверка учётных данных единственного администратора.
// Одна известная учётная запись — осознанное решение: конфигурационная
// константа плюс хранимый хэш вместо таблицы пользователей.
type Service struct {
	username     string
	passwordHash string
	tokens       *TokenManager
	limiter      *ratelimit.Limiter
	logger       *slog.Logger
}

// NewService создаёт сервис аутентификации.
func NewService(username, passwordHash string, tokens *TokenManager, limiter *ratelimit.Limiter, logger *slog.Logger) *Service {
	return &Service{
		username:     username,
		passwordHash: passwordHash,
		tokens:       tokens,
		limiter:      limiter,
		logger:       logger.With(slog.String("component", "auth_service")),
	}
}

// Login проверяет учётные данные и выпускает токен.
//
// Rate limiting по IP: порог ratelimit.LoginLimit в окне
// ratelimit.LoginWindow. Для loopback-адресов проверка пропускается —
// локальная разработка; ни на какой другой адрес исключение не
// распространяется. Успешный вход сбрасывает счётчик.
func (s *Service) Login(ctx context.Context, username, password, clientIP string) (string, error) {
	limited := !isLoopback(clientIP)
	rateKey := ratelimit.LoginKey(clientIP)

	if limited {
		count, err := s.limiter.Check(ctx, rateKey)
		if err != nil {
			return "", fmt.Errorf("проверка rate limit: %w", err)
		}
		if count >= ratelimit.LoginLimit {
			s.logger.Warn("Вход заблокирован rate limiter-ом", slog.String("ip", clientIP))
			return "", ErrRateLimited
		}
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK, err := VerifyPassword(password, s.passwordHash)
	if err != nil {
		return "", fmt.Errorf("проверка пароля: %w", err)
	}

	if !userOK || !passOK {
		if limited {
			if err := s.limiter.Increment(ctx, rateKey, ratelimit.LoginWindow); err != nil {
				s.logger.Error("Ошибка инкремента rate limit", slog.Any("error", err))
			}
		}
		s.logger.Warn("Неудачная попытка входа", slog.String("ip", clientIP))
		return "", ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(ctx, s.username)
	if err != nil {
		return "", err
	}

	if limited {
		if err := s.limiter.Clear(ctx, rateKey); err != nil {
			s.logger.Error("Ошибка сброса rate limit", slog.Any("error", err))
		}
	}

	s.logger.Info("Вход выполнен", slog.String("ip", clientIP))
	return token, nil
}

// Verify делегирует проверку токена менеджеру токенов.
func (s *Service) Verify(ctx context.Context, token string) (string, string, error) {
	return s.tokens.Verify(ctx, token)
}

// Logout отзывает сессию. Всегда успешен, даже если сессия уже отсутствует.
func (s *Service) Logout(ctx context.Context, jti string) error {
	return s.tokens.Revoke(ctx, jti)
}

// isLoopback сообщает, является ли адрес loopback (127.0.0.0/8, ::1).
func isLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
