// auth.go — middleware аутентификации администратора.
// Извлекает Bearer token из Authorization и проверяет его двухфазно:
// подпись и срок действия JWT, затем существование сессии в KV.
// Публичные endpoints (health, metrics, media) — без аутентификации.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/arturkryukov/assoweb/internal/api/errors"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeySubject — ключ для sub из JWT в контексте запроса.
	ContextKeySubject contextKey = "jwt_subject"
	// ContextKeySessionID — ключ для jti сессии в контексте запроса.
	ContextKeySessionID contextKey = "jwt_session_id"
)

// TokenVerifier проверяет токен и возвращает subject и идентификатор сессии.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (subject string, jti string, err error)
}

// BearerAuth — middleware аутентификации по Bearer token.
type BearerAuth struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewBearerAuth создаёт middleware аутентификации.
func NewBearerAuth(verifier TokenVerifier, logger *slog.Logger) *BearerAuth {
	return &BearerAuth{
		verifier: verifier,
		logger:   logger.With(slog.String("component", "bearer_auth")),
	}
}

// Middleware возвращает HTTP middleware аутентификации.
// Любая причина отказа наружу выглядит одинаково: 401 с общим текстом.
// Детали причины остаются в логе уровня Debug.
func (b *BearerAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearer(r)
			if !ok {
				apierrors.Unauthorized(w, "Требуется аутентификация")
				return
			}

			subject, jti, err := b.verifier.Verify(r.Context(), token)
			if err != nil {
				b.logger.Debug("Токен не прошёл проверку",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, subject)
			ctx = context.WithValue(ctx, ContextKeySessionID, jti)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer извлекает токен из заголовка Authorization.
func extractBearer(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// SubjectFromContext извлекает sub из контекста запроса.
// Возвращает пустую строку, если sub не найден.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(ContextKeySubject).(string)
	return subject
}

// SessionIDFromContext извлекает jti сессии из контекста запроса.
// Возвращает пустую строку, если jti не найден.
func SessionIDFromContext(ctx context.Context) string {
	jti, _ := ctx.Value(ContextKeySessionID).(string)
	return jti
}
