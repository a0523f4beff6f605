// auth.go — HTTP handlers аутентификации администратора.
// Login, Logout, Verify и публичный JWKS endpoint.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/arturkryukov/assoweb/internal/api/errors"
	"github.com/arturkryukov/assoweb/internal/api/middleware"
	"github.com/arturkryukov/assoweb/internal/auth"
)

// AuthHandler — обработчик endpoints аутентификации.
type AuthHandler struct {
	svc *auth.Service
	// jwks — сериализованный публичный набор ключей, отдаётся как есть
	jwks []byte
}

// NewAuthHandler создаёт обработчик endpoints аутентификации.
func NewAuthHandler(svc *auth.Service, jwks []byte) *AuthHandler {
	return &AuthHandler{svc: svc, jwks: jwks}
}

// loginRequest — тело POST /api/auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login обрабатывает POST /api/auth/login.
// Ответ при любой ошибке учётных данных одинаков: 401 без уточнений.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}
	if req.Username == "" || req.Password == "" {
		apierrors.ValidationError(w, "Поля username и password обязательны")
		return
	}

	token, err := h.svc.Login(r.Context(), req.Username, req.Password, clientIP(r))
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		middleware.LoginsTotal.WithLabelValues("rate_limited").Inc()
		middleware.RateLimitedTotal.WithLabelValues("login").Inc()
		apierrors.RateLimited(w, "Слишком много попыток входа, повторите через 15 минут")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		middleware.LoginsTotal.WithLabelValues("failure").Inc()
		apierrors.Unauthorized(w, "Неверные учётные данные")
		return
	case err != nil:
		middleware.LoginsTotal.WithLabelValues("error").Inc()
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	middleware.LoginsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

// Logout обрабатывает POST /api/auth/logout.
// Отзыв идемпотентен: повторный logout того же токена тоже успешен.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	jti := middleware.SessionIDFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), jti); err != nil {
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Verify обрабатывает GET /api/auth/verify.
// До этого места запрос доходит только через auth middleware,
// поэтому токен уже проверен.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":    true,
		"username": middleware.SubjectFromContext(r.Context()),
	})
}

// JWKS обрабатывает GET /api/auth/jwks.
// Публичный набор ключей для внешней проверки подписи токенов.
func (h *AuthHandler) JWKS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.jwks)
}
