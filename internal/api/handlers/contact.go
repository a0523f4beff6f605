// contact.go — обработчик контактной формы.
// Валидация, per-IP rate limit, отправка письма на адрес ассоциации.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	apierrors "github.com/arturkryukov/assoweb/internal/api/errors"
	"github.com/arturkryukov/assoweb/internal/api/middleware"
	"github.com/arturkryukov/assoweb/internal/mailer"
	"github.com/arturkryukov/assoweb/internal/ratelimit"
)

// maxMessageLen — предел длины сообщения контактной формы.
const maxMessageLen = 5000

// ContactHandler — обработчик POST /api/contact.
type ContactHandler struct {
	mail    *mailer.Mailer
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewContactHandler создаёт обработчик контактной формы.
func NewContactHandler(m *mailer.Mailer, limiter *ratelimit.Limiter, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		mail:    m,
		limiter: limiter,
		logger:  logger.With(slog.String("component", "contact_handler")),
	}
}

// contactRequest — тело POST /api/contact.
type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Send обрабатывает POST /api/contact.
// Окно rate limit открывается до отправки: повторная отправка раньше
// чем через 5 минут с того же IP отклоняется независимо от исхода SMTP.
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Email == "" || req.Message == "" {
		apierrors.ValidationError(w, "Поля name, email и message обязательны")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		apierrors.ValidationError(w, "Некорректный адрес email")
		return
	}
	if len(req.Message) > maxMessageLen {
		apierrors.ValidationError(w, fmt.Sprintf("Сообщение длиннее %d символов", maxMessageLen))
		return
	}

	ip := clientIP(r)
	rateKey := ratelimit.ContactKey(ip)
	count, err := h.limiter.Check(r.Context(), rateKey)
	if err != nil {
		h.logger.Error("Ошибка проверки rate limit", slog.Any("error", err))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}
	if count >= ratelimit.ContactLimit {
		middleware.RateLimitedTotal.WithLabelValues("contact").Inc()
		apierrors.RateLimited(w, "Сообщение уже отправлено, повторите через 5 минут")
		return
	}
	if err := h.limiter.Increment(r.Context(), rateKey, ratelimit.ContactWindow); err != nil {
		h.logger.Error("Ошибка инкремента rate limit", slog.Any("error", err))
	}

	subject := req.Subject
	if subject == "" {
		subject = "Message du site"
	}

	msg := mailer.Message{
		ReplyTo: req.Email,
		Subject: fmt.Sprintf("[Contact] %s — %s", req.Name, subject),
		Body:    fmt.Sprintf("De: %s <%s>\n\n%s", req.Name, req.Email, req.Message),
	}
	if err := h.mail.Send(r.Context(), msg); err != nil {
		// Причина остаётся в логе, клиенту — общий ответ
		h.logger.Error("Ошибка отправки письма", slog.Any("error", err))
		apierrors.InternalError(w, "Не удалось отправить сообщение")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
