// Пакет mailer — отправка писем контактной формы через SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// Config — параметры SMTP-сервера и адреса писем.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Mailer отправляет письма контактной формы на адрес ассоциации.
type Mailer struct {
	cfg    Config
	logger *slog.Logger
}

// New создаёт mailer. Соединение с SMTP-сервером устанавливается
// при каждой отправке: письма редкие, держать пул смысла нет.
func New(cfg Config, logger *slog.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "mailer")),
	}
}

// Message — письмо контактной формы.
type Message struct {
	// ReplyTo — адрес отправителя формы, подставляется в Reply-To.
	// Поле From всегда наш собственный адрес: SPF/DKIM.
	ReplyTo string
	Subject string
	Body    string
}

// Send отправляет письмо. Блокируется до подтверждения SMTP-сервером.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	email := mail.NewMsg()
	if err := email.From(m.cfg.From); err != nil {
		return fmt.Errorf("адрес отправителя: %w", err)
	}
	if err := email.To(m.cfg.To); err != nil {
		return fmt.Errorf("адрес получателя: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := email.ReplyTo(msg.ReplyTo); err != nil {
			return fmt.Errorf("адрес для ответа: %w", err)
		}
	}
	email.Subject(msg.Subject)
	email.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("создание SMTP клиента: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("отправка письма: %w", err)
	}
	m.logger.Info("Письмо контактной формы отправлено",
		slog.String("subject", msg.Subject))
	return nil
}
