// Пакет server — HTTP-сервер сайта ассоциации с TLS и graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arturkryukov/assoweb/internal/api/errors"
	"github.com/arturkryukov/assoweb/internal/api/handlers"
	"github.com/arturkryukov/assoweb/internal/api/middleware"
	"github.com/arturkryukov/assoweb/internal/config"
)

// Server — HTTP-сервер сайта ассоциации.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// auth защищает все /api/admin/* endpoints и logout/verify.
func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handler, auth *middleware.BearerAuth) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	// Служебные endpoints
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Публичные endpoints
	router.Post("/api/auth/login", h.Auth.Login)
	router.Get("/api/auth/jwks", h.Auth.JWKS)
	router.Get("/api/concours", h.Concours.List)
	router.Get("/api/documents", h.Public.Documents)
	router.Get("/api/photos", h.Public.Photos)
	router.Get("/api/visits", h.Public.GetVisits)
	router.Post("/api/visits", h.Public.RecordVisit)
	router.Get("/api/media/*", h.Media.Get)
	router.Head("/api/media/*", h.Media.Head)

	// Контактная форма может быть отключена конфигурацией
	if h.Contact != nil {
		router.Post("/api/contact", h.Contact.Send)
	} else {
		router.Post("/api/contact", func(w http.ResponseWriter, _ *http.Request) {
			errors.NotFound(w, "Контактная форма не настроена")
		})
	}

	// Защищённые endpoints
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware())

		r.Post("/api/auth/logout", h.Auth.Logout)
		r.Get("/api/auth/verify", h.Auth.Verify)
		r.Post("/api/admin/upload", h.Admin.Upload)
		r.Post("/api/admin/concours/upload", h.Concours.Upload)
		r.Post("/api/admin/concours/delete", h.Concours.Delete)
		r.Post("/api/admin/concours/reorder", h.Concours.Reorder)
		r.Get("/api/admin/concours/orphans", h.Admin.Orphans)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Настройка TLS
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// cfg.ShutdownTimeout.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("tls", s.cfg.TLSCert != ""),
		)

		var err error
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
