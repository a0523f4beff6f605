// Точка входа assoweb — backend сайта ассоциации.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/arturkryukov/assoweb/internal/api/handlers"
	"github.com/arturkryukov/assoweb/internal/api/middleware"
	"github.com/arturkryukov/assoweb/internal/auth"
	"github.com/arturkryukov/assoweb/internal/concours"
	"github.com/arturkryukov/assoweb/internal/config"
	"github.com/arturkryukov/assoweb/internal/mailer"
	"github.com/arturkryukov/assoweb/internal/ratelimit"
	"github.com/arturkryukov/assoweb/internal/server"
	"github.com/arturkryukov/assoweb/internal/service"
	"github.com/arturkryukov/assoweb/internal/storage/kv"
	"github.com/arturkryukov/assoweb/internal/storage/object"
	"github.com/arturkryukov/assoweb/internal/visits"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("assoweb запускается",
		slog.String("instance_id", cfg.InstanceID),
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.Bool("contact_enabled", cfg.ContactEnabled()),
	)

	ctx := context.Background()

	// --- Инициализация компонентов ---

	// 1. KV-хранилище (Redis)
	kvStore, err := kv.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		logger.Error("Ошибка подключения к Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Redis подключён", slog.String("addr", cfg.RedisAddr))

	// 2. Объектное хранилище (R2 через S3 API)
	objects, err := object.NewS3Store(ctx, object.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
	}, logger)
	if err != nil {
		logger.Error("Ошибка инициализации объектного хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Объектное хранилище настроено",
		slog.String("endpoint", cfg.S3Endpoint),
		slog.String("bucket", cfg.S3Bucket),
	)

	// 3. JWT: приватный ключ и менеджер токенов
	privateKeyPEM, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		logger.Error("Ошибка чтения приватного ключа JWT",
			slog.String("path", cfg.JWTPrivateKeyPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	tokens, err := auth.NewTokenManager(privateKeyPEM, kvStore, logger)
	if err != nil {
		logger.Error("Ошибка инициализации менеджера токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Rate limiter и сервис аутентификации
	limiter := ratelimit.New(kvStore, logger)
	authSvc := auth.NewService(cfg.AdminUsername, cfg.AdminPasswordHash, tokens, limiter, logger)

	// 5. Коллекции конкурсов
	concoursStore := concours.NewStore(kvStore, objects, logger)

	// 6. Счётчик посещений
	visitCounter := visits.New(kvStore, limiter, logger)

	// 7. Кэш метаданных медиа (только неизменяемые congres/ ключи)
	mediaCache := service.NewMediaCache(cfg.CacheSize, cfg.CacheTTL)

	// 8. Поиск осиротевших объектов
	orphanScanner := service.NewOrphanScanner(concoursStore, objects, logger)

	// 9. topologymetrics — мониторинг зависимости (объектное хранилище)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		cfg.InstanceID,
		cfg.DephealthGroup,
		cfg.DephealthDepName,
		cfg.S3Endpoint,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("endpoint", cfg.S3Endpoint),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 10. Контактная форма (опциональна: без SMTP-настроек отключена)
	var contactHandler *handlers.ContactHandler
	if cfg.ContactEnabled() {
		m := mailer.New(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.ContactFrom,
			To:       cfg.ContactTo,
		}, logger)
		contactHandler = handlers.NewContactHandler(m, limiter, logger)
		logger.Info("Контактная форма включена", slog.String("smtp_host", cfg.SMTPHost))
	} else {
		logger.Info("Контактная форма отключена: SMTP не настроен")
	}

	// 11. Handlers
	h := handlers.New(
		handlers.NewAuthHandler(authSvc, tokens.JWKS()),
		handlers.NewAdminHandler(objects, orphanScanner, cfg.MaxUploadSize, logger),
		handlers.NewConcoursHandler(concoursStore, objects, cfg.MaxUploadSize, logger),
		handlers.NewMediaHandler(objects, mediaCache, logger),
		handlers.NewPublicHandler(objects, visitCounter, logger),
		contactHandler,
		handlers.NewHealthHandler(kvStore, objects),
	)

	// 12. Bearer-аутентификация админских endpoints
	bearerAuth := middleware.NewBearerAuth(authSvc, logger)

	// 13. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, h, bearerAuth)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	if err := kvStore.Close(); err != nil {
		logger.Warn("Ошибка закрытия соединения с Redis", slog.String("error", err.Error()))
	}

	logger.Info("assoweb остановлен")
}
