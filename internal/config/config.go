// Пакет config — загрузка и валидация конфигурации сайта ассоциации
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Уникальный идентификатор экземпляра (например, "assoweb-01")
	InstanceID string

	// Адрес Redis (host:port)
	RedisAddr string
	// Пароль Redis (опционально)
	RedisPassword string
	// Номер базы Redis
	RedisDB int

	// URL S3-совместимого endpoint объектного хранилища
	S3Endpoint string
	// Регион S3 (для R2 — "auto")
	S3Region string
	// Ключ доступа S3
	S3AccessKey string
	// Секретный ключ S3
	S3SecretKey string
	// Имя bucket
	S3Bucket string

	// Имя учётной записи администратора
	AdminUsername string
	// PBKDF2-хэш пароля администратора в формате base64(salt):base64(hash)
	AdminPasswordHash string
	// Путь к приватному RSA-ключу подписи токенов (PEM)
	JWTPrivateKeyPath string

	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64

	// Размер LRU-кэша метаданных медиа
	CacheSize int
	// TTL записи кэша метаданных
	CacheTTL time.Duration

	// SMTP-сервер контактной формы (пустой — форма отключена)
	SMTPHost string
	// Порт SMTP-сервера
	SMTPPort int
	// Имя пользователя SMTP
	SMTPUsername string
	// Пароль SMTP
	SMTPPassword string
	// Адрес отправителя писем
	ContactFrom string
	// Адрес получателя писем контактной формы
	ContactTo string

	// Путь к TLS сертификату (опционально)
	TLSCert string
	// Путь к TLS приватному ключу (опционально)
	TLSKey string

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics (AW_DEPHEALTH_GROUP)
	DephealthGroup string
	// Имя зависимости (целевого сервиса) в метриках topologymetrics (AW_DEPHEALTH_DEP_NAME)
	DephealthDepName string

	// Таймаут graceful shutdown HTTP-сервера.
	// Должен быть меньше K8s terminationGracePeriodSeconds (по умолчанию 30s).
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// AW_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("AW_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("AW_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("AW_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// AW_INSTANCE_ID — идентификатор экземпляра (по умолчанию "assoweb-01")
	cfg.InstanceID = getEnvDefault("AW_INSTANCE_ID", "assoweb-01")

	// AW_REDIS_ADDR — обязательный
	cfg.RedisAddr, err = getEnvRequired("AW_REDIS_ADDR")
	if err != nil {
		return nil, err
	}

	// AW_REDIS_PASSWORD — опционально
	cfg.RedisPassword = getEnvDefault("AW_REDIS_PASSWORD", "")

	// AW_REDIS_DB — номер базы (по умолчанию 0)
	cfg.RedisDB, err = getEnvInt("AW_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("AW_REDIS_DB: %w", err)
	}

	// AW_S3_ENDPOINT — обязательный
	cfg.S3Endpoint, err = getEnvRequired("AW_S3_ENDPOINT")
	if err != nil {
		return nil, err
	}

	// AW_S3_REGION — регион (для R2 — "auto")
	cfg.S3Region = getEnvDefault("AW_S3_REGION", "auto")

	// AW_S3_ACCESS_KEY — обязательный
	cfg.S3AccessKey, err = getEnvRequired("AW_S3_ACCESS_KEY")
	if err != nil {
		return nil, err
	}

	// AW_S3_SECRET_KEY — обязательный
	cfg.S3SecretKey, err = getEnvRequired("AW_S3_SECRET_KEY")
	if err != nil {
		return nil, err
	}

	// AW_S3_BUCKET — обязательный
	cfg.S3Bucket, err = getEnvRequired("AW_S3_BUCKET")
	if err != nil {
		return nil, err
	}

	// AW_ADMIN_USERNAME — обязательный
	cfg.AdminUsername, err = getEnvRequired("AW_ADMIN_USERNAME")
	if err != nil {
		return nil, err
	}

	// AW_ADMIN_PASSWORD_HASH — обязательный, формат base64(salt):base64(hash)
	cfg.AdminPasswordHash, err = getEnvRequired("AW_ADMIN_PASSWORD_HASH")
	if err != nil {
		return nil, err
	}
	if !strings.Contains(cfg.AdminPasswordHash, ":") {
		return nil, fmt.Errorf("AW_ADMIN_PASSWORD_HASH: ожидается формат base64(salt):base64(hash)")
	}

	// AW_JWT_PRIVATE_KEY — обязательный, путь к PEM-файлу
	cfg.JWTPrivateKeyPath, err = getEnvRequired("AW_JWT_PRIVATE_KEY")
	if err != nil {
		return nil, err
	}

	// AW_MAX_UPLOAD_SIZE — максимальный размер файла (по умолчанию 10 MB)
	maxUploadSize, err := getEnvInt64("AW_MAX_UPLOAD_SIZE", 10*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("AW_MAX_UPLOAD_SIZE: %w", err)
	}
	if maxUploadSize <= 0 {
		return nil, fmt.Errorf("AW_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}
	cfg.MaxUploadSize = maxUploadSize

	// AW_CACHE_SIZE — размер LRU-кэша метаданных (по умолчанию 1000)
	cfg.CacheSize, err = getEnvInt("AW_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("AW_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("AW_CACHE_SIZE: значение должно быть положительным")
	}

	// AW_CACHE_TTL — TTL записи кэша (по умолчанию 1h)
	cfg.CacheTTL, err = getEnvDuration("AW_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("AW_CACHE_TTL: %w", err)
	}

	// AW_SMTP_HOST — пустой отключает контактную форму
	cfg.SMTPHost = getEnvDefault("AW_SMTP_HOST", "")
	if cfg.SMTPHost != "" {
		cfg.SMTPPort, err = getEnvInt("AW_SMTP_PORT", 587)
		if err != nil {
			return nil, fmt.Errorf("AW_SMTP_PORT: %w", err)
		}
		cfg.SMTPUsername, err = getEnvRequired("AW_SMTP_USERNAME")
		if err != nil {
			return nil, err
		}
		cfg.SMTPPassword, err = getEnvRequired("AW_SMTP_PASSWORD")
		if err != nil {
			return nil, err
		}
		cfg.ContactFrom, err = getEnvRequired("AW_CONTACT_FROM")
		if err != nil {
			return nil, err
		}
		cfg.ContactTo, err = getEnvRequired("AW_CONTACT_TO")
		if err != nil {
			return nil, err
		}
	}

	// AW_TLS_CERT / AW_TLS_KEY — опциональны, но только парой
	cfg.TLSCert = getEnvDefault("AW_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("AW_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("AW_TLS_CERT и AW_TLS_KEY должны быть заданы вместе")
	}

	// AW_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("AW_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("AW_LOG_LEVEL: %w", err)
	}

	// AW_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("AW_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AW_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// AW_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("AW_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AW_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// AW_DEPHEALTH_GROUP — имя группы в метриках topologymetrics (по умолчанию "assoweb")
	cfg.DephealthGroup = getEnvDefault("AW_DEPHEALTH_GROUP", "assoweb")

	// AW_DEPHEALTH_DEP_NAME — имя зависимости в метриках topologymetrics (по умолчанию "object-store")
	cfg.DephealthDepName = getEnvDefault("AW_DEPHEALTH_DEP_NAME", "object-store")

	// AW_SHUTDOWN_TIMEOUT — таймаут graceful shutdown HTTP-сервера (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("AW_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AW_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// ContactEnabled сообщает, настроена ли отправка писем контактной формы.
func (c *Config) ContactEnabled() bool {
	return c.SMTPHost != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
