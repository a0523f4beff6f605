package config

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"
)

// setEnvVars устанавливает переменные окружения для теста и возвращает
// функцию очистки. Всегда вызывать defer cleanup().
func setEnvVars(t *testing.T, vars map[string]string) func() {
	t.Helper()

	// Сохраняем оригинальные значения
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for k := range vars {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
	}

	// Устанавливаем новые
	for k, v := range vars {
		os.Setenv(k, v)
	}

	return func() {
		for k := range vars {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// clearAllAWEnvVars очищает все переменные окружения AW_* для чистого теста.
func clearAllAWEnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"AW_PORT", "AW_INSTANCE_ID",
		"AW_REDIS_ADDR", "AW_REDIS_PASSWORD", "AW_REDIS_DB",
		"AW_S3_ENDPOINT", "AW_S3_REGION", "AW_S3_ACCESS_KEY", "AW_S3_SECRET_KEY", "AW_S3_BUCKET",
		"AW_ADMIN_USERNAME", "AW_ADMIN_PASSWORD_HASH", "AW_JWT_PRIVATE_KEY",
		"AW_MAX_UPLOAD_SIZE", "AW_CACHE_SIZE", "AW_CACHE_TTL",
		"AW_SMTP_HOST", "AW_SMTP_PORT", "AW_SMTP_USERNAME", "AW_SMTP_PASSWORD",
		"AW_CONTACT_FROM", "AW_CONTACT_TO",
		"AW_TLS_CERT", "AW_TLS_KEY",
		"AW_LOG_LEVEL", "AW_LOG_FORMAT",
		"AW_DEPHEALTH_CHECK_INTERVAL", "AW_DEPHEALTH_GROUP", "AW_DEPHEALTH_DEP_NAME",
		"AW_SHUTDOWN_TIMEOUT",
	}
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"AW_REDIS_ADDR":          "localhost:6379",
		"AW_S3_ENDPOINT":         "https://example.r2.cloudflarestorage.com",
		"AW_S3_ACCESS_KEY":       "test-access-key",
		"AW_S3_SECRET_KEY":       "test-secret-key",
		"AW_S3_BUCKET":           "assoweb-test",
		"AW_ADMIN_USERNAME":      "admin",
		"AW_ADMIN_PASSWORD_HASH": "c2FsdA==:aGFzaA==",
		"AW_JWT_PRIVATE_KEY":     "/tmp/jwt.pem",
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	cleanup := clearAllAWEnvVars(t)
	defer cleanup()

	cleanupVars := setEnvVars(t, requiredEnvVars())
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port: ожидалось 8080, получено %d", cfg.Port)
	}
	if cfg.InstanceID != "assoweb-01" {
		t.Errorf("InstanceID: ожидалось assoweb-01, получено %q", cfg.InstanceID)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB: ожидалось 0, получено %d", cfg.RedisDB)
	}
	if cfg.S3Region != "auto" {
		t.Errorf("S3Region: ожидалось auto, получено %q", cfg.S3Region)
	}
	if cfg.MaxUploadSize != 10*1024*1024 {
		t.Errorf("MaxUploadSize: ожидалось 10 MB, получено %d", cfg.MaxUploadSize)
	}
	if cfg.CacheSize != 1000 {
		t.Errorf("CacheSize: ожидалось 1000, получено %d", cfg.CacheSize)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL: ожидалось 1h, получено %v", cfg.CacheTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось info, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось json, получено %q", cfg.LogFormat)
	}
	if cfg.DephealthCheckInterval != 15*time.Second {
		t.Errorf("DephealthCheckInterval: ожидалось 15s, получено %v", cfg.DephealthCheckInterval)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 5s, получено %v", cfg.ShutdownTimeout)
	}
	if cfg.ContactEnabled() {
		t.Error("ContactEnabled: без AW_SMTP_HOST форма должна быть отключена")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	cleanup := clearAllAWEnvVars(t)
	defer cleanup()

	required := requiredEnvVars()
	for missing := range required {
		t.Run(missing, func(t *testing.T) {
			vars := make(map[string]string)
			for k, v := range required {
				if k != missing {
					vars[k] = v
				}
			}
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка при отсутствии %s", missing)
			}
		})
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	cleanup := clearAllAWEnvVars(t)
	defer cleanup()

	tests := []struct {
		name string
		port string
	}{
		{"не число", "abc"},
		{"ноль", "0"},
		{"вне диапазона", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := requiredEnvVars()
			vars["AW_PORT"] = tt.port
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка для AW_PORT=%q", tt.port)
			}
		})
	}
}

func TestLoad_BadPasswordHashFormat(t *testing.T) {
	cleanup := clearAllAWEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["AW_ADMIN_PASSWORD_HASH"] = "без-двоеточия"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка для хэша без двоеточия")
	}
}

func TestLoad_SMTPRequiresAllFields(t *testing.T) {
	cleanup := clearAllAWEnvVars(t)
	defer cleanup()

	// Host задан, но остальные SMTP-поля отсутствуют
	vars := requiredEnvVars()
	vars["AW_SMTP_HOST"] = "smtp.example.com"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка: AW_SMTP_HOST без AW_SMTP_USERNAME и прочих")
	}
}

func TestLoad_SMTPComplete(t *testing.T) {
	cleanup := clearAllAWEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["AW_SMTP_HOST"] = "smtp.example.com"
	vars["AW_SMTP_USERNAME"] = "mailer"
	vars["AW_SMTP_PASSWORD"] = "secret"
	vars["AW_CONTACT_FROM"] = "site@example.org"
	vars["AW_CONTACT_TO"] = "bureau@example.org"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !cfg.ContactEnabled() {
		t.Error("ContactEnabled: ожидалось true")
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort: ожидалось 587 по умолчанию, получено %d", cfg.SMTPPort)
	}
}

func TestLoad_TLSPairValidation(t *testing.T) {
	cleanup := clearAllAWEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["AW_TLS_CERT"] = "/tmp/tls.crt"
	// AW_TLS_KEY намеренно не задан
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка: сертификат без ключа")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	cleanup := clearAllAWEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["AW_LOG_LEVEL"] = "trace"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка для недопустимого уровня логирования")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	cleanup := clearAllAWEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["AW_LOG_FORMAT"] = "xml"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка для недопустимого формата логов")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	cleanup := clearAllAWEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["AW_PORT"] = "9090"
	vars["AW_INSTANCE_ID"] = "assoweb-test"
	vars["AW_MAX_UPLOAD_SIZE"] = "5242880"
	vars["AW_CACHE_TTL"] = "30m"
	vars["AW_LOG_LEVEL"] = "debug"
	vars["AW_LOG_FORMAT"] = "text"
	vars["AW_SHUTDOWN_TIMEOUT"] = "10s"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port: ожидалось 9090, получено %d", cfg.Port)
	}
	if cfg.InstanceID != "assoweb-test" {
		t.Errorf("InstanceID: ожидалось assoweb-test, получено %q", cfg.InstanceID)
	}
	if cfg.MaxUploadSize != 5242880 {
		t.Errorf("MaxUploadSize: ожидалось 5242880, получено %d", cfg.MaxUploadSize)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL: ожидалось 30m, получено %v", cfg.CacheTTL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: ожидалось debug, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: ожидалось text, получено %q", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 10s, получено %v", cfg.ShutdownTimeout)
	}
}

func TestSetupLogger(t *testing.T) {
	cfg := &Config{
		LogLevel:  slog.LevelDebug,
		LogFormat: "text",
	}

	logger := SetupLogger(cfg)
	if logger == nil {
		t.Fatal("SetupLogger вернул nil")
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("уровень debug должен быть включён")
	}
}
