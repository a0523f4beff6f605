// metrics.go — Prometheus HTTP метрики сайта ассоциации.
// Регистрирует метрики: aw_http_requests_total, aw_http_request_duration_seconds.
// Бизнес-метрики (aw_uploads_total, aw_logins_total и др.) экспортируются
// отсюда и обновляются из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aw_http_requests_total",
			Help: "Общее количество HTTP-запросов",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aw_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// UploadsTotal — количество загрузок файлов по виду и результату.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aw_uploads_total",
			Help: "Количество загрузок файлов",
		},
		[]string{"kind", "result"},
	)

	// LoginsTotal — количество попыток входа по результату.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aw_logins_total",
			Help: "Количество попыток входа администратора",
		},
		[]string{"result"},
	)

	// RateLimitedTotal — количество запросов, отклонённых rate limiter-ом.
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aw_rate_limited_total",
			Help: "Количество запросов, отклонённых rate limiter-ом",
		},
		[]string{"scope"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (медиа-ключи схлопываются в плейсхолдер)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath схлопывает переменные сегменты пути в плейсхолдер для
// предотвращения взрывного роста кардинальности метрик.
// Неограниченная кардинальность только у медиа-ключей:
// /api/media/congres/2024/photo.jpg → /api/media/{key}
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/api/media/") {
		return "/api/media/{key}"
	}
	return path
}
