// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/arturkryukov/assoweb/internal/config"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// Pinger — проверка доступности внешнего хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// kv — KV-хранилище (Redis) для проверки готовности
	kv Pinger
	// objects — объектное хранилище для проверки готовности
	objects Pinger
}

// NewHealthHandler создаёт обработчик health endpoints с проверками
// зависимостей для readiness.
func NewHealthHandler(kv, objects Pinger) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		kv:      kv,
		objects: objects,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "assoweb",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: KV-хранилище (Redis), объектное хранилище.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	kvCheck := h.check(r.Context(), h.kv, "KV-хранилище недоступно")
	if kvCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	objectsCheck := h.check(r.Context(), h.objects, "Объектное хранилище недоступно")
	if objectsCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	resp := map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "assoweb",
		"checks": map[string]any{
			"kv":      kvCheck,
			"objects": objectsCheck,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// check выполняет ping одной зависимости с коротким таймаутом.
func (h *HealthHandler) check(ctx context.Context, p Pinger, failMessage string) map[string]any {
	if p == nil {
		return map[string]any{
			"status":  "ok",
			"message": "Проверка не настроена",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": failMessage + ": " + err.Error(),
		}
	}
	return map[string]any{"status": "ok"}
}
