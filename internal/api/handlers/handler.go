// handler.go — агрегат всех доменных handler-ов API.
// Маршрутизация выполняется в пакете server, здесь только сборка.
package handlers

import (
	"encoding/json"
	"net"
	"net/http"
)

// Handler — все доменные handlers в одном объекте.
type Handler struct {
	Auth     *AuthHandler
	Admin    *AdminHandler
	Concours *ConcoursHandler
	Media    *MediaHandler
	Public   *PublicHandler
	Contact  *ContactHandler
	Health   *HealthHandler
}

// New собирает единый handler для всех endpoints.
func New(
	auth *AuthHandler,
	admin *AdminHandler,
	concours *ConcoursHandler,
	media *MediaHandler,
	public *PublicHandler,
	contact *ContactHandler,
	health *HealthHandler,
) *Handler {
	return &Handler{
		Auth:     auth,
		Admin:    admin,
		Concours: concours,
		Media:    media,
		Public:   public,
		Contact:  contact,
		Health:   health,
	}
}

// writeJSON вспомогательная функция для записи JSON-ответа.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// clientIP извлекает IP клиента из RemoteAddr.
// За обратным прокси реальный адрес восстанавливает chi middleware.RealIP
// до попадания запроса сюда.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
