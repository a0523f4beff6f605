// public.go — публичные информационные endpoints.
// Каталог документов, фотоальбомы по годам, счётчик посещений.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/arturkryukov/assoweb/internal/api/errors"
	"github.com/arturkryukov/assoweb/internal/domain/model"
	"github.com/arturkryukov/assoweb/internal/policy"
	"github.com/arturkryukov/assoweb/internal/storage/object"
	"github.com/arturkryukov/assoweb/internal/validate"
	"github.com/arturkryukov/assoweb/internal/visits"
)

// PublicHandler — обработчик публичных информационных endpoints.
type PublicHandler struct {
	objects object.Store
	counter *visits.Counter
	logger  *slog.Logger
}

// NewPublicHandler создаёт обработчик публичных endpoints.
func NewPublicHandler(objects object.Store, counter *visits.Counter, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		objects: objects,
		counter: counter,
		logger:  logger.With(slog.String("component", "public_handler")),
	}
}

// documentEntry — элемент ответа GET /api/documents.
type documentEntry struct {
	Path      string `json:"path"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
	URL       string `json:"url,omitempty"`
}

// Documents обрабатывает GET /api/documents.
// Закрытый каталог из конфигурации; доступность каждого документа
// определяется HEAD-проверкой хранилища.
func (h *PublicHandler) Documents(w http.ResponseWriter, r *http.Request) {
	entries := make([]documentEntry, 0, len(model.DocumentCatalog))
	for _, doc := range model.DocumentCatalog {
		key := policy.PrefixDocuments + doc.Path
		entry := documentEntry{Path: doc.Path, Label: doc.Label}

		_, err := h.objects.Head(r.Context(), key)
		switch {
		case err == nil:
			entry.Available = true
			entry.URL = "/api/media/" + key
		case errors.Is(err, object.ErrNotFound):
			// Документ ещё не загружен
		default:
			h.logger.Error("Ошибка проверки документа",
				slog.String("key", key),
				slog.Any("error", err),
			)
			apierrors.InternalError(w, "Ошибка чтения каталога")
			return
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": entries})
}

// photoEntry — элемент ответа GET /api/photos.
type photoEntry struct {
	R2Key string `json:"r2Key"`
	URL   string `json:"url"`
	Size  int64  `json:"size"`
}

// Photos обрабатывает GET /api/photos?year=.
// Листинг фотографий конгресса за указанный год.
func (h *PublicHandler) Photos(w http.ResponseWriter, r *http.Request) {
	year := r.URL.Query().Get("year")
	if !validate.ValidatePhotoYear(year) {
		apierrors.ValidationError(w, "Недопустимый год: "+year)
		return
	}

	infos, err := h.objects.List(r.Context(), policy.PrefixPhotos+year+"/")
	if err != nil {
		h.logger.Error("Ошибка листинга фотографий",
			slog.String("year", year),
			slog.Any("error", err),
		)
		apierrors.InternalError(w, "Ошибка чтения альбома")
		return
	}

	photos := make([]photoEntry, 0, len(infos))
	for _, info := range infos {
		photos = append(photos, photoEntry{
			R2Key: info.Key,
			URL:   "/api/media/" + info.Key,
			Size:  info.Size,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":   year,
		"photos": photos,
	})
}

// RecordVisit обрабатывает POST /api/visits.
// Учитывает посещение с суточной де-дупликацией и возвращает счётчик.
func (h *PublicHandler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	count, err := h.counter.Record(r.Context(), clientIP(r), r.UserAgent())
	if err != nil {
		h.logger.Error("Ошибка учёта посещения", slog.Any("error", err))
		apierrors.InternalError(w, "Ошибка счётчика посещений")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

// GetVisits обрабатывает GET /api/visits.
func (h *PublicHandler) GetVisits(w http.ResponseWriter, r *http.Request) {
	count, err := h.counter.Total(r.Context())
	if err != nil {
		h.logger.Error("Ошибка чтения счётчика", slog.Any("error", err))
		apierrors.InternalError(w, "Ошибка счётчика посещений")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}
