// media.go — публичная раздача файлов из объектного хранилища.
// Единственный путь от "объект существует" к "объект доступен анонимно"
// проходит через path guard и allowlist префиксов.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/assoweb/internal/api/errors"
	"github.com/arturkryukov/assoweb/internal/policy"
	"github.com/arturkryukov/assoweb/internal/service"
	"github.com/arturkryukov/assoweb/internal/storage/object"
	"github.com/arturkryukov/assoweb/internal/validate"
)

// MediaHandler — обработчик GET/HEAD /api/media/{...key}.
type MediaHandler struct {
	objects object.Store
	cache   *service.MediaCache
	logger  *slog.Logger
}

// NewMediaHandler создаёт обработчик публичной раздачи.
func NewMediaHandler(objects object.Store, cache *service.MediaCache, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		objects: objects,
		cache:   cache,
		logger:  logger.With(slog.String("component", "media_handler")),
	}
}

// Get обрабатывает GET /api/media/*.
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := h.gate(w, r)
	if !ok {
		return
	}

	body, info, err := h.objects.Get(r.Context(), key)
	if errors.Is(err, object.ErrNotFound) {
		apierrors.NotFound(w, "Файл не найден")
		return
	}
	if err != nil {
		h.logger.Error("Ошибка чтения объекта",
			slog.String("key", key),
			slog.Any("error", err),
		)
		apierrors.InternalError(w, "Ошибка чтения файла")
		return
	}
	defer body.Close()

	if policy.IsImmutableKey(key) {
		h.cache.Set(key, info)
	}

	writeMediaHeaders(w, key, info)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

// Head обрабатывает HEAD /api/media/* с тем же контролем доступа.
// Для неизменяемых ключей метаданные берутся из LRU-кэша.
func (h *MediaHandler) Head(w http.ResponseWriter, r *http.Request) {
	key, ok := h.gate(w, r)
	if !ok {
		return
	}

	immutable := policy.IsImmutableKey(key)
	if immutable {
		if info, hit := h.cache.Get(key); hit {
			writeMediaHeaders(w, key, info)
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	info, err := h.objects.Head(r.Context(), key)
	if errors.Is(err, object.ErrNotFound) {
		apierrors.NotFound(w, "Файл не найден")
		return
	}
	if err != nil {
		h.logger.Error("Ошибка чтения метаданных объекта",
			slog.String("key", key),
			slog.Any("error", err),
		)
		apierrors.InternalError(w, "Ошибка чтения файла")
		return
	}

	if immutable {
		h.cache.Set(key, info)
	}

	writeMediaHeaders(w, key, info)
	w.WriteHeader(http.StatusOK)
}

// gate выполняет общий контроль доступа: path guard, затем allowlist
// по полностью собранному ключу. Порядок обязателен: allowlist по
// ключу с traversal-сегментами обходится вложенностью.
func (h *MediaHandler) gate(w http.ResponseWriter, r *http.Request) (string, bool) {
	// chi отдаёт wildcard в исходной percent-encoded форме:
	// guard должен видеть декодированные сегменты, иначе "..%2f"
	// проходит мимо проверки
	key, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		apierrors.ValidationError(w, "Недопустимый путь")
		return "", false
	}

	if key == "" || validate.IsUnsafePath(strings.Split(key, "/")) {
		apierrors.ValidationError(w, "Недопустимый путь")
		return "", false
	}
	if !policy.IsPublicKey(key) {
		apierrors.Forbidden(w, "Доступ запрещён")
		return "", false
	}
	return key, true
}

// writeMediaHeaders записывает заголовки ответа медиа-файла.
func writeMediaHeaders(w http.ResponseWriter, key string, info *object.Info) {
	contentType := info.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(key))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Cache-Control", policy.CacheControlFor(key))
	w.Header().Set("X-Content-Type-Options", "nosniff")

	// Исходное имя файла: percent-encoding делает заголовок безопасным
	// для не-ASCII имён
	if original := info.Metadata[object.MetaOriginalFilename]; original != "" {
		w.Header().Set("X-Original-Filename", url.PathEscape(original))
		w.Header().Set("Access-Control-Expose-Headers", "X-Original-Filename")
	}
}
