// concours.go — HTTP handlers конкурсных документов.
// Публичный листинг категорий и админские upload/delete/reorder.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/arturkryukov/assoweb/internal/api/errors"
	"github.com/arturkryukov/assoweb/internal/api/middleware"
	"github.com/arturkryukov/assoweb/internal/concours"
	"github.com/arturkryukov/assoweb/internal/domain/model"
	"github.com/arturkryukov/assoweb/internal/policy"
	"github.com/arturkryukov/assoweb/internal/storage/object"
	"github.com/arturkryukov/assoweb/internal/validate"
)

// ConcoursHandler — обработчик endpoints конкурсных документов.
type ConcoursHandler struct {
	store         *concours.Store
	objects       object.Store
	maxUploadSize int64
	logger        *slog.Logger
}

// NewConcoursHandler создаёт обработчик конкурсных endpoints.
func NewConcoursHandler(store *concours.Store, objects object.Store, maxUploadSize int64, logger *slog.Logger) *ConcoursHandler {
	return &ConcoursHandler{
		store:         store,
		objects:       objects,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "concours_handler")),
	}
}

// List обрабатывает GET /api/concours?category=.
// С параметром — массив одной категории, без — карта всех категорий.
func (h *ConcoursHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		all, err := h.store.ListAll(r.Context())
		if err != nil {
			h.logger.Error("Ошибка чтения категорий", slog.Any("error", err))
			apierrors.InternalError(w, "Ошибка чтения данных")
			return
		}
		writeJSON(w, http.StatusOK, all)
		return
	}

	if !model.IsValidCategory(category) {
		apierrors.ValidationError(w, "Неизвестная категория: "+category)
		return
	}

	items, err := h.store.List(r.Context(), model.ConcoursCategory(category))
	if err != nil {
		h.logger.Error("Ошибка чтения категории",
			slog.String("category", category),
			slog.Any("error", err),
		)
		apierrors.InternalError(w, "Ошибка чтения данных")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Upload обрабатывает POST /api/admin/concours/upload.
// Multipart form: file (PDF), category, title (опционально, по умолчанию
// исходное имя файла). Объект пишется до метаданных: массив никогда не
// ссылается на несохранённый объект.
func (h *ConcoursHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		apierrors.ValidationError(w, "Ошибка парсинга multipart: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	category := r.FormValue("category")
	if !model.IsValidCategory(category) {
		apierrors.ValidationError(w, "Неизвестная категория: "+category)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}

	declaredType := header.Header.Get("Content-Type")
	if declaredType != validate.MimePDF {
		apierrors.ValidationError(w, "Конкурсный документ должен быть PDF")
		return
	}

	head := make([]byte, 12)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		apierrors.ValidationError(w, "Не удалось прочитать файл")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		apierrors.ValidationError(w, "Не удалось прочитать файл")
		return
	}

	err = validate.ValidateFile(validate.FileCheck{
		Filename:     header.Filename,
		DeclaredType: declaredType,
		Size:         header.Size,
		Head:         head[:n],
	}, h.maxUploadSize)
	if err != nil {
		middleware.UploadsTotal.WithLabelValues("concours", "failure").Inc()
		if errors.Is(err, validate.ErrFileTooLarge) {
			apierrors.FileTooLarge(w, err.Error())
			return
		}
		apierrors.ValidationError(w, err.Error())
		return
	}

	r2Key, err := h.concoursKey(r, header.Filename)
	if err != nil {
		middleware.UploadsTotal.WithLabelValues("concours", "failure").Inc()
		apierrors.ValidationError(w, err.Error())
		return
	}

	uploadedAt := time.Now().UTC().Truncate(time.Second)
	err = h.objects.Put(r.Context(), r2Key, file, object.PutOptions{
		ContentType: declaredType,
		Metadata: map[string]string{
			object.MetaOriginalFilename: header.Filename,
			object.MetaUploadedAt:       uploadedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		h.logger.Error("Ошибка записи объекта",
			slog.String("key", r2Key),
			slog.Any("error", err),
		)
		middleware.UploadsTotal.WithLabelValues("concours", "failure").Inc()
		apierrors.InternalError(w, "Ошибка сохранения файла")
		return
	}

	item := model.ConcoursItem{
		R2Key:            r2Key,
		Title:            title,
		OriginalFilename: header.Filename,
		UploadedAt:       uploadedAt,
		Size:             header.Size,
	}
	if err := h.store.Append(r.Context(), model.ConcoursCategory(category), item); err != nil {
		// Объект уже записан: остаётся сиротой, обнаруживается сверкой
		h.logger.Error("Ошибка добавления метаданных, объект осиротел",
			slog.String("key", r2Key),
			slog.Any("error", err),
		)
		middleware.UploadsTotal.WithLabelValues("concours", "failure").Inc()
		apierrors.InternalError(w, "Ошибка сохранения метаданных")
		return
	}

	middleware.UploadsTotal.WithLabelValues("concours", "success").Inc()
	h.logger.Info("Конкурсный документ загружен",
		slog.String("category", category),
		slog.String("key", r2Key),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"item":    item,
	})
}

// concoursKey строит ключ конкурсного документа с оптимистичной
// проверкой коллизии.
func (h *ConcoursHandler) concoursKey(r *http.Request, filename string) (string, error) {
	name := validate.SanitizeFilename(filename, false)
	candidate := policy.PrefixConcours + name
	if validate.IsUnsafePath(strings.Split(candidate, "/")) {
		return "", errors.New("недопустимое имя файла")
	}

	_, err := h.objects.Head(r.Context(), candidate)
	if errors.Is(err, object.ErrNotFound) {
		return candidate, nil
	}
	if err != nil {
		return "", errors.New("ошибка проверки ключа хранилища")
	}

	return policy.PrefixConcours + validate.SanitizeFilename(filename, true), nil
}

// deleteRequest — тело POST /api/admin/concours/delete.
type deleteRequest struct {
	Category string `json:"category"`
	R2Key    string `json:"r2Key"`
}

// Delete обрабатывает POST /api/admin/concours/delete.
func (h *ConcoursHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}
	if !model.IsValidCategory(req.Category) {
		apierrors.ValidationError(w, "Неизвестная категория: "+req.Category)
		return
	}
	if req.R2Key == "" {
		apierrors.ValidationError(w, "Поле r2Key обязательно")
		return
	}
	// Ключ — пользовательский ввод: guard сегментов и префикс конкурсов
	// до любого обращения к хранилищу
	if validate.IsUnsafePath(strings.Split(req.R2Key, "/")) ||
		!strings.HasPrefix(req.R2Key, policy.PrefixConcours) {
		apierrors.ValidationError(w, "Недопустимый ключ: "+req.R2Key)
		return
	}

	err := h.store.DeleteByKey(r.Context(), model.ConcoursCategory(req.Category), req.R2Key)
	switch {
	case errors.Is(err, concours.ErrItemNotFound):
		apierrors.NotFound(w, "Элемент не найден в категории")
		return
	case err != nil:
		h.logger.Error("Ошибка удаления",
			slog.String("key", req.R2Key),
			slog.Any("error", err),
		)
		apierrors.InternalError(w, "Ошибка удаления")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"deletedKey": req.R2Key,
	})
}

// reorderRequest — тело POST /api/admin/concours/reorder.
type reorderRequest struct {
	Category  string `json:"category"`
	R2Key     string `json:"r2Key"`
	Direction string `json:"direction"`
}

// Reorder обрабатывает POST /api/admin/concours/reorder.
// Смещение элемента на одну позицию вверх или вниз.
func (h *ConcoursHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}
	if !model.IsValidCategory(req.Category) {
		apierrors.ValidationError(w, "Неизвестная категория: "+req.Category)
		return
	}
	if !concours.IsValidDirection(req.Direction) {
		apierrors.ValidationError(w, "Поле direction должно быть up или down")
		return
	}

	items, err := h.store.Reorder(r.Context(), model.ConcoursCategory(req.Category), req.R2Key, concours.Direction(req.Direction))
	switch {
	case errors.Is(err, concours.ErrItemNotFound):
		apierrors.NotFound(w, "Элемент не найден в категории")
		return
	case errors.Is(err, concours.ErrOutOfBounds):
		apierrors.ValidationError(w, "Элемент уже на границе списка")
		return
	case err != nil:
		h.logger.Error("Ошибка изменения порядка",
			slog.String("key", req.R2Key),
			slog.Any("error", err),
		)
		apierrors.InternalError(w, "Ошибка изменения порядка")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"items":   items,
	})
}
