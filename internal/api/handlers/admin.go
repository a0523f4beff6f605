// admin.go — HTTP handlers админской загрузки файлов и обслуживания.
// Загрузка документов и фотографий, поиск осиротевших объектов.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/arturkryukov/assoweb/internal/api/errors"
	"github.com/arturkryukov/assoweb/internal/api/middleware"
	"github.com/arturkryukov/assoweb/internal/domain/model"
	"github.com/arturkryukov/assoweb/internal/policy"
	"github.com/arturkryukov/assoweb/internal/service"
	"github.com/arturkryukov/assoweb/internal/storage/object"
	"github.com/arturkryukov/assoweb/internal/validate"
)

// multipartMemory — лимит буферизации multipart form в памяти.
const multipartMemory = 32 << 20

// Виды загрузки для поля type.
const (
	uploadKindDocument = "document"
	uploadKindPhoto    = "photo"
)

// AdminHandler — обработчик админских endpoints.
type AdminHandler struct {
	objects       object.Store
	scanner       *service.OrphanScanner
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAdminHandler создаёт обработчик админских endpoints.
func NewAdminHandler(objects object.Store, scanner *service.OrphanScanner, maxUploadSize int64, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		objects:       objects,
		scanner:       scanner,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "admin_handler")),
	}
}

// Upload обрабатывает POST /api/admin/upload.
// Multipart form: file (обязательно), type ∈ {document, photo}, key.
// Для документов key — путь из закрытого каталога, ключ канонический
// и перезаписывается. Для фотографий key — год; имя файла
// санитизируется, коллизия разрешается timestamped-вариантом.
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
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

	kind := r.FormValue("type")
	key := r.FormValue("key")

	var r2Key string
	switch kind {
	case uploadKindDocument:
		r2Key, err = h.documentKey(key)
	case uploadKindPhoto:
		r2Key, err = h.photoKey(r, key, header.Filename)
	default:
		apierrors.ValidationError(w, "Поле 'type' должно быть document или photo")
		return
	}
	if err != nil {
		middleware.UploadsTotal.WithLabelValues(kind, "failure").Inc()
		apierrors.ValidationError(w, err.Error())
		return
	}

	if err := h.validateUpload(kind, header, file); err != nil {
		middleware.UploadsTotal.WithLabelValues(kind, "failure").Inc()
		if errors.Is(err, validate.ErrFileTooLarge) {
			apierrors.FileTooLarge(w, err.Error())
			return
		}
		apierrors.ValidationError(w, err.Error())
		return
	}

	err = h.objects.Put(r.Context(), r2Key, file, object.PutOptions{
		ContentType: header.Header.Get("Content-Type"),
		Metadata: map[string]string{
			object.MetaOriginalFilename: header.Filename,
			object.MetaUploadedAt:       time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		h.logger.Error("Ошибка записи объекта",
			slog.String("key", r2Key),
			slog.Any("error", err),
		)
		middleware.UploadsTotal.WithLabelValues(kind, "failure").Inc()
		apierrors.InternalError(w, "Ошибка сохранения файла")
		return
	}

	middleware.UploadsTotal.WithLabelValues(kind, "success").Inc()
	h.logger.Info("Файл загружен",
		slog.String("key", r2Key),
		slog.String("type", kind),
		slog.Int64("size", header.Size),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"r2Key":   r2Key,
		"url":     "/api/media/" + r2Key,
	})
}

// documentKey строит канонический ключ документа из закрытого каталога.
// Администратор не может изобретать новые документные ключи.
func (h *AdminHandler) documentKey(key string) (string, error) {
	doc := model.FindDocument(key)
	if doc == nil {
		return "", errors.New("неизвестный документ: " + key)
	}
	return policy.PrefixDocuments + doc.Path, nil
}

// photoKey строит ключ фотографии: congres/<год>/<санитизированное имя>.
// Оптимистичная проверка коллизии: сначала простое имя, при занятом
// ключе — вариант с timestamp-префиксом.
func (h *AdminHandler) photoKey(r *http.Request, year, filename string) (string, error) {
	if !validate.ValidatePhotoYear(year) {
		return "", errors.New("недопустимый год: " + year)
	}

	name := validate.SanitizeFilename(filename, false)
	candidate := policy.PrefixPhotos + year + "/" + name
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

	// Ключ занят: берём timestamped-вариант
	name = validate.SanitizeFilename(filename, true)
	return policy.PrefixPhotos + year + "/" + name, nil
}

// validateUpload проверяет файл целиком: размер, тип, расширение,
// магические байты. Для фотографий PDF не допускается.
func (h *AdminHandler) validateUpload(kind string, header *multipart.FileHeader, file multipart.File) error {
	declaredType := header.Header.Get("Content-Type")

	if kind == uploadKindPhoto && declaredType == validate.MimePDF {
		return errors.New("фотография не может быть PDF")
	}
	if kind == uploadKindDocument && declaredType != validate.MimePDF {
		return errors.New("документ должен быть PDF")
	}

	head := make([]byte, 12)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.New("не удалось прочитать файл")
	}
	// Возвращаем курсор в начало перед записью в хранилище
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return errors.New("не удалось прочитать файл")
	}

	return validate.ValidateFile(validate.FileCheck{
		Filename:     header.Filename,
		DeclaredType: declaredType,
		Size:         header.Size,
		Head:         head[:n],
	}, h.maxUploadSize)
}

// Orphans обрабатывает GET /api/admin/concours/orphans.
// Сверка объектов под concours/ с массивами категорий.
func (h *AdminHandler) Orphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.scanner.Scan(r.Context())
	if errors.Is(err, service.ErrScanInProgress) {
		apierrors.Conflict(w, "Сверка уже выполняется")
		return
	}
	if err != nil {
		h.logger.Error("Ошибка сверки", slog.Any("error", err))
		apierrors.InternalError(w, "Ошибка сверки хранилища")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orphans": orphans,
		"count":   len(orphans),
	})
}
