// Пакет object — объектное хранилище файлов сайта (R2 через S3 API).
// Ключ — единственный идентификатор объекта; перезапись ключа заменяет
// содержимое атомарно с точки зрения читателя.
package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound — объект с указанным ключом отсутствует в хранилище.
var ErrNotFound = errors.New("объект не найден")

// Ключи custom metadata объекта.
const (
	MetaOriginalFilename = "original-filename"
	MetaUploadedAt       = "uploaded-at"
)

// Info — метаданные объекта без содержимого.
type Info struct {
	// Key — полный ключ объекта
	Key string
	// ContentType — MIME-тип содержимого
	ContentType string
	// Size — размер в байтах
	Size int64
	// Metadata — custom metadata (original-filename, uploaded-at)
	Metadata map[string]string
}

// PutOptions — параметры записи объекта.
type PutOptions struct {
	// ContentType — MIME-тип содержимого
	ContentType string
	// Metadata — custom metadata
	Metadata map[string]string
}

// Store — контракт объектного хранилища.
type Store interface {
	// Head возвращает метаданные объекта или ErrNotFound.
	Head(ctx context.Context, key string) (*Info, error)

	// Get возвращает содержимое и метаданные или ErrNotFound.
	// Reader обязан быть закрыт вызывающим.
	Get(ctx context.Context, key string) (io.ReadCloser, *Info, error)

	// Put записывает объект, перезаписывая существующий ключ.
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error

	// Delete удаляет объект. Идемпотентна: отсутствие ключа — не ошибка.
	Delete(ctx context.Context, key string) error

	// List возвращает ключи объектов с указанным префиксом.
	List(ctx context.Context, prefix string) ([]Info, error)
}
