// Пакет validate — проверки пользовательского ввода перед обращением
// к хранилищу: целостность файлов, имена файлов, сегменты путей.
//
// file.go — валидатор целостности загружаемых файлов.
// Content-Type и расширение контролируются клиентом, поэтому решающая
// проверка — магические байты: подделать их, не являясь корректным
// файлом заявленного формата, затратно.
package validate

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrFileTooLarge — размер файла превышает лимит. Выделена отдельно,
// чтобы вызывающий мог ответить 413 вместо общего 400.
var ErrFileTooLarge = errors.New("файл слишком большой")

// Фиксированный allowlist MIME-типов загружаемых файлов.
const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
)

// allowedExtensions — расширения, зарегистрированные за каждым MIME-типом.
var allowedExtensions = map[string][]string{
	MimePDF:  {"pdf"},
	MimeJPEG: {"jpg", "jpeg"},
	MimePNG:  {"png"},
	MimeWebP: {"webp"},
}

// Магические байты известных форматов.
var (
	magicPDF  = []byte{0x25, 0x50, 0x44, 0x46} // "%PDF"
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicPNG  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	magicRIFF = []byte("RIFF")
	magicWEBP = []byte("WEBP")
)

// sniffLen — количество байт, достаточное для всех сигнатур.
// WebP требует байты 8–11, поэтому 12.
const sniffLen = 12

// FileCheck — входные данные проверки файла.
type FileCheck struct {
	// Filename — имя файла, заявленное клиентом
	Filename string
	// DeclaredType — Content-Type, заявленный клиентом
	DeclaredType string
	// Size — размер файла в байтах
	Size int64
	// Head — первые байты содержимого (минимум sniffLen, если файл не короче)
	Head []byte
}

// ValidateFile проверяет файл по четырём шагам, fail-fast:
//  1. размер не превышает maxSize;
//  2. заявленный MIME-тип входит в allowlist;
//  3. расширение (без учёта регистра, после последней точки)
//     зарегистрировано за заявленным типом;
//  4. магические байты соответствуют заявленному типу.
//
// Все проверки — чистые функции над уже буферизованными байтами.
func ValidateFile(fc FileCheck, maxSize int64) error {
	// 1. Размер
	if fc.Size > maxSize {
		return fmt.Errorf("%w: максимум %d МБ", ErrFileTooLarge, maxSize/(1024*1024))
	}

	// 2. Allowlist типов
	exts, ok := allowedExtensions[fc.DeclaredType]
	if !ok {
		return fmt.Errorf("недопустимый тип файла: %s", fc.DeclaredType)
	}

	// 3. Соответствие расширения заявленному типу
	ext := extensionOf(fc.Filename)
	if !containsString(exts, ext) {
		return fmt.Errorf("расширение %q не соответствует типу %s", ext, fc.DeclaredType)
	}

	// 4. Магические байты
	if !matchesMagic(fc.DeclaredType, fc.Head) {
		return fmt.Errorf("файл повреждён или замаскирован под %s", fc.DeclaredType)
	}

	return nil
}

// extensionOf возвращает расширение после последней точки в нижнем регистре.
// Пустая строка, если точки нет.
func extensionOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// matchesMagic сверяет первые байты содержимого с сигнатурой типа.
// WebP — двухчастная проверка: "RIFF" в байтах 0–3 и "WEBP" в байтах
// 8–11 (между ними — размер контейнера, не проверяется).
func matchesMagic(declaredType string, head []byte) bool {
	switch declaredType {
	case MimePDF:
		return bytes.HasPrefix(head, magicPDF)
	case MimeJPEG:
		return bytes.HasPrefix(head, magicJPEG)
	case MimePNG:
		return bytes.HasPrefix(head, magicPNG)
	case MimeWebP:
		return len(head) >= sniffLen &&
			bytes.Equal(head[0:4], magicRIFF) &&
			bytes.Equal(head[8:12], magicWEBP)
	default:
		return false
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
