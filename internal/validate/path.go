// path.go — защита от path traversal в ключах объектного хранилища.
package validate

import (
	"strconv"
	"strings"
	"time"
)

// IsUnsafePath сообщает, содержит ли последовательность сегментов пути
// опасный элемент. Сегмент опасен, если он пуст, равен "." или "..",
// либо содержит обратный слэш или нулевой байт (альтернативные
// разделители и управляющие символы у некоторых backend-ов).
// Один опасный сегмент делает опасным весь путь.
func IsUnsafePath(segments []string) bool {
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return true
		}
		if strings.ContainsRune(seg, '\\') || strings.ContainsRune(seg, 0) {
			return true
		}
	}
	return false
}

// firstPhotoYear — первый год, за который существуют фотоальбомы.
const firstPhotoYear = 2010

// ValidatePhotoYear проверяет год фотоальбома: ровно 4 цифры в
// диапазоне [2010, текущий год].
func ValidatePhotoYear(year string) bool {
	if len(year) != 4 {
		return false
	}
	for _, c := range year {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(year)
	if err != nil {
		return false
	}
	return n >= firstPhotoYear && n <= time.Now().Year()
}
