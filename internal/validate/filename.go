// filename.go — нормализация пользовательских имён файлов в безопасный
// суффикс ключа хранилища.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[^a-z0-9-]`)
)

// maxStemLen — максимальная длина основы имени после нормализации.
const maxStemLen = 100

// SanitizeFilename приводит имя файла к безопасному виду:
// нижний регистр, пробельные последовательности → одиночный дефис,
// удаление всего вне [a-z0-9-], усечение основы до 100 символов.
// Расширение (после последней точки) сохраняется как есть.
//
// При addTimestamp к основе добавляется префикс из Unix-времени в
// миллисекундах — вариант для разрешения коллизий имён. Без него
// функция детерминирована и идемпотентна.
func SanitizeFilename(rawName string, addTimestamp bool) string {
	stem := rawName
	ext := ""
	if idx := strings.LastIndex(rawName, "."); idx >= 0 {
		stem = rawName[:idx]
		ext = rawName[idx:]
	}

	stem = strings.ToLower(stem)
	stem = whitespaceRun.ReplaceAllString(stem, "-")
	stem = unsafeChars.ReplaceAllString(stem, "")
	if len(stem) > maxStemLen {
		stem = stem[:maxStemLen]
	}

	if addTimestamp {
		stem = strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + stem
	}

	return stem + ext
}
