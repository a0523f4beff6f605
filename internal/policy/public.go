// Пакет policy — политика публичного доступа к ключам объектного
// хранилища и политика кэширования ответов.
//
// IsPublicKey — единственные ворота между "объект существует" и
// "объект доступен анонимному GET/HEAD". Проверяется на каждом
// публичном пути чтения, всегда по полностью собранному ключу
// (после проверки сегментов), никогда по отдельному сегменту.
package policy

import "strings"

// Публичные префиксы верхнего уровня. Всё остальное — приватно
// и должно отвечать 404/403, не раскрывая существование объекта.
const (
	PrefixDocuments = "documents/"
	PrefixPhotos    = "congres/"
	PrefixConcours  = "concours/"
)

var publicPrefixes = []string{
	PrefixDocuments,
	PrefixPhotos,
	PrefixConcours,
}

// IsPublicKey сообщает, входит ли ключ в одну из публично доступных
// категорий. Чистая префиксная проверка.
func IsPublicKey(key string) bool {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Директивы Cache-Control по форме ключа.
const (
	// cacheMutable — для заменяемых singleton-документов: тот же логический
	// документ может быть молча перезаписан под тем же ключом.
	cacheMutable = "no-store, must-revalidate"
	// cacheImmutable — для фотографий: байты ключа не меняются после
	// создания, единственная мутация — удаление, и закэшированный 404 —
	// приемлемое окно устаревания.
	cacheImmutable = "public, max-age=86400"
)

// CacheControlFor возвращает директиву Cache-Control для публичного ключа.
func CacheControlFor(key string) string {
	if IsImmutableKey(key) {
		return cacheImmutable
	}
	return cacheMutable
}

// IsImmutableKey сообщает, неизменяемо ли содержимое ключа после
// создания. Только фотографии конгрессов: документы и конкурсные PDF
// заменяемы администратором под тем же ключом.
func IsImmutableKey(key string) bool {
	return strings.HasPrefix(key, PrefixPhotos)
}
