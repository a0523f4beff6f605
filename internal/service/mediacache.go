// Пакет service — бизнес-логика сайта ассоциации.
// MediaCache — LRU-кэш метаданных медиа-объектов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
//
// Кэшируются только неизменяемые ключи (фотографии конгрессов):
// документы и файлы конкурсов администратор может перезаписать,
// их метаданные всегда читаются из хранилища напрямую.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/assoweb/internal/storage/object"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aw_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных медиа.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aw_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных медиа.",
	})
)

// MediaCache — LRU-кэш метаданных медиа-объектов с автоматическим TTL.
type MediaCache struct {
	cache *expirable.LRU[string, *object.Info]
}

// NewMediaCache создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество записей в кэше.
// ttl — время жизни записи после добавления.
func NewMediaCache(maxSize int, ttl time.Duration) *MediaCache {
	cache := expirable.NewLRU[string, *object.Info](maxSize, nil, ttl)
	return &MediaCache{cache: cache}
}

// Get возвращает метаданные объекта из кэша по ключу.
// Возвращает (метаданные, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *MediaCache) Get(key string) (*object.Info, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *MediaCache) Set(key string, info *object.Info) {
	c.cache.Add(key, info)
}
