// Пакет visits — счётчик посещений сайта.
//
// Общий счётчик живёт в KV под одним ключом и растёт атомарным INCR.
// Де-дупликация: один посетитель (IP + User-Agent) учитывается не чаще
// раза в сутки, маркер де-дупликации ставится через SETNX с TTL.
package visits

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/arturkryukov/assoweb/internal/ratelimit"
	"github.com/arturkryukov/assoweb/internal/storage/kv"
)

// totalKey — ключ общего счётчика. Без TTL: счётчик живёт вечно.
const totalKey = "visits:total"

// Counter — счётчик посещений поверх KV.
type Counter struct {
	kv      kv.Store
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// New создаёт счётчик посещений.
func New(kvStore kv.Store, limiter *ratelimit.Limiter, logger *slog.Logger) *Counter {
	return &Counter{
		kv:      kvStore,
		limiter: limiter,
		logger:  logger.With(slog.String("component", "visits")),
	}
}

// Record учитывает посещение и возвращает актуальное значение счётчика.
//
// Посещение засчитывается, только если маркер де-дупликации для пары
// IP + User-Agent ещё не стоял в текущих сутках. Значение счётчика
// возвращается всегда, в том числе для повторных посетителей.
func (c *Counter) Record(ctx context.Context, ip, userAgent string) (int64, error) {
	marker := ratelimit.VisitKey(visitorHash(ip, userAgent))

	first, err := c.limiter.MarkOnce(ctx, marker, ratelimit.VisitWindow)
	if err != nil {
		return 0, fmt.Errorf("маркер посещения: %w", err)
	}
	if !first {
		return c.Total(ctx)
	}

	total, err := c.kv.Incr(ctx, totalKey)
	if err != nil {
		return 0, fmt.Errorf("инкремент счётчика посещений: %w", err)
	}
	c.logger.Debug("Новое посещение", slog.Int64("total", total))
	return total, nil
}

// Total возвращает текущее значение счётчика. Отсутствующий ключ — 0.
func (c *Counter) Total(ctx context.Context) (int64, error) {
	raw, ok, err := c.kv.Get(ctx, totalKey)
	if err != nil {
		return 0, fmt.Errorf("чтение счётчика посещений: %w", err)
	}
	if !ok {
		return 0, nil
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("счётчик посещений повреждён: %w", err)
	}
	return total, nil
}

// visitorHash строит анонимный отпечаток посетителя на текущие сутки.
// Сырые IP и User-Agent в хранилище не попадают.
func visitorHash(ip, userAgent string) string {
	day := time.Now().UTC().Format("2006-01-02")
	sum := sha256.Sum256([]byte(ip + "|" + userAgent + "|" + day))
	return hex.EncodeToString(sum[:])
}
