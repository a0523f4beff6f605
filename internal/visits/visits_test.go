package visits

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/arturkryukov/assoweb/internal/ratelimit"
	"github.com/arturkryukov/assoweb/internal/storage/kv"
)

func newTestCounter(t *testing.T) *Counter {
	t.Helper()

	store := kv.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, ratelimit.New(store, logger), logger)
}

// TestRecord_Dedup проверяет, что повторное посещение одного посетителя
// в течение суток не увеличивает счётчик, но значение возвращается.
func TestRecord_Dedup(t *testing.T) {
	c := newTestCounter(t)
	ctx := context.Background()

	total, err := c.Record(ctx, "203.0.113.10", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("ошибка учёта посещения: %v", err)
	}
	if total != 1 {
		t.Fatalf("первое посещение: ожидалось 1, получено %d", total)
	}

	total, err = c.Record(ctx, "203.0.113.10", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("ошибка повторного учёта: %v", err)
	}
	if total != 1 {
		t.Errorf("повтор не должен увеличивать счётчик: ожидалось 1, получено %d", total)
	}
}

// TestRecord_DistinctVisitors проверяет, что разные посетители считаются
// отдельно: другой IP или другой User-Agent — другой посетитель.
func TestRecord_DistinctVisitors(t *testing.T) {
	c := newTestCounter(t)
	ctx := context.Background()

	c.Record(ctx, "203.0.113.10", "Mozilla/5.0")
	c.Record(ctx, "198.51.100.7", "Mozilla/5.0")
	total, err := c.Record(ctx, "203.0.113.10", "curl/8.0")
	if err != nil {
		t.Fatalf("ошибка учёта: %v", err)
	}
	if total != 3 {
		t.Errorf("ожидалось 3 посетителя, получено %d", total)
	}
}

// TestTotal_Empty проверяет, что пустой счётчик читается как ноль.
func TestTotal_Empty(t *testing.T) {
	c := newTestCounter(t)

	total, err := c.Total(context.Background())
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if total != 0 {
		t.Errorf("ожидалось 0, получено %d", total)
	}
}
