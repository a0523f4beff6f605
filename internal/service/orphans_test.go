package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/arturkryukov/assoweb/internal/concours"
	"github.com/arturkryukov/assoweb/internal/domain/model"
	"github.com/arturkryukov/assoweb/internal/storage/kv"
	"github.com/arturkryukov/assoweb/internal/storage/object"
)

func newTestScanner(t *testing.T) (*OrphanScanner, *concours.Store, object.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	objects := object.NewMemoryStore()
	store := concours.NewStore(kv.NewMemoryStore(), objects, logger)
	return NewOrphanScanner(store, objects, logger), store, objects
}

func putTestObject(t *testing.T, objects object.Store, key string) {
	t.Helper()

	err := objects.Put(context.Background(), key, strings.NewReader("%PDF-1.4"), object.PutOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("запись объекта %s: %v", key, err)
	}
}

// TestScan_FindsUnreferenced проверяет, что объекты без ссылки из
// массивов категорий попадают в результат сверки.
func TestScan_FindsUnreferenced(t *testing.T) {
	scanner, store, objects := newTestScanner(t)
	ctx := context.Background()

	putTestObject(t, objects, "concours/referenced.pdf")
	putTestObject(t, objects, "concours/orphan.pdf")

	err := store.Append(ctx, model.CategoryReglements, model.ConcoursItem{
		R2Key: "concours/referenced.pdf",
		Title: "Règlement 2026",
	})
	if err != nil {
		t.Fatalf("добавление элемента: %v", err)
	}

	orphans, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("ошибка сверки: %v", err)
	}
	if len(orphans) != 1 {
		t.Fatalf("ожидался 1 осиротевший объект, получено %d", len(orphans))
	}
	if orphans[0].R2Key != "concours/orphan.pdf" {
		t.Errorf("неожиданный ключ: %s", orphans[0].R2Key)
	}
}

// TestScan_AllReferenced проверяет пустой результат при полной ссылочной
// целостности, в том числе между разными категориями.
func TestScan_AllReferenced(t *testing.T) {
	scanner, store, objects := newTestScanner(t)
	ctx := context.Background()

	putTestObject(t, objects, "concours/a.pdf")
	putTestObject(t, objects, "concours/b.pdf")
	store.Append(ctx, model.CategoryReglements, model.ConcoursItem{R2Key: "concours/a.pdf"})
	store.Append(ctx, model.CategoryPalmaresPoetique, model.ConcoursItem{R2Key: "concours/b.pdf"})

	orphans, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("ошибка сверки: %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("ожидался пустой результат, получено %v", orphans)
	}
}

// TestScan_IgnoresOtherPrefixes проверяет, что объекты вне префикса
// конкурсов сверкой не рассматриваются.
func TestScan_IgnoresOtherPrefixes(t *testing.T) {
	scanner, _, objects := newTestScanner(t)
	ctx := context.Background()

	putTestObject(t, objects, "documents/statuts.pdf")
	putTestObject(t, objects, "congres/2024/photo.jpg")

	orphans, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("ошибка сверки: %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("объекты вне concours/ не должны считаться сиротами: %v", orphans)
	}
}

// TestScan_Sequential проверяет, что повторный запуск после завершения
// предыдущего разрешён.
func TestScan_Sequential(t *testing.T) {
	scanner, _, _ := newTestScanner(t)
	ctx := context.Background()

	if _, err := scanner.Scan(ctx); err != nil {
		t.Fatalf("первая сверка: %v", err)
	}
	if _, err := scanner.Scan(ctx); err != nil {
		t.Fatalf("вторая сверка: %v", err)
	}
}
