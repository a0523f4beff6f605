package concours

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/arturkryukov/assoweb/internal/domain/model"
	"github.com/arturkryukov/assoweb/internal/storage/kv"
	"github.com/arturkryukov/assoweb/internal/storage/object"
)

func newTestStore() (*Store, *kv.MemoryStore, *object.MemoryStore) {
	kvStore := kv.NewMemoryStore()
	objStore := object.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(kvStore, objStore, logger), kvStore, objStore
}

func testItem(r2Key, title string) model.ConcoursItem {
	return model.ConcoursItem{
		R2Key:            r2Key,
		Title:            title,
		OriginalFilename: title + ".pdf",
		UploadedAt:       time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		Size:             1024,
	}
}

// putObject кладёт объект в тестовое хранилище, чтобы удаление имело что удалять.
func putObject(t *testing.T, objStore *object.MemoryStore, key string) {
	t.Helper()
	err := objStore.Put(context.Background(), key, strings.NewReader("%PDF-1.7"), object.PutOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("ошибка записи объекта: %v", err)
	}
}

// TestAppend_RoundTrip проверяет, что добавленный элемент присутствует
// ровно один раз и в конце списка.
func TestAppend_RoundTrip(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()
	cat := model.CategoryReglements

	// Пустая категория до первой загрузки
	items, err := s.List(ctx, cat)
	if err != nil {
		t.Fatalf("ошибка чтения пустой категории: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("категория должна быть пустой, элементов: %d", len(items))
	}

	first := testItem("concours/reglements/a.pdf", "Règlement A")
	second := testItem("concours/reglements/b.pdf", "Règlement B")
	if err := s.Append(ctx, cat, first); err != nil {
		t.Fatalf("ошибка добавления: %v", err)
	}
	if err := s.Append(ctx, cat, second); err != nil {
		t.Fatalf("ошибка добавления: %v", err)
	}

	items, err = s.List(ctx, cat)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ожидалось 2 элемента, получено %d", len(items))
	}
	if items[1].R2Key != second.R2Key {
		t.Errorf("новый элемент должен быть в конце: %q", items[1].R2Key)
	}

	count := 0
	for _, it := range items {
		if it.R2Key == second.R2Key {
			count++
		}
	}
	if count != 1 {
		t.Errorf("элемент должен присутствовать ровно один раз, найдено %d", count)
	}
}

// TestAppend_DuplicateKey проверяет утверждение уникальности r2Key.
func TestAppend_DuplicateKey(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()
	cat := model.CategoryReglements

	item := testItem("concours/reglements/a.pdf", "A")
	if err := s.Append(ctx, cat, item); err != nil {
		t.Fatalf("ошибка добавления: %v", err)
	}
	if err := s.Append(ctx, cat, item); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("ожидалась ErrDuplicateKey, получено %v", err)
	}
}

// TestDeleteByKey проверяет удаление элемента и объекта.
func TestDeleteByKey(t *testing.T) {
	s, _, objStore := newTestStore()
	ctx := context.Background()
	cat := model.CategoryPalmaresPoetique
	key := "concours/palmares-poetique/p.pdf"

	putObject(t, objStore, key)
	_ = s.Append(ctx, cat, testItem(key, "Palmarès"))
	_ = s.Append(ctx, cat, testItem("concours/palmares-poetique/q.pdf", "Autre"))

	if err := s.DeleteByKey(ctx, cat, key); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}

	items, _ := s.List(ctx, cat)
	if len(items) != 1 {
		t.Fatalf("ожидался 1 элемент, получено %d", len(items))
	}
	if items[0].R2Key == key {
		t.Error("удалённый элемент остался в категории")
	}

	// Объект тоже удалён
	if _, err := objStore.Head(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Error("объект должен быть удалён из хранилища")
	}
}

// TestDeleteByKey_NotFound проверяет, что удаление несуществующего ключа
// возвращает ErrItemNotFound и не меняет массив (инвариант длины).
func TestDeleteByKey_NotFound(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()
	cat := model.CategoryReglements

	_ = s.Append(ctx, cat, testItem("concours/reglements/a.pdf", "A"))

	err := s.DeleteByKey(ctx, cat, "concours/reglements/absent.pdf")
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("ожидалась ErrItemNotFound, получено %v", err)
	}

	items, _ := s.List(ctx, cat)
	if len(items) != 1 {
		t.Errorf("массив не должен измениться, элементов: %d", len(items))
	}
}

// TestDeleteByKey_NoMutationForNonMember проверяет, что удаление по
// ключу, на который категория не ссылается, не трогает хранилище:
// посторонний объект под чужим префиксом обязан пережить запрос.
func TestDeleteByKey_NoMutationForNonMember(t *testing.T) {
	s, _, objStore := newTestStore()
	ctx := context.Background()
	cat := model.CategoryReglements
	foreign := "documents/statuts.pdf"

	putObject(t, objStore, foreign)
	_ = s.Append(ctx, cat, testItem("concours/reglements/a.pdf", "A"))

	err := s.DeleteByKey(ctx, cat, foreign)
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("ожидалась ErrItemNotFound, получено %v", err)
	}

	if _, err := objStore.Head(ctx, foreign); err != nil {
		t.Errorf("объект %s не должен быть удалён: %v", foreign, err)
	}
	items, _ := s.List(ctx, cat)
	if len(items) != 1 {
		t.Errorf("массив не должен измениться, элементов: %d", len(items))
	}
}

// TestDeleteByKey_ObjectAlreadyGone проверяет терпимость к отсутствию
// объекта в хранилище: удаление метаданных всё равно обязано пройти.
func TestDeleteByKey_ObjectAlreadyGone(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()
	cat := model.CategoryReglements
	key := "concours/reglements/orphan-meta.pdf"

	// Объект в хранилище не создаём
	_ = s.Append(ctx, cat, testItem(key, "Sans objet"))

	if err := s.DeleteByKey(ctx, cat, key); err != nil {
		t.Fatalf("отсутствие объекта не должно быть фатальным: %v", err)
	}

	items, _ := s.List(ctx, cat)
	if len(items) != 0 {
		t.Error("метаданные должны быть удалены")
	}
}

// TestReorder проверяет смежный обмен в обоих направлениях.
func TestReorder(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()
	cat := model.CategoryPalmaresArtistique

	keys := []string{
		"concours/palmares-artistique/a.pdf",
		"concours/palmares-artistique/b.pdf",
		"concours/palmares-artistique/c.pdf",
	}
	for _, k := range keys {
		_ = s.Append(ctx, cat, testItem(k, k))
	}

	// b вверх: b, a, c
	items, err := s.Reorder(ctx, cat, keys[1], DirectionUp)
	if err != nil {
		t.Fatalf("ошибка перемещения вверх: %v", err)
	}
	if items[0].R2Key != keys[1] || items[1].R2Key != keys[0] {
		t.Errorf("ожидался порядок b,a,c, получено %q,%q", items[0].R2Key, items[1].R2Key)
	}

	// a вниз: b, c, a
	items, err = s.Reorder(ctx, cat, keys[0], DirectionDown)
	if err != nil {
		t.Fatalf("ошибка перемещения вниз: %v", err)
	}
	if items[2].R2Key != keys[0] {
		t.Errorf("a должен оказаться последним, получено %q", items[2].R2Key)
	}
}

// TestReorder_Bounds проверяет границы: первый вверх и последний вниз
// отклоняются, массив не меняется.
func TestReorder_Bounds(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()
	cat := model.CategoryReglements

	keys := []string{"concours/reglements/a.pdf", "concours/reglements/b.pdf"}
	for _, k := range keys {
		_ = s.Append(ctx, cat, testItem(k, k))
	}

	if _, err := s.Reorder(ctx, cat, keys[0], DirectionUp); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("первый вверх: ожидалась ErrOutOfBounds, получено %v", err)
	}
	if _, err := s.Reorder(ctx, cat, keys[1], DirectionDown); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("последний вниз: ожидалась ErrOutOfBounds, получено %v", err)
	}

	// Массив не изменился
	items, _ := s.List(ctx, cat)
	if items[0].R2Key != keys[0] || items[1].R2Key != keys[1] {
		t.Error("массив не должен измениться после ошибок границ")
	}
}

// TestReorder_NotFound проверяет отсутствие элемента.
func TestReorder_NotFound(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()

	_, err := s.Reorder(ctx, model.CategoryReglements, "concours/reglements/absent.pdf", DirectionUp)
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("ожидалась ErrItemNotFound, получено %v", err)
	}
}

// TestListAll проверяет карту всех категорий.
func TestListAll(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()

	_ = s.Append(ctx, model.CategoryReglements, testItem("concours/reglements/a.pdf", "A"))

	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ошибка чтения всех категорий: %v", err)
	}
	if len(all) != len(model.Categories) {
		t.Fatalf("ожидалось %d категорий, получено %d", len(model.Categories), len(all))
	}
	if len(all[model.CategoryReglements]) != 1 {
		t.Error("категория reglements должна содержать 1 элемент")
	}
	if len(all[model.CategoryPalmaresPoetique]) != 0 {
		t.Error("пустая категория должна вернуть пустой список")
	}
}
