// Пакет concours — упорядоченные коллекции конкурсных документов.
//
// Каждая категория хранится целиком как один JSON-массив под KV-ключом
// concours:<category>. Все операции — read-modify-write над единственным
// значением без оптимистичной блокировки: конкурирующие администраторы
// одной категории гонятся с гранулярностью всего массива (побеждает
// последняя запись). Принятое ограничение при модели "один администратор
// за раз"; линейности от этого слоя требовать нельзя.
package concours

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arturkryukov/assoweb/internal/domain/model"
	"github.com/arturkryukov/assoweb/internal/storage/kv"
	"github.com/arturkryukov/assoweb/internal/storage/object"
)

// Ошибки операций над категориями.
var (
	// ErrItemNotFound — элемент с указанным r2Key отсутствует в категории.
	ErrItemNotFound = errors.New("элемент не найден в категории")
	// ErrOutOfBounds — перемещение за границу массива (первый вверх,
	// последний вниз).
	ErrOutOfBounds = errors.New("перемещение за границу списка")
	// ErrDuplicateKey — попытка добавить элемент с уже существующим r2Key.
	// Недостижимо при корректной работе санитайзера имён; проверка —
	// явное утверждение инварианта уникальности.
	ErrDuplicateKey = errors.New("элемент с таким ключом уже существует")
)

// Direction — направление перемещения элемента.
type Direction string

const (
	// DirectionUp — на одну позицию к началу списка
	DirectionUp Direction = "up"
	// DirectionDown — на одну позицию к концу списка
	DirectionDown Direction = "down"
)

// IsValidDirection проверяет строковое значение направления.
func IsValidDirection(s string) bool {
	return s == string(DirectionUp) || s == string(DirectionDown)
}

// categoryKey строит KV-ключ категории.
func categoryKey(category model.ConcoursCategory) string {
	return "concours:" + string(category)
}

// Store — хранилище упорядоченных коллекций конкурсных документов.
type Store struct {
	kv      kv.Store
	objects object.Store
	logger  *slog.Logger
}

// NewStore создаёт хранилище категорий.
func NewStore(kvStore kv.Store, objects object.Store, logger *slog.Logger) *Store {
	return &Store{
		kv:      kvStore,
		objects: objects,
		logger:  logger.With(slog.String("component", "concours_store")),
	}
}

// List возвращает элементы категории в порядке отображения.
// Отсутствующий ключ — пустая категория (значение появляется при
// первой загрузке).
func (s *Store) List(ctx context.Context, category model.ConcoursCategory) ([]model.ConcoursItem, error) {
	return s.read(ctx, category)
}

// ListAll возвращает все категории одной картой.
func (s *Store) ListAll(ctx context.Context) (map[model.ConcoursCategory][]model.ConcoursItem, error) {
	result := make(map[model.ConcoursCategory][]model.ConcoursItem, len(model.Categories))
	for _, c := range model.Categories {
		items, err := s.read(ctx, c)
		if err != nil {
			return nil, err
		}
		result[c] = items
	}
	return result, nil
}

// Append добавляет элемент в конец категории.
// Уникальность r2Key обеспечивает санитайзер имён с fallback на
// timestamp; здесь — явная проверка инварианта.
func (s *Store) Append(ctx context.Context, category model.ConcoursCategory, item model.ConcoursItem) error {
	items, err := s.read(ctx, category)
	if err != nil {
		return err
	}

	for _, existing := range items {
		if existing.R2Key == item.R2Key {
			return ErrDuplicateKey
		}
	}

	items = append(items, item)
	if err := s.write(ctx, category, items); err != nil {
		return err
	}

	s.logger.Info("Элемент добавлен в категорию",
		slog.String("category", string(category)),
		slog.String("r2_key", item.R2Key),
		slog.Int("position", len(items)-1),
	)
	return nil
}

// DeleteByKey удаляет из категории все элементы с указанным r2Key
// и сам объект из хранилища.
//
// Порядок фиксирован: сначала членство в массиве — ключ, на который
// категория не ссылается, даёт ErrItemNotFound БЕЗ каких-либо
// мутаций (иначе удаление по чужому ключу трогало бы посторонние
// объекты хранилища). Для члена категории затем удаляется объект
// (отсутствие объекта терпимо — удаление идемпотентно) и только
// потом переписывается массив: метаданные никогда не должны
// ссылаться на несуществующий объект, обратное (осиротевший объект)
// допустимо и обнаруживается сверкой.
func (s *Store) DeleteByKey(ctx context.Context, category model.ConcoursCategory, r2Key string) error {
	items, err := s.read(ctx, category)
	if err != nil {
		return err
	}

	filtered := items[:0:0]
	for _, item := range items {
		if item.R2Key != r2Key {
			filtered = append(filtered, item)
		}
	}

	if len(filtered) == len(items) {
		return ErrItemNotFound
	}

	// Объект до массива: ошибка хранилища фатальна, отсутствие — нет
	if err := s.objects.Delete(ctx, r2Key); err != nil {
		return fmt.Errorf("удаление объекта %s: %w", r2Key, err)
	}

	if err := s.write(ctx, category, filtered); err != nil {
		return err
	}

	s.logger.Info("Элемент удалён из категории",
		slog.String("category", string(category)),
		slog.String("r2_key", r2Key),
	)
	return nil
}

// Reorder меняет элемент местами с соседним: index-1 для up,
// index+1 для down. Выход за границы — ErrOutOfBounds, отсутствие
// элемента — ErrItemNotFound; массив в обоих случаях не изменяется.
// Возвращает новый порядок категории.
func (s *Store) Reorder(ctx context.Context, category model.ConcoursCategory, r2Key string, dir Direction) ([]model.ConcoursItem, error) {
	items, err := s.read(ctx, category)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, item := range items {
		if item.R2Key == r2Key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrItemNotFound
	}

	neighbor := idx - 1
	if dir == DirectionDown {
		neighbor = idx + 1
	}
	if neighbor < 0 || neighbor >= len(items) {
		return nil, ErrOutOfBounds
	}

	items[idx], items[neighbor] = items[neighbor], items[idx]

	if err := s.write(ctx, category, items); err != nil {
		return nil, err
	}

	s.logger.Info("Элемент перемещён",
		slog.String("category", string(category)),
		slog.String("r2_key", r2Key),
		slog.String("direction", string(dir)),
	)
	return items, nil
}

// read загружает массив категории. Отсутствующий ключ — пустой массив.
func (s *Store) read(ctx context.Context, category model.ConcoursCategory) ([]model.ConcoursItem, error) {
	raw, ok, err := s.kv.Get(ctx, categoryKey(category))
	if err != nil {
		return nil, fmt.Errorf("чтение категории %s: %w", category, err)
	}
	if !ok {
		return []model.ConcoursItem{}, nil
	}

	var items []model.ConcoursItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("повреждённый JSON категории %s: %w", category, err)
	}
	return items, nil
}

// write сохраняет массив категории целиком, без TTL.
func (s *Store) write(ctx context.Context, category model.ConcoursCategory, items []model.ConcoursItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("сериализация категории %s: %w", category, err)
	}
	if err := s.kv.Put(ctx, categoryKey(category), string(data), 0); err != nil {
		return fmt.Errorf("запись категории %s: %w", category, err)
	}
	return nil
}
