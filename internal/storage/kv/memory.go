// memory.go — in-memory реализация Store для unit-тестов.
// Семантика TTL повторяет Redis в достаточном для тестов объёме:
// истёкший ключ эквивалентен отсутствующему.
package kv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// MemoryStore — потокобезопасное in-memory KV-хранилище.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	// now — источник времени, подменяется в тестах для проверки TTL
	now func() time.Time
}

type memoryEntry struct {
	value string
	// expiresAt — нулевое время, если TTL не установлен
	expiresAt time.Time
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock подменяет источник времени (для тестов истечения TTL).
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// alive возвращает запись, если она существует и не истекла.
// Вызывается под мьютексом.
func (s *MemoryStore) alive(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.alive(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.alive(key)
	return ok, nil
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if e, ok := s.alive(key); ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("значение ключа %s не целое число: %q", key, e.value)
		}
		n = parsed
	}
	n++

	// TTL существующего ключа сохраняется, как в Redis INCR
	e := s.entries[key]
	e.value = strconv.FormatInt(n, 10)
	s.entries[key] = e
	return n, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.alive(key)
	if !ok {
		return nil
	}
	e.expiresAt = s.now().Add(ttl)
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alive(key); ok {
		return false, nil
	}
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return true, nil
}

var _ Store = (*MemoryStore)(nil)
