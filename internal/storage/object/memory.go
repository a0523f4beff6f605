// memory.go — in-memory реализация Store для unit-тестов.
package object

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStore — потокобезопасное in-memory объектное хранилище.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Head(_ context.Context, key string) (*Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return s.info(key, obj), nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, *Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), s.info(key, obj), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, body io.Reader, opts PutOptions) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	meta := make(map[string]string, len(opts.Metadata))
	for k, v := range opts.Metadata {
		meta[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{
		data:        data,
		contentType: opts.ContentType,
		metadata:    meta,
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Info
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			result = append(result, *s.info(key, obj))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// info строит Info с копией metadata. Вызывается под мьютексом.
func (s *MemoryStore) info(key string, obj memoryObject) *Info {
	meta := make(map[string]string, len(obj.metadata))
	for k, v := range obj.metadata {
		meta[k] = v
	}
	return &Info{
		Key:         key,
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
		Metadata:    meta,
	}
}

var _ Store = (*MemoryStore)(nil)
