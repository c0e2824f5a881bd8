package storage

import (
	"context"
	"sync"
)

type memoryObject struct {
	text        string
	contentType string
}

// MemoryStore is an in-process ObjectStore used for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) PutText(ctx context.Context, bucket, key, text, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[bucket+"/"+key] = memoryObject{text: text, contentType: contentType}
	m.mu.Unlock()
	return Locator(bucket, key), nil
}

func (m *MemoryStore) GetText(ctx context.Context, bucket, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	obj, ok := m.objects[bucket+"/"+key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrObjectNotFound
	}
	return obj.text, nil
}

// ContentType reports the content type recorded for bucket/key.
func (m *MemoryStore) ContentType(bucket, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[bucket+"/"+key]
	return obj.contentType, ok
}
